package handler

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleCallback 处理按钮回调
func (h *Handler) handleCallback(cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	switch {
	case strings.HasPrefix(data, "follow_movie_"):
		h.setTrackedFromCallback(cb, strings.TrimPrefix(data, "follow_movie_"), true,
			"🔔 You'll get updates for this movie!")
	case strings.HasPrefix(data, "watchlist_add_"):
		h.setTrackedFromCallback(cb, strings.TrimPrefix(data, "watchlist_add_"), true,
			"➕ Added to your watchlist!")
	case strings.HasPrefix(data, "watchlist_remove_"):
		h.setTrackedFromCallback(cb, strings.TrimPrefix(data, "watchlist_remove_"), false,
			"🗑️ Removed from your watchlist.")
	case strings.HasPrefix(data, "add_to_db_"):
		h.addPendingTitles(cb, strings.TrimPrefix(data, "add_to_db_"))
	default:
		h.answerCallback(cb, "")
	}
}

// answerCallback 应答回调，解除按钮的加载状态
func (h *Handler) answerCallback(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := h.Bot.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		log.Printf("[Handler] 应答回调失败: %v", err)
	}
}

// setTrackedFromCallback 翻转追踪标记。追踪状态只在这里改，调度器从不动它。
func (h *Handler) setTrackedFromCallback(cb *tgbotapi.CallbackQuery, idText string, tracked bool, okText string) {
	tmdbID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		h.answerCallback(cb, "Invalid button data.")
		return
	}

	found, err := h.Repos.Movie.SetTracked(tmdbID, tracked)
	if err != nil {
		log.Printf("[Handler] 更新追踪标记失败 (TMDB ID: %d): %v", tmdbID, err)
		h.answerCallback(cb, "Something went wrong, please try again.")
		return
	}
	if !found {
		h.answerCallback(cb, "This movie is no longer in the database.")
		return
	}
	h.answerCallback(cb, okText)
}

// addPendingTitles 取回挂在按钮上的片名列表并入库
func (h *Handler) addPendingTitles(cb *tgbotapi.CallbackQuery, key string) {
	titles, ok := h.pending.Get(key)
	if !ok {
		// 过期或被挤出缓存
		h.answerCallback(cb, "This button has expired, please send the link again.")
		return
	}
	h.pending.Delete(key)
	h.answerCallback(cb, fmt.Sprintf("Adding %d movie(s)...", len(titles)))

	result := h.Ingest.SearchAndSaveTitles(titles)

	var b strings.Builder
	if len(result.Saved) > 0 {
		b.WriteString(fmt.Sprintf("✅ Saved %d movie(s):\n", len(result.Saved)))
		for _, title := range result.Saved {
			b.WriteString("• " + title + "\n")
		}
	}
	if len(result.Failed) > 0 {
		b.WriteString(fmt.Sprintf("❌ Couldn't find %d title(s):\n", len(result.Failed)))
		for _, title := range result.Failed {
			b.WriteString("• " + title + "\n")
		}
	}

	if cb.Message != nil {
		h.reply(cb.Message.Chat.ID, b.String())
	}
}
