package handler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var instagramPostRegex = regexp.MustCompile(`(?:https?://)?(?:www\.)?instagram\.com/(?:p|reel|tv)/([a-zA-Z0-9_-]+)`)

// handleText 处理普通文本：Instagram 链接走文案提取，其余一律当片名搜索
func (h *Handler) handleText(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if match := instagramPostRegex.FindStringSubmatch(text); match != nil {
		h.handleInstagramLink(msg, match[1])
		return
	}

	h.reply(msg.Chat.ID, fmt.Sprintf("🔍 Searching for “%s”...", text))
	result := h.Ingest.SearchAndSaveTitles([]string{text})

	if len(result.Saved) > 0 {
		h.reply(msg.Chat.ID, fmt.Sprintf("✅ “%s” was found and saved.", result.Saved[0]))
	} else {
		h.reply(msg.Chat.ID, fmt.Sprintf("❌ No movie found with the title “%s”.", text))
	}
}

// handleInstagramLink 抓取帖子文案、识别片名，把结果挂在一次性按钮上
func (h *Handler) handleInstagramLink(msg *tgbotapi.Message, shortcode string) {
	h.reply(msg.Chat.ID, "⏳ Processing the link...")

	caption, err := h.Reel.FetchPostCaption(shortcode)
	if err != nil {
		log.Printf("[Handler] 抓取帖子文案失败 (%s): %v", shortcode, err)
		h.reply(msg.Chat.ID, "Couldn't read the post caption.")
		return
	}

	titles, err := h.Reel.ExtractMovieTitles(caption)
	if err != nil {
		log.Printf("[Handler] 提取片名失败 (%s): %v", shortcode, err)
		h.reply(msg.Chat.ID, "Couldn't analyze the caption, please try again later.")
		return
	}
	if len(titles) == 0 {
		h.reply(msg.Chat.ID, "No movie titles were found in the caption.")
		return
	}

	// 片名列表放进关联缓存，按钮里只带 key
	key := newCorrelationKey()
	h.pending.Set(key, titles)

	var b strings.Builder
	b.WriteString("These movies were found in the post:\n\n")
	for _, title := range titles {
		b.WriteString("• " + title + "\n")
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, b.String())
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add to database", "add_to_db_"+key),
		),
	)
	if _, err := h.Bot.Send(reply); err != nil {
		log.Printf("[Handler] 回复失败: %v", err)
	}
}

func newCorrelationKey() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
