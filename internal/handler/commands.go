package handler

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/cinealert/internal/model"
)

const helpText = "Available commands:\n" +
	"/start - Start the bot\n" +
	"/help - Show this help message\n" +
	"/random - Get a random movie suggestion\n" +
	"/watchlist - View your watchlist\n\n" +
	"You can also send me a movie title or a link to an Instagram post!"

func (h *Handler) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.reply(msg.Chat.ID, "👋 Welcome! Type /help for guidance.")
	case "help":
		h.reply(msg.Chat.ID, helpText)
	case "random":
		h.cmdRandom(msg)
	case "watchlist":
		h.cmdWatchlist(msg)
	case "check":
		h.cmdCheck(msg)
	case "upcoming":
		h.cmdUpcoming(msg)
	default:
		h.reply(msg.Chat.ID, "Unknown command. Type /help for guidance.")
	}
}

// formatMovieTextForUser 给聊天用户的电影信息排版（比频道帖子简短）
func formatMovieTextForUser(movie *model.Movie) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎬 <b>%s</b>\n\n", movie.Title))
	if movie.ReleaseDate != nil {
		b.WriteString(fmt.Sprintf("📅 <b>Release Date:</b> %s\n", movie.ReleaseDateString()))
	}
	if movie.VoteAverage > 0 {
		b.WriteString(fmt.Sprintf("⭐ <b>Rating:</b> %.1f/10\n", movie.VoteAverage))
	}
	if len(movie.Genres) > 0 {
		b.WriteString(fmt.Sprintf("🎭 <b>Genres:</b> %s\n", strings.Join(movie.Genres, ", ")))
	}
	if movie.Overview != "" {
		overview := movie.Overview
		if runes := []rune(overview); len(runes) > 300 {
			overview = string(runes[:297]) + "..."
		}
		b.WriteString(fmt.Sprintf("\n📝 <b>Overview:</b>\n%s\n", overview))
	}
	return b.String()
}

// sendMovieCard 给用户发一张电影卡片，带一个操作按钮
func (h *Handler) sendMovieCard(chatID int64, movie *model.Movie, buttonText, callbackData string) {
	caption := formatMovieTextForUser(movie)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonText, callbackData),
		),
	)

	if movie.PosterURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(movie.PosterURL))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard
		if _, err := h.Bot.Send(photo); err == nil {
			return
		}
		// 海报失败时退化成文本
	}

	msg := tgbotapi.NewMessage(chatID, caption)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := h.Bot.Send(msg); err != nil {
		log.Printf("[Handler] 发送电影卡片失败: %v", err)
	}
}

func (h *Handler) cmdRandom(msg *tgbotapi.Message) {
	movie, err := h.Repos.Movie.FindRandom()
	if err != nil {
		log.Printf("[Handler] 随机查询失败: %v", err)
		h.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if movie == nil {
		h.reply(msg.Chat.ID, "There are no movies in the database yet.")
		return
	}

	h.sendMovieCard(msg.Chat.ID, movie,
		"➕ Add to Watchlist", fmt.Sprintf("watchlist_add_%d", movie.TMDBID))
}

func (h *Handler) cmdWatchlist(msg *tgbotapi.Message) {
	movies, err := h.Repos.Movie.FindAll(true)
	if err != nil {
		log.Printf("[Handler] 查询追踪列表失败: %v", err)
		h.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if len(movies) == 0 {
		h.reply(msg.Chat.ID, "Your watchlist is empty. You can add movies by searching for them or sending an Instagram link.")
		return
	}

	h.reply(msg.Chat.ID, fmt.Sprintf("You have %d movie(s) in your watchlist:", len(movies)))
	for i := range movies {
		h.sendMovieCard(msg.Chat.ID, &movies[i],
			"🗑️ Remove from Watchlist", fmt.Sprintf("watchlist_remove_%d", movies[i].TMDBID))
	}
}

// cmdCheck 管理员手动触发一轮巡检
func (h *Handler) cmdCheck(msg *tgbotapi.Message) {
	if !h.isAdmin(msg.Chat.ID) {
		h.reply(msg.Chat.ID, "Sorry, this command is for admins only.")
		return
	}

	h.reply(msg.Chat.ID, "⏳ Checking tracked movies...")
	updates, err := h.Scheduler.ForceCheckNow()
	if err != nil {
		log.Printf("[Handler] 手动巡检失败: %v", err)
		h.reply(msg.Chat.ID, "The check failed, see the logs for details.")
		return
	}
	h.reply(msg.Chat.ID, fmt.Sprintf("✅ Check finished, found updates for %d movie(s).", updates))
}

// cmdUpcoming 管理员拉取即将上映的电影并发布到频道
func (h *Handler) cmdUpcoming(msg *tgbotapi.Message) {
	if !h.isAdmin(msg.Chat.ID) {
		h.reply(msg.Chat.ID, "Sorry, this command is for admins only.")
		return
	}

	h.reply(msg.Chat.ID, "⏳ Fetching upcoming movies...")
	movies, err := h.Ingest.FetchUpcoming(1, 10)
	if err != nil {
		log.Printf("[Handler] 拉取即将上映失败: %v", err)
		h.reply(msg.Chat.ID, "Couldn't fetch upcoming movies, please try again later.")
		return
	}
	if len(movies) == 0 {
		h.reply(msg.Chat.ID, "No new upcoming movies found.")
		return
	}

	sent, failed := h.Channel.SendBulkMovies(movies, h.Config.PostDelay)
	h.reply(msg.Chat.ID, fmt.Sprintf("📤 Published %d movie(s) to the channel (%d failed).", sent, failed))
}
