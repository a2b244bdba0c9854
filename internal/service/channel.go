package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/cinealert/internal/model"
)

// botSender Telegram 发送接口，*tgbotapi.BotAPI 直接满足
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChannelService 负责把电影消息发到广播频道
type ChannelService struct {
	bot       botSender
	channelID int64
}

// NewChannelService 创建频道服务
func NewChannelService(bot botSender, channelID int64) *ChannelService {
	return &ChannelService{
		bot:       bot,
		channelID: channelID,
	}
}

// FormatMovieText 把电影信息排版成频道帖子
func FormatMovieText(movie *model.Movie) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎬 <b>%s</b>\n\n", movie.Title))

	if movie.ReleaseDate != nil {
		b.WriteString(fmt.Sprintf("📅 <b>Release Date:</b> %s\n", movie.ReleaseDate.Format("January 2, 2006")))
	}

	if movie.VoteAverage > 0 {
		stars := int(movie.VoteAverage/2 + 0.5)
		if stars < 1 {
			stars = 1
		}
		if stars > 5 {
			stars = 5
		}
		b.WriteString(fmt.Sprintf("⭐ <b>Rating:</b> %.1f/10 %s\n", movie.VoteAverage, strings.Repeat("⭐", stars)))
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

	if movie.Popularity > 0 {
		b.WriteString(fmt.Sprintf("\n🔥 <b>Popularity:</b> %.1f\n", movie.Popularity))
	}

	b.WriteString("\n🎥 <i>Follow this movie to get updates!</i>")
	return b.String()
}

func followKeyboard(tmdbID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 Follow Movie", fmt.Sprintf("follow_movie_%d", tmdbID)),
		),
	)
}

// SendMoviePost 发一条带海报和追踪按钮的电影帖子。
// 海报发送失败时退化成纯文本，不让一张坏图拦下整条消息。
func (s *ChannelService) SendMoviePost(movie *model.Movie) error {
	text := FormatMovieText(movie)
	keyboard := followKeyboard(movie.TMDBID)

	if movie.PosterURL != "" {
		photo := tgbotapi.NewPhoto(s.channelID, tgbotapi.FileURL(movie.PosterURL))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard

		if _, err := s.bot.Send(photo); err == nil {
			return nil
		} else {
			log.Printf("[Channel] 发送海报失败 (%s): %v，改发纯文本", movie.Title, err)
		}
	}

	msg := tgbotapi.NewMessage(s.channelID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("发送电影帖子失败: %w", err)
	}
	return nil
}

// SendUpdateNotice 推送一部电影的变更通知
func (s *ChannelService) SendUpdateNotice(movie *model.Movie, notes []ChangeNote) error {
	var lines []string
	for _, n := range notes {
		switch n.Field {
		case FieldReleaseDate:
			lines = append(lines, fmt.Sprintf("📅 Release date changed: %s → %s", n.Old, n.New))
		case FieldRating:
			lines = append(lines, fmt.Sprintf("⭐ Rating updated: %s/10 → %s/10", n.Old, n.New))
		case FieldPopularity:
			arrow := "📈"
			if n.Direction == "decrease" {
				arrow = "📉"
			}
			lines = append(lines, fmt.Sprintf("%s Popularity changed: %s → %s", arrow, n.Old, n.New))
		}
	}

	text := fmt.Sprintf(
		"🔔 <b>Movie Update: %s</b>\n\n%s\n\n<i>Last checked: %s</i>",
		movie.Title,
		strings.Join(lines, "\n"),
		time.Now().Format("2006-01-02 15:04"),
	)
	return s.SendStatusMessage(text)
}

// SendStatusMessage 发一条纯文本状态消息到频道
func (s *ChannelService) SendStatusMessage(text string) error {
	msg := tgbotapi.NewMessage(s.channelID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("发送状态消息失败: %w", err)
	}
	return nil
}

// SendBulkMovies 按固定间隔逐条发送一批电影，返回成功/失败计数。
// 单条失败只计数，不中断剩余条目。
func (s *ChannelService) SendBulkMovies(movies []model.Movie, delay time.Duration) (sent, failed int) {
	for i := range movies {
		if err := s.SendMoviePost(&movies[i]); err != nil {
			log.Printf("[Channel] 发送失败 (%s): %v", movies[i].Title, err)
			failed++
		} else {
			sent++
		}

		// 最后一条之后不必再等
		if delay > 0 && i < len(movies)-1 {
			time.Sleep(delay)
		}
	}

	log.Printf("[Channel] 批量发送完成: %d 成功, %d 失败", sent, failed)
	return sent, failed
}
