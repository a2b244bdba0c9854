package handler

import (
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/cinealert/internal/config"
	"github.com/user/cinealert/internal/repository"
	"github.com/user/cinealert/internal/service"
	"github.com/user/cinealert/internal/utils"
)

// Handler 聊天入口。只做命令解析和回复，引擎逻辑都在 service 层。
type Handler struct {
	Bot       *tgbotapi.BotAPI
	Repos     *repository.Repositories
	Config    *config.Config
	Ingest    *service.IngestService
	Scheduler *service.UpdateScheduler
	Channel   *service.ChannelService
	Reel      *service.ReelService

	// 回调按钮放不下的数据暂存在这里，按一次性 key 关联
	pending *utils.CorrelationCache[[]string]
}

// NewHandler 创建聊天处理器
func NewHandler(
	bot *tgbotapi.BotAPI,
	repos *repository.Repositories,
	cfg *config.Config,
	ingest *service.IngestService,
	scheduler *service.UpdateScheduler,
	channel *service.ChannelService,
	reel *service.ReelService,
) *Handler {
	return &Handler{
		Bot:       bot,
		Repos:     repos,
		Config:    cfg,
		Ingest:    ingest,
		Scheduler: scheduler,
		Channel:   channel,
		Reel:      reel,
		pending:   utils.NewCorrelationCache[[]string](256, 30*time.Minute),
	}
}

// HandleUpdate 分发一条 Telegram 更新
func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Handler] 处理更新发生恐慌: %v", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		h.handleCommand(update.Message)
	case update.Message != nil && update.Message.Text != "":
		h.handleText(update.Message)
	}
}

// reply 给聊天回一条 HTML 消息，失败只记日志
func (h *Handler) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.Bot.Send(msg); err != nil {
		log.Printf("[Handler] 回复失败: %v", err)
	}
}

// isAdmin 是否来自管理员会话
func (h *Handler) isAdmin(chatID int64) bool {
	return h.Config.AdminChatID != 0 && chatID == h.Config.AdminChatID
}
