package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/user/cinealert/internal/config"
	"github.com/user/cinealert/internal/handler"
	"github.com/user/cinealert/internal/middleware"
	"github.com/user/cinealert/internal/repository"
	"github.com/user/cinealert/internal/router"
	"github.com/user/cinealert/internal/service"
	"github.com/user/cinealert/internal/utils"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()

	// 初始化数据库
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	// 初始化仓库
	repos := repository.NewRepositories(db)

	// 初始化缓存
	utils.InitCache()

	// 初始化 Telegram Bot
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("Telegram Bot 初始化失败: %v", err)
	}
	log.Printf("Bot 已登录: @%s", bot.Self.UserName)

	// 初始化服务
	tmdb := service.NewTMDBClient(cfg.TMDBToken)
	ingest := service.NewIngestService(tmdb, repos.Movie)
	channel := service.NewChannelService(bot, cfg.ChannelID)
	reel := service.NewReelService(cfg.GeminiKey)

	thresholds := service.Thresholds{
		RatingDelta:     cfg.RatingDelta,
		PopularityRatio: cfg.PopularityRatio,
	}
	scheduler := service.NewUpdateScheduler(
		repos.Movie, tmdb, channel, thresholds,
		cfg.CheckInterval, cfg.RetryDelay, cfg.PostDelay,
	)

	// 初始化 Handler
	h := handler.NewHandler(bot, repos, cfg, ingest, scheduler, channel, reel)

	// 启动巡检循环
	scheduler.Start()

	// 初始化 Gin（管理 API）
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.Logger())
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("管理 API 启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("管理 API 启动失败: %v", err)
		}
	}()

	// 长轮询接收 Telegram 更新
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := bot.GetUpdatesChan(updateConfig)

	go func() {
		for update := range updates {
			h.HandleUpdate(update)
		}
	}()

	// 等待中断信号以优雅地关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭...")

	// 先停调度器和长轮询，再关 HTTP
	scheduler.Stop()
	bot.StopReceivingUpdates()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("管理 API 强制关闭:", err)
	}

	log.Println("已退出")
}
