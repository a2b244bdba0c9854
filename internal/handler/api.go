package handler

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/user/cinealert/internal/utils"
)

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":            "ok",
		"scheduler_running": h.Scheduler.IsRunning(),
	})
}

// ForceCheck 手动触发一轮巡检
func (h *Handler) ForceCheck(c *gin.Context) {
	updates, err := h.Scheduler.ForceCheckNow()
	if err != nil {
		log.Printf("[API] 手动巡检失败: %v", err)
		utils.InternalServerError(c, "巡检失败")
		return
	}
	utils.Success(c, gin.H{"updates": updates})
}

// ImportMoviesRequest 批量导入请求
type ImportMoviesRequest struct {
	Titles []string `json:"titles" binding:"required,min=1"`
}

// ImportMovies 按片名批量搜索并入库
func (h *Handler) ImportMovies(c *gin.Context) {
	var req ImportMoviesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "titles 不能为空")
		return
	}

	result := h.Ingest.SearchAndSaveTitles(req.Titles)
	utils.Success(c, result)
}

// PublishUpcomingRequest 发布即将上映请求
type PublishUpcomingRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PublishUpcoming 拉取即将上映的电影并发布到频道
func (h *Handler) PublishUpcoming(c *gin.Context) {
	var req PublishUpcomingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "请求格式不正确")
		return
	}

	movies, err := h.Ingest.FetchUpcoming(req.Page, req.Limit)
	if err != nil {
		log.Printf("[API] 拉取即将上映失败: %v", err)
		utils.InternalServerError(c, "拉取即将上映失败")
		return
	}

	sent, failed := h.Channel.SendBulkMovies(movies, h.Config.PostDelay)
	utils.Success(c, gin.H{
		"fetched": len(movies),
		"sent":    sent,
		"failed":  failed,
	})
}

// ListMovies 电影列表，?tracked=1 时只看追踪中的
func (h *Handler) ListMovies(c *gin.Context) {
	trackedOnly := c.Query("tracked") == "1"
	movies, err := h.Repos.Movie.FindAll(trackedOnly)
	if err != nil {
		log.Printf("[API] 查询电影列表失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, movies)
}
