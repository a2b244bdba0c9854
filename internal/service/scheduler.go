package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/user/cinealert/internal/model"
)

// trackedMovieStore 调度器需要的存储操作
type trackedMovieStore interface {
	FindTracked() ([]model.Movie, error)
}

// detailFetcher 巡检用的只读详情拉取，由 TMDBClient 实现。
// 巡检不走入库路径：只重读，不重存。
type detailFetcher interface {
	GetMovieDetail(tmdbID int64) (*MovieDetail, error)
}

// updateNotifier 通知出口，由 ChannelService 实现
type updateNotifier interface {
	SendUpdateNotice(movie *model.Movie, notes []ChangeNote) error
	SendStatusMessage(text string) error
}

// UpdateScheduler 追踪电影的定时巡检器。
// 只有两个状态：停止、运行中。停止是协作式的，只在循环边界生效。
type UpdateScheduler struct {
	movies     trackedMovieStore
	catalog    detailFetcher
	notifier   updateNotifier
	thresholds Thresholds

	interval   time.Duration // 巡检间隔
	retryDelay time.Duration // 巡检失败后的等待
	postDelay  time.Duration // 相邻两部电影之间的间隔

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewUpdateScheduler 创建调度器
func NewUpdateScheduler(
	movies trackedMovieStore,
	catalog detailFetcher,
	notifier updateNotifier,
	thresholds Thresholds,
	interval, retryDelay, postDelay time.Duration,
) *UpdateScheduler {
	if interval == 0 {
		interval = 24 * time.Hour
	}
	if retryDelay == 0 {
		retryDelay = time.Hour
	}
	return &UpdateScheduler{
		movies:     movies,
		catalog:    catalog,
		notifier:   notifier,
		thresholds: thresholds,
		interval:   interval,
		retryDelay: retryDelay,
		postDelay:  postDelay,
	}
}

// Start 启动巡检循环。重复调用是空操作。
func (s *UpdateScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stopCh, s.done)
	log.Println("[Scheduler] 巡检循环已启动")
}

// Stop 请求停止。不打断正在进行的巡检，当前周期结束后退出。
func (s *UpdateScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	log.Println("[Scheduler] 巡检循环已停止")
}

// IsRunning 当前是否处于运行状态
func (s *UpdateScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *UpdateScheduler) loop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		delay := s.interval
		if _, err := s.runCycleSafe(); err != nil {
			// 巡检失败不能杀死循环：记日志，缩短等待后重试
			log.Printf("[Scheduler] 巡检失败: %v", err)
			delay = s.retryDelay
		}

		select {
		case <-stopCh:
			return
		case <-time.After(delay):
		}
	}
}

// runCycleSafe 把 panic 也收敛成错误，保证循环不被任何一轮巡检终止
func (s *UpdateScheduler) runCycleSafe() (updates int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("巡检发生恐慌: %v", r)
		}
	}()
	return s.RunCycle()
}

// ForceCheckNow 手动触发一轮巡检，同步执行，返回发现更新的电影数
func (s *UpdateScheduler) ForceCheckNow() (int, error) {
	log.Println("[Scheduler] 手动触发巡检")
	return s.RunCycle()
}

// RunCycle 对所有追踪中的电影做一轮巡检。
// 单片失败按无更新处理，不影响其余电影。
func (s *UpdateScheduler) RunCycle() (int, error) {
	movies, err := s.movies.FindTracked()
	if err != nil {
		return 0, err
	}
	if len(movies) == 0 {
		log.Println("[Scheduler] 没有追踪中的电影")
		return 0, nil
	}

	log.Printf("[Scheduler] 开始巡检 %d 部追踪中的电影", len(movies))

	updates := 0
	for i := range movies {
		if i > 0 && s.postDelay > 0 {
			// 相邻请求之间留间隔，尊重上游限流
			time.Sleep(s.postDelay)
		}
		if s.checkMovie(&movies[i]) {
			updates++
		}
	}

	// 有更新才发汇总，零更新保持安静
	if updates > 0 {
		summary := fmt.Sprintf(
			"📱 <b>Daily Movie Update Summary</b>\n\n"+
				"Found updates for %d tracked movie(s)!\n"+
				"Check the messages above for details.", updates)
		if err := s.notifier.SendStatusMessage(summary); err != nil {
			log.Printf("[Scheduler] 发送汇总消息失败: %v", err)
		}
	} else {
		log.Println("[Scheduler] 本轮没有发现更新")
	}

	return updates, nil
}

// checkMovie 巡检单部电影，发现显著变更时立刻推送。
// 返回是否发现了更新。
func (s *UpdateScheduler) checkMovie(movie *model.Movie) bool {
	fresh, err := s.catalog.GetMovieDetail(movie.TMDBID)
	if err != nil {
		// 拉取失败按"本轮无更新"处理
		log.Printf("[Scheduler] 拉取电影失败 (%s): %v", movie.Title, err)
		return false
	}
	if fresh == nil {
		return false
	}

	notes := DetectChanges(movie, fresh, s.thresholds)
	if len(notes) == 0 {
		return false
	}

	if err := s.notifier.SendUpdateNotice(movie, notes); err != nil {
		log.Printf("[Scheduler] 发送更新通知失败 (%s): %v", movie.Title, err)
	} else {
		log.Printf("[Scheduler] 已发送更新通知: %s", movie.Title)
	}
	return true
}
