package service

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/user/cinealert/internal/model"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// catalogAPI 上游目录接口，由 TMDBClient 实现
type catalogAPI interface {
	SearchMovie(query string) (*MovieSummary, error)
	GetMovieDetail(tmdbID int64) (*MovieDetail, error)
	GetMovieCredits(tmdbID int64) (*MovieCredits, error)
	GetUpcoming(page int) ([]MovieSummary, error)
}

// movieStore 入库所需的存储操作
type movieStore interface {
	FindByTMDBID(tmdbID int64) (*model.Movie, error)
	SaveWithCredits(movie *model.Movie, cast []model.CastCredit, crew []model.CrewCredit) error
}

// IngestService 负责把上游电影数据落库。
// 电影只能经由这里入库，调度器和聊天入口都不直接建行。
type IngestService struct {
	catalog catalogAPI
	movies  movieStore
	group   singleflight.Group
}

// NewIngestService 创建入库服务
func NewIngestService(catalog catalogAPI, movies movieStore) *IngestService {
	return &IngestService{
		catalog: catalog,
		movies:  movies,
	}
}

// IngestResult 入库结果。Created 为 false 表示该片之前已存在。
type IngestResult struct {
	Movie   *model.Movie
	Created bool
}

// SearchByTitle 按标题搜索，返回上游排序的第一个候选。
// 搜索失败按没搜到处理：记日志，不向调用方抛错。
func (s *IngestService) SearchByTitle(query string) *MovieSummary {
	summary, err := s.catalog.SearchMovie(query)
	if err != nil {
		log.Printf("[Ingest] 搜索失败 (%q): %v", query, err)
		return nil
	}
	return summary
}

// FetchAndPersist 拉取电影详情和演职人员并落库。
// 使用 singleflight 避免并发重复抓取同一部片。
func (s *IngestService) FetchAndPersist(tmdbID int64) (*IngestResult, error) {
	val, err, _ := s.group.Do(strconv.FormatInt(tmdbID, 10), func() (interface{}, error) {
		return s.fetchAndPersistInternal(tmdbID)
	})
	if err != nil {
		return nil, err
	}
	return val.(*IngestResult), nil
}

func (s *IngestService) fetchAndPersistInternal(tmdbID int64) (*IngestResult, error) {
	// 先查库：已存在就不必再花两次上游调用
	existing, err := s.movies.FindByTMDBID(tmdbID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &IngestResult{Movie: existing, Created: false}, nil
	}

	detail, err := s.catalog.GetMovieDetail(tmdbID)
	if err != nil {
		return nil, err
	}
	credits, err := s.catalog.GetMovieCredits(tmdbID)
	if err != nil {
		return nil, err
	}

	movie := mapDetailToMovie(detail)
	cast, crew := mapCredits(credits)

	if err := s.movies.SaveWithCredits(movie, cast, crew); err != nil {
		// 提交时撞上唯一约束说明有人抢先插入了同一部片：
		// 事务已回滚，读回赢家的那一行即可，不当成错误
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			winner, readErr := s.movies.FindByTMDBID(tmdbID)
			if readErr != nil {
				return nil, readErr
			}
			if winner != nil {
				return &IngestResult{Movie: winner, Created: false}, nil
			}
		}
		return nil, err
	}

	return &IngestResult{Movie: movie, Created: true}, nil
}

// SaveSummary 批量入库的结果摘要
type SaveSummary struct {
	Saved  []string `json:"saved"`
	Failed []string `json:"failed"`
}

// SearchAndSaveTitles 逐个搜索并落库一组片名。
// 串行处理以免打爆上游限流。已存在的片按成功计，报告库里的标题。
func (s *IngestService) SearchAndSaveTitles(titles []string) SaveSummary {
	summary := SaveSummary{}

	for _, title := range titles {
		match := s.SearchByTitle(title)
		if match == nil {
			summary.Failed = append(summary.Failed, title)
			continue
		}

		result, err := s.FetchAndPersist(match.ID)
		if err != nil {
			log.Printf("[Ingest] 保存失败 (%q): %v", title, err)
			summary.Failed = append(summary.Failed, title)
			continue
		}
		summary.Saved = append(summary.Saved, result.Movie.Title)
	}

	return summary
}

// FetchUpcoming 拉取一页即将上映的电影并落库，只返回本次新建的记录。
// limit 大于 0 时截断处理条数。已存在的片跳过，单片失败不中断整页。
func (s *IngestService) FetchUpcoming(page, limit int) ([]model.Movie, error) {
	items, err := s.catalog.GetUpcoming(page)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	var saved []model.Movie
	for _, item := range items {
		result, err := s.FetchAndPersist(item.ID)
		if err != nil {
			log.Printf("[Ingest] 保存即将上映电影失败 (TMDB ID: %d): %v", item.ID, err)
			continue
		}
		if result.Created {
			saved = append(saved, *result.Movie)
		}
	}
	return saved, nil
}

// mapDetailToMovie 把上游详情映射成本地电影行
func mapDetailToMovie(detail *MovieDetail) *model.Movie {
	movie := &model.Movie{
		TMDBID:      detail.ID,
		Title:       detail.Title,
		Overview:    detail.Overview,
		Popularity:  detail.Popularity,
		VoteAverage: detail.VoteAverage,
		PosterURL:   detail.PosterURL(),
	}

	if detail.ReleaseDate != "" {
		if d, err := time.Parse("2006-01-02", detail.ReleaseDate); err == nil {
			movie.ReleaseDate = &d
		}
	}

	genres := make(pq.StringArray, 0, len(detail.Genres))
	for _, g := range detail.Genres {
		genres = append(genres, g.Name)
	}
	movie.Genres = genres

	return movie
}

// mapCredits 把演职人员名单映射成入库条目
func mapCredits(credits *MovieCredits) ([]model.CastCredit, []model.CrewCredit) {
	var cast []model.CastCredit
	var crew []model.CrewCredit

	for _, c := range credits.Cast {
		cast = append(cast, model.CastCredit{
			Person: model.Person{
				TMDBID:             c.ID,
				Name:               c.Name,
				ProfileURL:         c.ProfilePath,
				KnownForDepartment: c.KnownForDepartment,
			},
			CharacterName: c.Character,
			CastOrder:     c.Order,
		})
	}

	for _, c := range credits.Crew {
		crew = append(crew, model.CrewCredit{
			Person: model.Person{
				TMDBID:             c.ID,
				Name:               c.Name,
				ProfileURL:         c.ProfilePath,
				KnownForDepartment: c.KnownForDepartment,
			},
			Job:        c.Job,
			Department: c.Department,
		})
	}

	return cast, crew
}
