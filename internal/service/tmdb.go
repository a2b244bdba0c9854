package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/user/cinealert/internal/utils"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// TMDBClient TMDB API 客户端
type TMDBClient struct {
	token  string
	client *http.Client
}

// NewTMDBClient 创建 TMDB 客户端
func NewTMDBClient(token string) *TMDBClient {
	return &TMDBClient{
		token: token,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// MovieSummary 搜索/列表接口返回的条目
type MovieSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// MovieDetail 详情接口返回的电影数据
type MovieDetail struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
	PosterPath string `json:"poster_path"`
}

// PosterURL 拼出完整海报地址，无海报时返回空串
func (d *MovieDetail) PosterURL() string {
	if d.PosterPath == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/original" + d.PosterPath
}

// CreditEntry 演职人员条目
type CreditEntry struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	ProfilePath        string `json:"profile_path"`
	KnownForDepartment string `json:"known_for_department"`
	Character          string `json:"character"`
	Order              int    `json:"order"`
	Job                string `json:"job"`
	Department         string `json:"department"`
}

// MovieCredits 演职人员接口返回
type MovieCredits struct {
	Cast []CreditEntry `json:"cast"`
	Crew []CreditEntry `json:"crew"`
}

func (c *TMDBClient) getJSON(path string, target interface{}) error {
	req, err := http.NewRequest("GET", tmdbBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("请求返回状态码: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

type searchResponse struct {
	Results []MovieSummary `json:"results"`
}

// SearchMovie 按标题搜索，返回 TMDB 排序的第一个结果；没有结果时返回 (nil, nil)。
// 同一关键词的结果短暂缓存，抵消聊天里反复搜同一部片的请求。
func (c *TMDBClient) SearchMovie(query string) (*MovieSummary, error) {
	cacheKey := "tmdb:search:" + query
	if cached, ok := utils.CacheGet(cacheKey); ok {
		if summary, ok := cached.(*MovieSummary); ok {
			return summary, nil
		}
	}

	var result searchResponse
	path := "/search/movie?query=" + url.QueryEscape(query)
	if err := c.getJSON(path, &result); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, nil
	}

	first := result.Results[0]
	utils.CacheSet(cacheKey, &first, 5*time.Minute)
	return &first, nil
}

// GetMovieDetail 获取电影详情。巡检也走这里，所以不做缓存，保证拿到的是新鲜数据。
func (c *TMDBClient) GetMovieDetail(tmdbID int64) (*MovieDetail, error) {
	var result MovieDetail
	if err := c.getJSON(fmt.Sprintf("/movie/%d", tmdbID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMovieCredits 获取演职人员名单
func (c *TMDBClient) GetMovieCredits(tmdbID int64) (*MovieCredits, error) {
	var result MovieCredits
	if err := c.getJSON(fmt.Sprintf("/movie/%d/credits", tmdbID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetUpcoming 获取即将上映列表的一页
func (c *TMDBClient) GetUpcoming(page int) ([]MovieSummary, error) {
	if page < 1 {
		page = 1
	}
	var result searchResponse
	if err := c.getJSON(fmt.Sprintf("/movie/upcoming?page=%d", page), &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}
