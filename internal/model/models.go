package model

import (
	"time"

	"github.com/lib/pq"
)

// Movie 电影模型（TMDB 信息快照）
type Movie struct {
	ID          int            `json:"id" gorm:"primaryKey"`
	TMDBID      int64          `json:"tmdb_id" gorm:"column:tmdb_id;uniqueIndex;not null"`
	Title       string         `json:"title" gorm:"not null"`
	Overview    string         `json:"overview"`
	ReleaseDate *time.Time     `json:"release_date" gorm:"type:date"`
	Popularity  float64        `json:"popularity"`
	VoteAverage float64        `json:"vote_average"`
	Genres      pq.StringArray `json:"genres" gorm:"type:text[]"`
	PosterURL   string         `json:"poster_url" gorm:"column:poster_url"`
	IsTracked   bool           `json:"is_tracked" gorm:"index;default:false"`
	CreatedAt   time.Time      `json:"created_at"`

	// 关联随电影级联删除，人物本身保留
	Cast []MovieCast `json:"-" gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
	Crew []MovieCrew `json:"-" gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (Movie) TableName() string { return "movies" }

// ReleaseDateString 返回 YYYY-MM-DD 格式的上映日期，未知时返回空串
func (m *Movie) ReleaseDateString() string {
	if m.ReleaseDate == nil {
		return ""
	}
	return m.ReleaseDate.Format("2006-01-02")
}

// Person 人物（演员/剧组成员），按 TMDB ID 全局唯一，不随电影重复建行
type Person struct {
	ID                 int    `json:"id" gorm:"primaryKey"`
	TMDBID             int64  `json:"tmdb_id" gorm:"column:tmdb_id;uniqueIndex;not null"`
	Name               string `json:"name" gorm:"not null"`
	ProfileURL         string `json:"profile_url" gorm:"column:profile_url"`
	KnownForDepartment string `json:"known_for_department"`
}

// TableName 指定表名
func (Person) TableName() string { return "people" }

// MovieCast 演员关联，归属于电影：删除电影时级联删除关联，不删人物
type MovieCast struct {
	ID            int    `json:"id" gorm:"primaryKey"`
	MovieID       int    `json:"movie_id" gorm:"index"`
	PersonID      int    `json:"person_id"`
	CharacterName string `json:"character_name"`
	CastOrder     int    `json:"cast_order"`
}

// TableName 指定表名
func (MovieCast) TableName() string { return "movie_cast" }

// CastCredit 入库用的演员名单条目（人物 + 角色信息）
type CastCredit struct {
	Person        Person
	CharacterName string
	CastOrder     int
}

// CrewCredit 入库用的剧组名单条目
type CrewCredit struct {
	Person     Person
	Job        string
	Department string
}

// MovieCrew 剧组关联
type MovieCrew struct {
	ID         int    `json:"id" gorm:"primaryKey"`
	MovieID    int    `json:"movie_id" gorm:"index"`
	PersonID   int    `json:"person_id"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

// TableName 指定表名
func (MovieCrew) TableName() string { return "movie_crew" }
