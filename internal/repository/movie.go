package repository

import (
	"errors"

	"github.com/user/cinealert/internal/model"
	"gorm.io/gorm"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByTMDBID 根据 TMDB ID 查找电影，不存在时返回 (nil, nil)
func (r *MovieRepository) FindByTMDBID(tmdbID int64) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Where("tmdb_id = ?", tmdbID).First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movie, nil
}

// FindByID 根据本地 ID 查找电影
func (r *MovieRepository) FindByID(id int) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.First(&movie, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movie, nil
}

// FindTracked 查询所有被追踪的电影，按入库顺序返回
func (r *MovieRepository) FindTracked() ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.Where("is_tracked = ?", true).Order("id").Find(&movies).Error
	return movies, err
}

// FindAll 查询电影列表，tracked 为 true 时只返回追踪中的
func (r *MovieRepository) FindAll(trackedOnly bool) ([]model.Movie, error) {
	var movies []model.Movie
	q := r.db.Order("created_at DESC")
	if trackedOnly {
		q = q.Where("is_tracked = ?", true)
	}
	err := q.Find(&movies).Error
	return movies, err
}

// FindRandom 随机返回一部电影，库为空时返回 (nil, nil)
func (r *MovieRepository) FindRandom() (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Order("RANDOM()").Limit(1).First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movie, nil
}

// SetTracked 设置追踪标记，返回是否命中了记录
func (r *MovieRepository) SetTracked(tmdbID int64, tracked bool) (bool, error) {
	res := r.db.Model(&model.Movie{}).
		Where("tmdb_id = ?", tmdbID).
		Update("is_tracked", tracked)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SaveWithCredits 在一个事务内保存电影及其演职人员关联。
// 人物按 TMDB ID 复用已有行。唯一约束冲突原样返回，由调用方决定如何收场。
func (r *MovieRepository) SaveWithCredits(movie *model.Movie, cast []model.CastCredit, crew []model.CrewCredit) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(movie).Error; err != nil {
			return err
		}

		people := NewPersonRepository(tx)

		for _, c := range cast {
			person, err := people.GetOrCreate(&c.Person)
			if err != nil {
				return err
			}
			entry := model.MovieCast{
				MovieID:       movie.ID,
				PersonID:      person.ID,
				CharacterName: c.CharacterName,
				CastOrder:     c.CastOrder,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		for _, c := range crew {
			person, err := people.GetOrCreate(&c.Person)
			if err != nil {
				return err
			}
			entry := model.MovieCrew{
				MovieID:    movie.ID,
				PersonID:   person.ID,
				Job:        c.Job,
				Department: c.Department,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
