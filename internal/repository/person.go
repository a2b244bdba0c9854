package repository

import (
	"errors"

	"github.com/user/cinealert/internal/model"
	"gorm.io/gorm"
)

type PersonRepository struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// FindByTMDBID 根据 TMDB ID 查找人物，不存在时返回 (nil, nil)
func (r *PersonRepository) FindByTMDBID(tmdbID int64) (*model.Person, error) {
	var person model.Person
	err := r.db.Where("tmdb_id = ?", tmdbID).First(&person).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &person, nil
}

// GetOrCreate 按 TMDB ID 复用或新建人物。
// 并发插入撞到唯一约束时改为读回已有行。
func (r *PersonRepository) GetOrCreate(person *model.Person) (*model.Person, error) {
	existing, err := r.FindByTMDBID(person.TMDBID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := r.db.Create(person).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindByTMDBID(person.TMDBID)
		}
		return nil, err
	}
	return person, nil
}
