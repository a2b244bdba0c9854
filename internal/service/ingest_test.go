package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinealert/internal/model"
	"gorm.io/gorm"
)

type fakeCatalog struct {
	mu            sync.Mutex
	searchResults map[string]*MovieSummary
	searchErrs    map[string]error
	details       map[int64]*MovieDetail
	credits       map[int64]*MovieCredits
	upcoming      []MovieSummary
	detailCalls   int
	creditCalls   int
}

func (f *fakeCatalog) SearchMovie(query string) (*MovieSummary, error) {
	if err := f.searchErrs[query]; err != nil {
		return nil, err
	}
	return f.searchResults[query], nil
}

func (f *fakeCatalog) GetMovieDetail(tmdbID int64) (*MovieDetail, error) {
	f.mu.Lock()
	f.detailCalls++
	f.mu.Unlock()
	if d, ok := f.details[tmdbID]; ok {
		return d, nil
	}
	return nil, errors.New("tmdb unreachable")
}

func (f *fakeCatalog) GetMovieCredits(tmdbID int64) (*MovieCredits, error) {
	f.mu.Lock()
	f.creditCalls++
	f.mu.Unlock()
	if c, ok := f.credits[tmdbID]; ok {
		return c, nil
	}
	return &MovieCredits{}, nil
}

func (f *fakeCatalog) GetUpcoming(page int) ([]MovieSummary, error) {
	return f.upcoming, nil
}

type fakeStore struct {
	mu     sync.Mutex
	rows   map[int64]*model.Movie
	nextID int

	// 非空时模拟并发写入者抢先提交：SaveWithCredits 返回唯一约束冲突，
	// 同时把赢家的行放进表里
	conflictWith *model.Movie
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[int64]*model.Movie{}}
}

func (f *fakeStore) FindByTMDBID(tmdbID int64) (*model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.rows[tmdbID]; ok {
		return m, nil
	}
	return nil, nil
}

func (f *fakeStore) SaveWithCredits(movie *model.Movie, cast []model.CastCredit, crew []model.CrewCredit) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conflictWith != nil {
		f.rows[f.conflictWith.TMDBID] = f.conflictWith
		f.conflictWith = nil
		return gorm.ErrDuplicatedKey
	}

	if _, ok := f.rows[movie.TMDBID]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.nextID++
	movie.ID = f.nextID
	f.rows[movie.TMDBID] = movie
	return nil
}

func seededDetail() *MovieDetail {
	d := &MovieDetail{
		ID:          42,
		Title:       "Inception",
		Overview:    "A thief who steals corporate secrets.",
		ReleaseDate: "2010-07-16",
		Popularity:  80.5,
		VoteAverage: 8.4,
		PosterPath:  "/poster.jpg",
	}
	d.Genres = append(d.Genres, struct {
		Name string `json:"name"`
	}{Name: "Sci-Fi"})
	return d
}

func TestFetchAndPersist_CreatesMovie(t *testing.T) {
	catalog := &fakeCatalog{details: map[int64]*MovieDetail{42: seededDetail()}}
	store := newFakeStore()
	svc := NewIngestService(catalog, store)

	result, err := svc.FetchAndPersist(42)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "Inception", result.Movie.Title)
	assert.Equal(t, int64(42), result.Movie.TMDBID)
	require.NotNil(t, result.Movie.ReleaseDate)
	assert.Equal(t, "2010-07-16", result.Movie.ReleaseDateString())
	assert.Equal(t, []string{"Sci-Fi"}, []string(result.Movie.Genres))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/poster.jpg", result.Movie.PosterURL)
	assert.Equal(t, 1, catalog.detailCalls)
	assert.Equal(t, 1, catalog.creditCalls)
}

func TestFetchAndPersist_Idempotent(t *testing.T) {
	catalog := &fakeCatalog{details: map[int64]*MovieDetail{42: seededDetail()}}
	store := newFakeStore()
	svc := NewIngestService(catalog, store)

	first, err := svc.FetchAndPersist(42)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.FetchAndPersist(42)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Movie.ID, second.Movie.ID)

	// 第二次只命中库内检查，不再打上游
	assert.Equal(t, 1, catalog.detailCalls)
	assert.Len(t, store.rows, 1)
}

func TestFetchAndPersist_ExistenceCheckBeforeUpstreamCalls(t *testing.T) {
	// 已存在的片不应触发任何详情/名单调用
	catalog := &fakeCatalog{}
	store := newFakeStore()
	store.rows[42] = &model.Movie{ID: 1, TMDBID: 42, Title: "Inception"}
	svc := NewIngestService(catalog, store)

	result, err := svc.FetchAndPersist(42)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Zero(t, catalog.detailCalls)
	assert.Zero(t, catalog.creditCalls)
}

func TestFetchAndPersist_ConflictResolvedByReread(t *testing.T) {
	// 提交时撞上唯一约束：读回赢家的行，不报错
	winner := &model.Movie{ID: 7, TMDBID: 42, Title: "Inception (winner)"}
	catalog := &fakeCatalog{details: map[int64]*MovieDetail{42: seededDetail()}}
	store := newFakeStore()
	store.conflictWith = winner
	svc := NewIngestService(catalog, store)

	result, err := svc.FetchAndPersist(42)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, winner.ID, result.Movie.ID)
	assert.Equal(t, "Inception (winner)", result.Movie.Title)
}

func TestFetchAndPersist_ConcurrentCallsSingleRow(t *testing.T) {
	catalog := &fakeCatalog{details: map[int64]*MovieDetail{42: seededDetail()}}
	store := newFakeStore()
	svc := NewIngestService(catalog, store)

	var wg sync.WaitGroup
	results := make([]*IngestResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.FetchAndPersist(42)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Len(t, store.rows, 1)
	assert.Equal(t, results[0].Movie.ID, results[1].Movie.ID)
}

func TestFetchAndPersist_UpstreamErrorPropagates(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := NewIngestService(catalog, newFakeStore())

	_, err := svc.FetchAndPersist(42)
	assert.Error(t, err)
}

func TestSearchAndSaveTitles_MixedOutcomes(t *testing.T) {
	detail := seededDetail()
	catalog := &fakeCatalog{
		searchResults: map[string]*MovieSummary{
			"inception": {ID: 42, Title: "Inception"},
			"dune":      {ID: 43, Title: "Dune"},
		},
		searchErrs: map[string]error{
			"broken": errors.New("tmdb unreachable"),
		},
		details: map[int64]*MovieDetail{
			42: detail,
			43: {ID: 43, Title: "Dune"},
		},
	}
	store := newFakeStore()
	// dune 已在库里，标题以库内为准
	store.rows[43] = &model.Movie{ID: 9, TMDBID: 43, Title: "Dune (2021)"}
	svc := NewIngestService(catalog, store)

	result := svc.SearchAndSaveTitles([]string{"inception", "no-such-movie", "broken", "dune"})

	// 搜索失败和没搜到一视同仁；已存在的按成功计
	assert.Equal(t, []string{"Inception", "Dune (2021)"}, result.Saved)
	assert.Equal(t, []string{"no-such-movie", "broken"}, result.Failed)
}

func TestFetchUpcoming_SkipsExistingAndHonorsLimit(t *testing.T) {
	catalog := &fakeCatalog{
		upcoming: []MovieSummary{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}},
		details: map[int64]*MovieDetail{
			1: {ID: 1, Title: "A"},
			2: {ID: 2, Title: "B"},
			3: {ID: 3, Title: "C"},
		},
	}
	store := newFakeStore()
	store.rows[2] = &model.Movie{ID: 5, TMDBID: 2, Title: "B"}
	svc := NewIngestService(catalog, store)

	saved, err := svc.FetchUpcoming(1, 0)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "A", saved[0].Title)
	assert.Equal(t, "C", saved[1].Title)
}

func TestFetchUpcoming_LimitTruncates(t *testing.T) {
	catalog := &fakeCatalog{
		upcoming: []MovieSummary{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
		details:  map[int64]*MovieDetail{1: {ID: 1, Title: "A"}},
	}
	svc := NewIngestService(catalog, newFakeStore())

	saved, err := svc.FetchUpcoming(1, 1)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "A", saved[0].Title)
	// 截断后第二部根本不处理
	assert.Equal(t, 1, catalog.detailCalls)
}

func TestMapDetailToMovie_BadDateIgnored(t *testing.T) {
	detail := &MovieDetail{ID: 1, Title: "A", ReleaseDate: "soon"}
	movie := mapDetailToMovie(detail)
	assert.Nil(t, movie.ReleaseDate)
}
