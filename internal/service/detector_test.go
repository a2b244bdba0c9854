package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinealert/internal/model"
)

func storedMovie(releaseDate string, rating, popularity float64) *model.Movie {
	m := &model.Movie{
		TMDBID:      603,
		Title:       "The Matrix",
		VoteAverage: rating,
		Popularity:  popularity,
	}
	if releaseDate != "" {
		d, err := time.Parse("2006-01-02", releaseDate)
		if err != nil {
			panic(err)
		}
		m.ReleaseDate = &d
	}
	return m
}

func TestDetectChanges_RatingBelowThreshold(t *testing.T) {
	stored := storedMovie("2024-01-01", 7.0, 0)
	fresh := &MovieDetail{ReleaseDate: "2024-01-01", VoteAverage: 7.4}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	assert.Empty(t, notes)
}

func TestDetectChanges_RatingAtThreshold(t *testing.T) {
	stored := storedMovie("2024-01-01", 7.0, 0)
	fresh := &MovieDetail{ReleaseDate: "2024-01-01", VoteAverage: 7.5}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	require.Len(t, notes, 1)
	assert.Equal(t, FieldRating, notes[0].Field)
	assert.Equal(t, "7.0", notes[0].Old)
	assert.Equal(t, "7.5", notes[0].New)
}

func TestDetectChanges_RatingDrop(t *testing.T) {
	stored := storedMovie("", 8.0, 0)
	fresh := &MovieDetail{VoteAverage: 7.2}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	require.Len(t, notes, 1)
	assert.Equal(t, FieldRating, notes[0].Field)
}

func TestDetectChanges_RatingSkippedWhenEitherAbsent(t *testing.T) {
	// 零值按缺失处理，不参与比较
	notes := DetectChanges(storedMovie("", 0, 0), &MovieDetail{VoteAverage: 9.0}, DefaultThresholds())
	assert.Empty(t, notes)

	notes = DetectChanges(storedMovie("", 7.0, 0), &MovieDetail{}, DefaultThresholds())
	assert.Empty(t, notes)
}

func TestDetectChanges_PopularityBelowThreshold(t *testing.T) {
	stored := storedMovie("", 0, 100)
	fresh := &MovieDetail{Popularity: 119}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	assert.Empty(t, notes)
}

func TestDetectChanges_PopularityIncrease(t *testing.T) {
	stored := storedMovie("", 0, 100)
	fresh := &MovieDetail{Popularity: 121}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	require.Len(t, notes, 1)
	assert.Equal(t, FieldPopularity, notes[0].Field)
	assert.Equal(t, "increase", notes[0].Direction)
	assert.Equal(t, "100.0", notes[0].Old)
	assert.Equal(t, "121.0", notes[0].New)
}

func TestDetectChanges_PopularityDecrease(t *testing.T) {
	stored := storedMovie("", 0, 100)
	fresh := &MovieDetail{Popularity: 79}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	require.Len(t, notes, 1)
	assert.Equal(t, FieldPopularity, notes[0].Field)
	assert.Equal(t, "decrease", notes[0].Direction)
}

func TestDetectChanges_PopularityZeroStoredSkipped(t *testing.T) {
	// 库内热度为 0 时跳过，避免除零
	stored := storedMovie("", 0, 0)
	fresh := &MovieDetail{Popularity: 50}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	assert.Empty(t, notes)
}

func TestDetectChanges_ReleaseDateUnchanged(t *testing.T) {
	stored := storedMovie("2024-01-01", 0, 0)
	fresh := &MovieDetail{ReleaseDate: "2024-01-01"}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	assert.Empty(t, notes)
}

func TestDetectChanges_ReleaseDateChanged(t *testing.T) {
	stored := storedMovie("2024-01-01", 0, 0)
	fresh := &MovieDetail{ReleaseDate: "2024-06-01"}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	require.Len(t, notes, 1)
	assert.Equal(t, FieldReleaseDate, notes[0].Field)
	assert.Equal(t, "2024-01-01", notes[0].Old)
	assert.Equal(t, "2024-06-01", notes[0].New)
}

func TestDetectChanges_ReleaseDateBothAbsent(t *testing.T) {
	notes := DetectChanges(storedMovie("", 0, 0), &MovieDetail{}, DefaultThresholds())
	assert.Empty(t, notes)
}

func TestDetectChanges_ReleaseDateBecomesKnown(t *testing.T) {
	stored := storedMovie("", 0, 0)
	fresh := &MovieDetail{ReleaseDate: "2025-03-15"}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	require.Len(t, notes, 1)
	assert.Equal(t, "Unknown", notes[0].Old)
	assert.Equal(t, "2025-03-15", notes[0].New)
}

func TestDetectChanges_AllRulesEvaluatedIndependently(t *testing.T) {
	stored := storedMovie("2024-01-01", 7.0, 100)
	fresh := &MovieDetail{
		ReleaseDate: "2024-06-01",
		VoteAverage: 8.0,
		Popularity:  150,
	}

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	require.Len(t, notes, 3)
	assert.Equal(t, FieldReleaseDate, notes[0].Field)
	assert.Equal(t, FieldRating, notes[1].Field)
	assert.Equal(t, FieldPopularity, notes[2].Field)
}

func TestDetectChanges_TitleAndGenresIgnored(t *testing.T) {
	// 标题和类型的变化有意不报
	stored := storedMovie("2024-01-01", 7.0, 100)
	stored.Genres = []string{"Action"}
	fresh := &MovieDetail{
		Title:       "The Matrix Reloaded",
		ReleaseDate: "2024-01-01",
		VoteAverage: 7.0,
		Popularity:  100,
	}
	fresh.Genres = append(fresh.Genres, struct {
		Name string `json:"name"`
	}{Name: "Drama"})

	notes := DetectChanges(stored, fresh, DefaultThresholds())
	assert.Empty(t, notes)
}

func TestDetectChanges_CustomThresholds(t *testing.T) {
	th := Thresholds{RatingDelta: 1.0, PopularityRatio: 0.5}
	stored := storedMovie("", 7.0, 100)
	fresh := &MovieDetail{VoteAverage: 7.6, Popularity: 130}

	// 默认阈值会报两条，放宽后都不报
	assert.Empty(t, DetectChanges(stored, fresh, th))
}
