package service

import (
	"fmt"
	"math"
	"time"

	"github.com/user/cinealert/internal/model"
)

// ChangeField 发生变化的字段
type ChangeField string

const (
	FieldReleaseDate ChangeField = "release_date"
	FieldRating      ChangeField = "rating"
	FieldPopularity  ChangeField = "popularity"
)

// ChangeNote 一条显著变更记录
type ChangeNote struct {
	Field     ChangeField
	Old       string
	New       string
	Direction string // 仅热度变更填 "increase"/"decrease"
}

// Thresholds 变更判定阈值。0.5 分和 20% 沿用既有产品口径，待确认前保持可配置。
type Thresholds struct {
	RatingDelta     float64
	PopularityRatio float64
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{RatingDelta: 0.5, PopularityRatio: 0.20}
}

// DetectChanges 比较库内快照和上游最新数据，返回显著变更列表。
// 三条规则各自独立判定，互不短路。标题和类型的变化有意不报：
// 入库后这两个字段只当展示快照用。
func DetectChanges(stored *model.Movie, fresh *MovieDetail, th Thresholds) []ChangeNote {
	var notes []ChangeNote

	// 上映日期：归一化成 YYYY-MM-DD 再比，避免格式差异造成误报。
	// 双方都未知不算变化。
	oldDate := stored.ReleaseDateString()
	newDate := normalizeDate(fresh.ReleaseDate)
	if oldDate != newDate {
		notes = append(notes, ChangeNote{
			Field: FieldReleaseDate,
			Old:   orUnknown(oldDate),
			New:   orUnknown(newDate),
		})
	}

	// 评分：双方都有值才比较
	if stored.VoteAverage != 0 && fresh.VoteAverage != 0 {
		if math.Abs(fresh.VoteAverage-stored.VoteAverage) >= th.RatingDelta {
			notes = append(notes, ChangeNote{
				Field: FieldRating,
				Old:   fmt.Sprintf("%.1f", stored.VoteAverage),
				New:   fmt.Sprintf("%.1f", fresh.VoteAverage),
			})
		}
	}

	// 热度：相对变化，库内为 0 时跳过以免除零
	if stored.Popularity != 0 && fresh.Popularity != 0 {
		change := (fresh.Popularity - stored.Popularity) / stored.Popularity
		if math.Abs(change) >= th.PopularityRatio {
			direction := "increase"
			if change < 0 {
				direction = "decrease"
			}
			notes = append(notes, ChangeNote{
				Field:     FieldPopularity,
				Old:       fmt.Sprintf("%.1f", stored.Popularity),
				New:       fmt.Sprintf("%.1f", fresh.Popularity),
				Direction: direction,
			})
		}
	}

	return notes
}

// normalizeDate 把上游日期串归一化成 YYYY-MM-DD，解析失败时原样返回
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d.Format("2006-01-02")
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
