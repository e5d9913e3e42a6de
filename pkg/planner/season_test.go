package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestSeasonForMonth は月からシーズンへの変換テスト
func TestSeasonForMonth(t *testing.T) {
	cases := []struct {
		month    time.Month
		expected Season
	}{
		{time.January, SeasonWinter},
		{time.February, SeasonSummer},
		{time.March, SeasonSummer},
		{time.April, SeasonSummer},
		{time.May, SeasonSummer},
		{time.June, SeasonMonsoon},
		{time.July, SeasonMonsoon},
		{time.August, SeasonMonsoon},
		{time.September, SeasonMonsoon},
		{time.October, SeasonWinter},
		{time.November, SeasonWinter},
		{time.December, SeasonWinter},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, SeasonForMonth(c.month), "month %s", c.month)
	}
}

// TestSeasonYearLabel はシーズン年ラベルのテスト
func TestSeasonYearLabel(t *testing.T) {
	// 1月はその暦年のWinterに属する
	assert.Equal(t, "Winter 2024", SeasonYearLabel(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Winter 2023", SeasonYearLabel(time.Date(2023, time.November, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Summer 2024", SeasonYearLabel(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

// TestParseSeason はシーズンラベル解析のテスト
func TestParseSeason(t *testing.T) {
	season, err := ParseSeason("winter")
	assert.NoError(t, err)
	assert.Equal(t, SeasonWinter, season)

	season, err = ParseSeason("  MONSOON ")
	assert.NoError(t, err)
	assert.Equal(t, SeasonMonsoon, season)

	season, err = ParseSeason("Summer")
	assert.NoError(t, err)
	assert.Equal(t, SeasonSummer, season)

	// 未知のシーズンはエラー
	_, err = ParseSeason("autumn")
	assert.ErrorIs(t, err, ErrUnknownSeason)
}

// TestGetSeasonTiming は発注タイミング定義のテスト
func TestGetSeasonTiming(t *testing.T) {
	timing := GetSeasonTiming(SeasonWinter)
	assert.Equal(t, SeasonWinter, timing.Season)
	assert.Equal(t, "October - January", timing.Months)
	assert.Equal(t, "Late September", timing.OrderBefore)
	assert.Equal(t, "November - December", timing.PeakMonths)
	assert.Equal(t, 120, timing.DurationDays)
}
