package planner

import (
	"fmt"
	"strings"
	"time"
)

// SeasonForMonth maps a calendar month to its season.
// The mapping follows the Indian climate calendar and is not parameterizable.
// 月をシーズンに変換。インド気候カレンダーに従い、変更不可。
func SeasonForMonth(month time.Month) Season {
	switch month {
	case time.February, time.March, time.April, time.May:
		return SeasonSummer
	case time.June, time.July, time.August, time.September:
		return SeasonMonsoon
	default:
		// 10月、11月、12月、1月
		return SeasonWinter
	}
}

// SeasonOf returns the season of a transaction date
// 取引日のシーズンを返却
func SeasonOf(date time.Time) Season {
	return SeasonForMonth(date.Month())
}

// SeasonYearLabel returns the season-year grouping label.
// A January row belongs to Winter of its own calendar year.
// シーズン年ラベルを返却。1月の行はその暦年のWinterに属する。
func SeasonYearLabel(date time.Time) string {
	return fmt.Sprintf("%s %d", SeasonOf(date), date.Year())
}

// ParseSeason parses a season label case-insensitively
// シーズンラベルを大文字小文字を無視して解析
func ParseSeason(s string) (Season, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "summer":
		return SeasonSummer, nil
	case "monsoon":
		return SeasonMonsoon, nil
	case "winter":
		return SeasonWinter, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSeason, s)
	}
}

// シーズンごとの発注タイミング定義
var seasonTimings = map[Season]SeasonTiming{
	SeasonSummer: {
		Season:       SeasonSummer,
		Months:       "February - May",
		OrderBefore:  "Late January",
		PeakMonths:   "March - April",
		DurationDays: 120,
	},
	SeasonMonsoon: {
		Season:       SeasonMonsoon,
		Months:       "June - September",
		OrderBefore:  "Late May",
		PeakMonths:   "July - August",
		DurationDays: 120,
	},
	SeasonWinter: {
		Season:       SeasonWinter,
		Months:       "October - January",
		OrderBefore:  "Late September",
		PeakMonths:   "November - December",
		DurationDays: 120,
	},
}

// GetSeasonTiming returns the purchasing calendar context for a season
// シーズンの発注カレンダー文脈を返却
func GetSeasonTiming(season Season) SeasonTiming {
	return seasonTimings[season]
}
