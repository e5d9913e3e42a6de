package planner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 推奨エンジンの固定パラメータ
const (
	// DefaultBufferFraction is the safety-stock fraction added on top of
	// last season's observed sales
	// 前シーズン実績に上乗せする安全在庫率のデフォルト
	DefaultBufferFraction = 0.15

	// UseConfiguredBuffer asks the planner to apply its configured buffer
	// fraction; an explicit zero is honored as no buffer
	// 設定済みバッファ率の適用を要求する値。明示的なゼロはバッファなし
	UseConfiguredBuffer = -1.0

	// FallbackSeasonDays substitutes for a zero-length observed season span
	// 観測日数ゼロの場合に代替するシーズン日数
	FallbackSeasonDays = 90

	// fastMoverQuantile is the daily-average cutoff percentile for fast movers
	// 高回転品判定に使う日次平均のパーセンタイル
	fastMoverQuantile = 0.75

	// defaultStockDurationDays is reported when daily average sales is zero
	// 日次平均ゼロの場合に報告する在庫持続日数
	defaultStockDurationDays = 120
)

// RecommendationEngine converts seasonal aggregates into ranked, buffered
// stock suggestions with priority tiers and an ordering calendar
// シーズン集計をランク付き・バッファ込みの在庫提案に変換し、
// 優先度ティアと発注カレンダーを付与
type RecommendationEngine struct {
	logger *zap.Logger
}

// NewRecommendationEngine creates a new recommendation engine
// 新しい推奨エンジンを作成
func NewRecommendationEngine(logger *zap.Logger) *RecommendationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationEngine{logger: logger}
}

// Generate builds a complete recommendation set for one season.
// An empty aggregate set yields an empty list; the caller distinguishes
// "no data" via the aggregator's EmptySeasonError, not here.
// 1シーズン分の完全な推奨セットを生成。空の集計は空リストを返し、
// 「データなし」はアグリゲーターのEmptySeasonErrorで判別される。
func (e *RecommendationEngine) Generate(aggregates []SeasonalAggregate, season Season, daysInSeason int, bufferFraction float64) (*RecommendationSet, error) {
	if bufferFraction < 0 {
		return nil, NewValidationError("buffer_fraction", "バッファ率は0以上である必要があります", fmt.Sprintf("%f", bufferFraction))
	}
	if daysInSeason <= 0 {
		daysInSeason = FallbackSeasonDays
	}

	items := make([]Recommendation, 0, len(aggregates))
	for _, agg := range aggregates {
		suggested := int64(math.Floor(float64(agg.TotalQuantity) * (1 + bufferFraction)))
		dailyAvg := roundTo2(float64(agg.TotalQuantity) / float64(daysInSeason))

		stockDuration := float64(defaultStockDurationDays)
		if dailyAvg > 0 {
			stockDuration = float64(suggested) / dailyAvg
		}

		items = append(items, Recommendation{
			MedicineKey:            agg.MedicineKey,
			GenericName:            agg.GenericName,
			Category:               agg.Category,
			LastSeasonSales:        agg.TotalQuantity,
			SuggestedStockQuantity: suggested,
			DailyAvgSales:          dailyAvg,
			TotalRevenue:           agg.TotalRevenue,
			AvgUnitPrice:           agg.AvgUnitPrice,
			UniqueOrders:           agg.UniqueOrders,
			ReorderPoint:           roundTo2(dailyAvg * 7),
			StockDurationDays:      roundTo2(stockDuration),
		})
	}

	// 販売数量の降順、同値は集計の出現順を維持
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].LastSeasonSales > items[j].LastSeasonSales
	})
	for i := range items {
		items[i].Rank = i + 1
	}

	markFastMovers(items)
	tiers := assignPriorityTiers(items)
	calendar := buildOrderingCalendar(items)

	set := &RecommendationSet{
		ID:             NewAnalysisID(),
		Season:         season,
		BufferFraction: bufferFraction,
		DaysInSeason:   daysInSeason,
		GeneratedAt:    time.Now(),
		Items:          items,
		Tiers:          tiers,
		Calendar:       calendar,
	}

	e.logger.Info("推奨生成完了",
		zap.String("season", string(season)),
		zap.Int("items", len(items)),
		zap.Float64("buffer_fraction", bufferFraction),
		zap.Int("days_in_season", daysInSeason),
	)

	return set, nil
}

// markFastMovers flags items whose daily average is at or above the 75th
// percentile of the whole set, using a linear-interpolation quantile over
// the full population
// 全体の75パーセンタイル以上の日次平均を持つ品目を高回転品として判定
func markFastMovers(items []Recommendation) {
	if len(items) == 0 {
		return
	}
	values := make([]float64, len(items))
	for i, item := range items {
		values[i] = item.DailyAvgSales
	}
	sort.Float64s(values)
	cutoff := quantileLinear(fastMoverQuantile, values)
	for i := range items {
		items[i].IsFastMover = items[i].DailyAvgSales >= cutoff
	}
}

// quantileLinear computes the p-quantile of a sorted sample by linear
// interpolation between order statistics at index h = p*(n-1)
// ソート済み標本のp分位点をh = p*(n-1)の順序統計量間で線形補間して計算
func quantileLinear(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	i := int(math.Floor(h))
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-float64(i))*(sorted[i+1]-sorted[i])
}

// assignPriorityTiers partitions the rank-ordered list into the four
// contiguous bands (20% / 30% / 30% / remainder). The first three band
// sizes are floor-rounded with a minimum of 1; band membership is clamped
// to the available items, so every item lands in exactly one tier.
// ランク順リストを4つの連続バンドに分割（20%/30%/30%/残り）。
// 先頭3バンドは切り捨て・最低1件で、各品目は必ず1つのティアに属する。
func assignPriorityTiers(items []Recommendation) []PriorityTier {
	n := len(items)

	criticalCount := maxInt(n*20/100, 1)
	highCount := maxInt(n*30/100, 1)
	mediumCount := maxInt(n*30/100, 1)

	bounds := []struct {
		level      PriorityLevel
		start, end int
	}{
		{PriorityCritical, 0, criticalCount},
		{PriorityHigh, criticalCount, criticalCount + highCount},
		{PriorityMedium, criticalCount + highCount, criticalCount + highCount + mediumCount},
		{PriorityLow, criticalCount + highCount + mediumCount, n},
	}

	tiers := make([]PriorityTier, 0, len(bounds))
	for _, b := range bounds {
		start := clampIndex(b.start, n)
		end := clampIndex(b.end, n)
		for i := start; i < end; i++ {
			items[i].Priority = b.level
			items[i].Action = PriorityActions[b.level]
		}
		tiers = append(tiers, PriorityTier{
			Level:  b.level,
			Action: PriorityActions[b.level],
			Items:  append([]Recommendation(nil), items[start:end]...),
		})
	}
	return tiers
}

// buildOrderingCalendar derives the four scheduling windows from the tiered,
// rank-ordered list. The final window is a 50%-volume restock of the
// critical fast movers from the first window.
// ティア付与済みリストから4つの発注スケジュール枠を導出。
// 最終枠は第1枠の高回転品の50%補充。
func buildOrderingCalendar(items []Recommendation) []CalendarWindow {
	var fastMovers []Recommendation
	for _, item := range items {
		if item.IsFastMover {
			fastMovers = append(fastMovers, item)
		}
	}
	critical := fastMovers[:clampIndex(10, len(fastMovers))]

	criticalQty, criticalCost := windowTotals(critical)
	earlyItems := items[clampIndex(10, len(items)):clampIndex(30, len(items))]
	earlyQty, earlyCost := windowTotals(earlyItems)
	midItems := items[clampIndex(30, len(items)):clampIndex(60, len(items))]
	midQty, midCost := windowTotals(midItems)

	return []CalendarWindow{
		{
			Week:          "1-2 (Early Season)",
			Action:        "ORDER CRITICAL FAST-MOVERS",
			MedicineCount: len(critical),
			TotalQuantity: criticalQty,
			EstimatedCost: criticalCost,
			Priority:      "URGENT",
		},
		{
			Week:          "3-4 (Pre-Peak)",
			Action:        "ORDER HIGH PRIORITY ITEMS",
			MedicineCount: len(earlyItems),
			TotalQuantity: earlyQty,
			EstimatedCost: earlyCost,
			Priority:      "HIGH",
		},
		{
			Week:          "5-8 (Mid-Season)",
			Action:        "ORDER MEDIUM PRIORITY ITEMS",
			MedicineCount: len(midItems),
			TotalQuantity: midQty,
			EstimatedCost: midCost,
			Priority:      "MEDIUM",
		},
		{
			Week:          "9-12 (Peak Season)",
			Action:        "RESTOCK FAST-MOVING ITEMS",
			MedicineCount: len(critical),
			TotalQuantity: int64(float64(criticalQty) * 0.5),
			EstimatedCost: criticalCost.Mul(decimal.NewFromFloat(0.5)),
			Priority:      "RESTOCK",
		},
	}
}

// windowTotals sums suggested quantity and revenue-based cost for a window
// 枠内の提案数量合計と売上ベースの見積コストを集計
func windowTotals(items []Recommendation) (int64, decimal.Decimal) {
	var qty int64
	cost := decimal.Zero
	for _, item := range items {
		qty += item.SuggestedStockQuantity
		cost = cost.Add(item.TotalRevenue)
	}
	return qty, cost
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampIndex(i, n int) int {
	if i > n {
		return n
	}
	if i < 0 {
		return 0
	}
	return i
}
