package planner

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// makeAggregate はテスト用のシーズン集計を作成
func makeAggregate(key string, quantity int64, revenue string) SeasonalAggregate {
	return SeasonalAggregate{
		Season:        SeasonWinter,
		MedicineKey:   key,
		GenericName:   key,
		Category:      "Analgesic",
		TotalQuantity: quantity,
		TotalRevenue:  decimal.RequireFromString(revenue),
		UniqueOrders:  1,
		AvgUnitPrice:  decimal.RequireFromString("5.00"),
	}
}

// TestRecommendationEngine_Generate は推奨生成の基本テスト
func TestRecommendationEngine_Generate(t *testing.T) {
	engine := NewRecommendationEngine(zap.NewNop())

	aggregates := []SeasonalAggregate{
		makeAggregate("PARACETAMOL", 30, "150.00"),
		makeAggregate("CETIRIZINE", 100, "400.00"),
		makeAggregate("AMOXICILLIN", 50, "375.00"),
	}

	set, err := engine.Generate(aggregates, SeasonWinter, 90, 0.15)

	assert.NoError(t, err)
	assert.NotEmpty(t, set.ID)
	assert.Equal(t, SeasonWinter, set.Season)
	assert.Equal(t, 90, set.DaysInSeason)
	assert.Len(t, set.Items, 3)

	// 販売数量の降順かつ密なランク
	assert.Equal(t, "CETIRIZINE", set.Items[0].MedicineKey)
	assert.Equal(t, 1, set.Items[0].Rank)
	assert.Equal(t, "AMOXICILLIN", set.Items[1].MedicineKey)
	assert.Equal(t, 2, set.Items[1].Rank)
	assert.Equal(t, "PARACETAMOL", set.Items[2].MedicineKey)
	assert.Equal(t, 3, set.Items[2].Rank)

	// 提案数量 = floor(実績 × 1.15)
	assert.Equal(t, int64(114), set.Items[0].SuggestedStockQuantity)
	assert.Equal(t, int64(57), set.Items[1].SuggestedStockQuantity)
	assert.Equal(t, int64(34), set.Items[2].SuggestedStockQuantity)

	// 提案数量は実績を下回らない
	for _, item := range set.Items {
		assert.GreaterOrEqual(t, item.SuggestedStockQuantity, item.LastSeasonSales)
	}

	// 日次平均は小数2桁
	para := set.Items[2]
	assert.Equal(t, 0.33, para.DailyAvgSales)
	assert.Equal(t, 2.31, para.ReorderPoint)
	assert.Equal(t, 103.03, para.StockDurationDays)

	// 高回転品は75パーセンタイル以上のみ
	assert.True(t, set.Items[0].IsFastMover)
	assert.False(t, set.Items[1].IsFastMover)
	assert.False(t, set.Items[2].IsFastMover)
}

// TestRecommendationEngine_NegativeBuffer は負のバッファ率のバリデーションテスト
func TestRecommendationEngine_NegativeBuffer(t *testing.T) {
	engine := NewRecommendationEngine(zap.NewNop())

	_, err := engine.Generate([]SeasonalAggregate{makeAggregate("PARACETAMOL", 10, "50.00")}, SeasonWinter, 90, -0.1)

	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "buffer_fraction", validation.Field)
}

// TestRecommendationEngine_TierPartition はティア分割の網羅性テスト
func TestRecommendationEngine_TierPartition(t *testing.T) {
	engine := NewRecommendationEngine(zap.NewNop())

	aggregates := make([]SeasonalAggregate, 0, 10)
	for i := 0; i < 10; i++ {
		aggregates = append(aggregates, makeAggregate(string(rune('A'+i)), int64(100-i*10), "100.00"))
	}

	set, err := engine.Generate(aggregates, SeasonWinter, 90, 0.15)
	assert.NoError(t, err)

	// 20% / 30% / 30% / 残り = 2 / 3 / 3 / 2
	assert.Len(t, set.Tiers, 4)
	assert.Equal(t, PriorityCritical, set.Tiers[0].Level)
	assert.Len(t, set.Tiers[0].Items, 2)
	assert.Equal(t, PriorityHigh, set.Tiers[1].Level)
	assert.Len(t, set.Tiers[1].Items, 3)
	assert.Equal(t, PriorityMedium, set.Tiers[2].Level)
	assert.Len(t, set.Tiers[2].Items, 3)
	assert.Equal(t, PriorityLow, set.Tiers[3].Level)
	assert.Len(t, set.Tiers[3].Items, 2)

	// ティア件数の合計は全品目数に一致し、各品目は1つのティアに属する
	total := 0
	for _, tier := range set.Tiers {
		total += len(tier.Items)
		for _, item := range tier.Items {
			assert.Equal(t, tier.Level, item.Priority)
			assert.Equal(t, PriorityActions[tier.Level], item.Action)
		}
	}
	assert.Equal(t, len(set.Items), total)
}

// TestRecommendationEngine_SingleItem は1品目のみのシーズンのテスト
func TestRecommendationEngine_SingleItem(t *testing.T) {
	engine := NewRecommendationEngine(zap.NewNop())

	set, err := engine.Generate([]SeasonalAggregate{makeAggregate("PARACETAMOL", 10, "50.00")}, SeasonWinter, 90, 0.15)
	assert.NoError(t, err)

	// 4ティアすべてが存在し、唯一の品目はCRITICAL
	assert.Len(t, set.Tiers, 4)
	assert.Len(t, set.Tiers[0].Items, 1)
	assert.Len(t, set.Tiers[1].Items, 0)
	assert.Len(t, set.Tiers[2].Items, 0)
	assert.Len(t, set.Tiers[3].Items, 0)
	assert.Equal(t, PriorityCritical, set.Items[0].Priority)
	assert.Equal(t, "MUST ORDER IMMEDIATELY", set.Items[0].Action)
}

// TestRecommendationEngine_StableTies は同数量の安定順序テスト
func TestRecommendationEngine_StableTies(t *testing.T) {
	engine := NewRecommendationEngine(zap.NewNop())

	aggregates := []SeasonalAggregate{
		makeAggregate("FIRST", 50, "100.00"),
		makeAggregate("SECOND", 50, "100.00"),
	}

	set, err := engine.Generate(aggregates, SeasonWinter, 90, 0.15)
	assert.NoError(t, err)

	// 集計の出現順を維持
	assert.Equal(t, "FIRST", set.Items[0].MedicineKey)
	assert.Equal(t, 1, set.Items[0].Rank)
	assert.Equal(t, "SECOND", set.Items[1].MedicineKey)
	assert.Equal(t, 2, set.Items[1].Rank)
}

// TestRecommendationEngine_Calendar は発注カレンダーのテスト
func TestRecommendationEngine_Calendar(t *testing.T) {
	engine := NewRecommendationEngine(zap.NewNop())

	aggregates := []SeasonalAggregate{
		makeAggregate("FAST", 40, "200.00"),
		makeAggregate("SLOW", 10, "30.00"),
	}

	set, err := engine.Generate(aggregates, SeasonWinter, 10, 0.15)
	assert.NoError(t, err)
	assert.Len(t, set.Calendar, 4)

	// 第1枠: 高回転・最優先品目の発注
	early := set.Calendar[0]
	assert.Equal(t, "1-2 (Early Season)", early.Week)
	assert.Equal(t, "URGENT", early.Priority)
	assert.Equal(t, 1, early.MedicineCount)
	assert.Equal(t, int64(46), early.TotalQuantity)
	assert.Equal(t, "200.00", early.EstimatedCost.StringFixed(2))

	// 品目数が少ない場合、中間枠は空
	assert.Equal(t, "3-4 (Pre-Peak)", set.Calendar[1].Week)
	assert.Equal(t, 0, set.Calendar[1].MedicineCount)
	assert.Equal(t, "5-8 (Mid-Season)", set.Calendar[2].Week)
	assert.Equal(t, 0, set.Calendar[2].MedicineCount)

	// 最終枠: 高回転品の50%補充（数量・コストとも半減）
	restock := set.Calendar[3]
	assert.Equal(t, "9-12 (Peak Season)", restock.Week)
	assert.Equal(t, "RESTOCK", restock.Priority)
	assert.Equal(t, 1, restock.MedicineCount)
	assert.Equal(t, int64(23), restock.TotalQuantity)
	assert.Equal(t, "100.00", restock.EstimatedCost.StringFixed(2))
}

// TestRecommendationEngine_FallbackDays はゼロ日数のフォールバックテスト
func TestRecommendationEngine_FallbackDays(t *testing.T) {
	engine := NewRecommendationEngine(zap.NewNop())

	set, err := engine.Generate([]SeasonalAggregate{makeAggregate("PARACETAMOL", 90, "450.00")}, SeasonWinter, 0, 0.15)
	assert.NoError(t, err)
	assert.Equal(t, FallbackSeasonDays, set.DaysInSeason)
	assert.Equal(t, 1.0, set.Items[0].DailyAvgSales)
}

// TestRecommendationEngine_FastMoverCutoff は高回転品カットオフの分位点テスト
func TestRecommendationEngine_FastMoverCutoff(t *testing.T) {
	engine := NewRecommendationEngine(zap.NewNop())

	// 日次平均 1, 2, 3, 4 の4品目（10日間で数量 10/20/30/40）
	aggregates := []SeasonalAggregate{
		makeAggregate("ALPHA", 10, "50.00"),
		makeAggregate("BETA", 20, "100.00"),
		makeAggregate("GAMMA", 30, "150.00"),
		makeAggregate("DELTA", 40, "200.00"),
	}

	set, err := engine.Generate(aggregates, SeasonWinter, 10, 0.15)

	assert.NoError(t, err)
	// 75パーセンタイル = 3 + 0.25*(4-3) = 3.25 なので高回転品は1品目のみ
	assert.True(t, set.Items[0].IsFastMover)
	assert.False(t, set.Items[1].IsFastMover)
	assert.False(t, set.Items[2].IsFastMover)
	assert.False(t, set.Items[3].IsFastMover)
}

// TestQuantileLinear は線形補間分位点のテスト
func TestQuantileLinear(t *testing.T) {
	assert.Equal(t, 3.25, quantileLinear(0.75, []float64{1, 2, 3, 4}))
	assert.Equal(t, 2.5, quantileLinear(0.5, []float64{1, 2, 3, 4}))
	assert.Equal(t, 4.0, quantileLinear(1.0, []float64{1, 2, 3, 4}))
	assert.Equal(t, 7.0, quantileLinear(0.75, []float64{7}))
}
