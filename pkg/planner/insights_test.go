package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// insightTransactions は複数シーズン・複数カテゴリのサンプル取引を作成
func insightTransactions() []Transaction {
	jul := time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC)
	oct := time.Date(2024, time.October, 5, 0, 0, 0, 0, time.UTC)

	ors := makeTx("ORS SACHET", "INV-10", jul, 25, "1.50")
	ors.Category = "Rehydration"
	para := makeTx("PARACETAMOL 500MG", "INV-11", oct, 30, "2.50")
	ceti := makeTx("CETIRIZINE 10MG", "INV-12", oct, 30, "4.00")
	ceti.Category = "Antihistamine"

	return []Transaction{ors, para, ceti}
}

// TestPlanner_SeasonalSummary はシーズン別サマリーのテスト
func TestPlanner_SeasonalSummary(t *testing.T) {
	planner := NewPlanner(nil, zap.NewNop(), nil)

	summary := planner.SeasonalSummary(insightTransactions())

	// 3シーズンすべてを固定順で報告する
	assert.Len(t, summary, 3)
	assert.Equal(t, SeasonSummer, summary[0].Season)
	assert.Equal(t, SeasonMonsoon, summary[1].Season)
	assert.Equal(t, SeasonWinter, summary[2].Season)

	// 販売のないシーズンはゼロ行
	assert.Equal(t, int64(0), summary[0].TotalQuantity)
	assert.Equal(t, 0, summary[0].MedicineCount)

	assert.Equal(t, int64(25), summary[1].TotalQuantity)
	assert.Equal(t, "37.50", summary[1].TotalRevenue.StringFixed(2))
	assert.Equal(t, 1, summary[1].UniqueOrders)

	assert.Equal(t, int64(60), summary[2].TotalQuantity)
	assert.Equal(t, 2, summary[2].MedicineCount)
}

// TestPlanner_TopSellers は上位販売医薬品のテスト
func TestPlanner_TopSellers(t *testing.T) {
	planner := NewPlanner(nil, zap.NewNop(), nil)

	sellers, err := planner.TopSellers(insightTransactions(), SeasonWinter, 0)

	assert.NoError(t, err)
	assert.Len(t, sellers, 2)
	// 同数量はキー昇順で順序が決まる
	assert.Equal(t, "CETIRIZINE 10MG", sellers[0].MedicineKey)
	assert.Equal(t, "PARACETAMOL 500MG", sellers[1].MedicineKey)

	// Nで打ち切り
	sellers, err = planner.TopSellers(insightTransactions(), SeasonWinter, 1)
	assert.NoError(t, err)
	assert.Len(t, sellers, 1)

	// 取引のないシーズンはエラー
	_, err = planner.TopSellers(nil, SeasonSummer, 0)
	var empty *EmptySeasonError
	assert.ErrorAs(t, err, &empty)
}

// TestPlanner_MedicineCatalog は医薬品カタログのテスト
func TestPlanner_MedicineCatalog(t *testing.T) {
	planner := NewPlanner(nil, zap.NewNop(), nil)

	catalog := planner.MedicineCatalog(insightTransactions())

	assert.Len(t, catalog, 3)
	// キーの昇順で整列
	assert.Equal(t, "CETIRIZINE 10MG", catalog[0].MedicineKey)
	assert.Equal(t, "ORS SACHET", catalog[1].MedicineKey)
	assert.Equal(t, "PARACETAMOL 500MG", catalog[2].MedicineKey)
	assert.Equal(t, "Antihistamine", catalog[0].Category)
	assert.Equal(t, int64(30), catalog[0].TotalQuantity)
	assert.Equal(t, "120.00", catalog[0].TotalRevenue.StringFixed(2))
}

// TestPlanner_WeeklyTrend は週次トレンドのテスト
func TestPlanner_WeeklyTrend(t *testing.T) {
	planner := NewPlanner(nil, zap.NewNop(), nil)

	monday := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		makeTx("PARACETAMOL 500MG", "INV-1", monday, 5, "2.50"),
		makeTx("PARACETAMOL 500MG", "INV-2", monday.AddDate(0, 0, 7), 12, "2.50"),
		makeTx("PARACETAMOL 500MG", "INV-3", monday.AddDate(0, 0, 14), 8, "2.50"),
	}

	trend, err := planner.WeeklyTrend(transactions, "  paracetamol 500mg ")

	assert.NoError(t, err)
	assert.Equal(t, "PARACETAMOL 500MG", trend.MedicineKey)
	assert.Len(t, trend.Points, 3)
	assert.Equal(t, monday.AddDate(0, 0, 7), trend.PeakWeek)
	assert.Equal(t, 12.0, trend.PeakQty)

	// 存在しない医薬品はエラー
	_, err = planner.WeeklyTrend(transactions, "IBUPROFEN")
	assert.ErrorIs(t, err, ErrMedicineNotFound)
}

// TestPlanner_CategoryBreakdown はカテゴリ別集計のテスト
func TestPlanner_CategoryBreakdown(t *testing.T) {
	planner := NewPlanner(nil, zap.NewNop(), nil)

	breakdown := planner.CategoryBreakdown(insightTransactions())

	assert.Len(t, breakdown, 3)
	// 数量降順、同数量はカテゴリ名昇順
	assert.Equal(t, "Analgesic", breakdown[0].Category)
	assert.Equal(t, int64(30), breakdown[0].TotalQuantity)
	assert.Equal(t, "Antihistamine", breakdown[1].Category)
	assert.Equal(t, "Rehydration", breakdown[2].Category)
	assert.Equal(t, 1, breakdown[0].MedicineCount)
}

// TestPlanner_OrderingGuide は発注ガイド生成のテスト
func TestPlanner_OrderingGuide(t *testing.T) {
	planner := NewPlanner(nil, zap.NewNop(), nil)
	ctx := context.Background()

	set, err := planner.Recommend(ctx, winterTransactions(), SeasonWinter, UseConfiguredBuffer)
	assert.NoError(t, err)

	guide := planner.OrderingGuide(set)

	assert.Equal(t, SeasonWinter, guide.Season)
	assert.Equal(t, "Late September", guide.Timing.OrderBefore)
	// ヘッダー2行 + カレンダー4ウィンドウ
	assert.Len(t, guide.Lines, 2+len(set.Calendar))
	assert.Contains(t, guide.Lines[0], "Winter")
	assert.Contains(t, guide.Lines[0], "Late September")
}

// TestPlanner_ActionableInsights は実行可能な所見のテスト
func TestPlanner_ActionableInsights(t *testing.T) {
	planner := NewPlanner(nil, zap.NewNop(), nil)
	ctx := context.Background()

	set, err := planner.Recommend(ctx, winterTransactions(), SeasonWinter, UseConfiguredBuffer)
	assert.NoError(t, err)

	insights := planner.ActionableInsights(set)

	assert.Equal(t, SeasonWinter, insights.Season)
	assert.Len(t, insights.ImmediateActions, 5)
	assert.Contains(t, insights.ImmediateActions[0], "URGENT")

	// 2品目はCRITICALとHIGHに1件ずつ分かれる
	assert.Len(t, insights.CriticalMedicines, 1)
	assert.Equal(t, "PARACETAMOL 500MG", insights.CriticalMedicines[0].MedicineKey)
	assert.Equal(t, "125.00", insights.BudgetByPriority[PriorityCritical].StringFixed(2))
	assert.Equal(t, "48.00", insights.BudgetByPriority[PriorityHigh].StringFixed(2))
}
