package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// TestAggregator_AggregateSeason はシーズン集計のテスト
func TestAggregator_AggregateSeason(t *testing.T) {
	aggregator := NewAggregator(zap.NewNop())

	oct := time.Date(2024, time.October, 5, 0, 0, 0, 0, time.UTC)
	nov := time.Date(2024, time.November, 12, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)

	transactions := []Transaction{
		makeTx("PARACETAMOL 500MG", "INV-1", oct, 10, "5.00"),
		makeTx("PARACETAMOL 500MG", "INV-2", nov, 20, "5.00"),
		makeTx("CETIRIZINE 10MG", "INV-1", oct, 7, "4.00"),
		// 夏シーズンの行は集計対象外
		makeTx("PARACETAMOL 500MG", "INV-3", mar, 99, "5.00"),
	}

	aggregates, err := aggregator.AggregateSeason(transactions, SeasonWinter)

	assert.NoError(t, err)
	assert.Len(t, aggregates, 2)

	// 出現順が保持される
	para := aggregates[0]
	assert.Equal(t, "PARACETAMOL 500MG", para.MedicineKey)
	assert.Equal(t, int64(30), para.TotalQuantity)
	assert.Equal(t, "150.00", para.TotalRevenue.StringFixed(2))
	assert.Equal(t, 2, para.UniqueOrders)
	assert.Equal(t, "5.00", para.AvgUnitPrice.StringFixed(2))

	cet := aggregates[1]
	assert.Equal(t, "CETIRIZINE 10MG", cet.MedicineKey)
	assert.Equal(t, int64(7), cet.TotalQuantity)
	assert.Equal(t, 1, cet.UniqueOrders)
}

// TestAggregator_DuplicateInvoice は同一請求書の一意件数テスト
func TestAggregator_DuplicateInvoice(t *testing.T) {
	aggregator := NewAggregator(zap.NewNop())

	date := time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		makeTx("PARACETAMOL 500MG", "INV-1", date, 5, "2.00"),
		makeTx("PARACETAMOL 500MG", "INV-1", date, 3, "2.00"),
	}

	aggregates, err := aggregator.AggregateSeason(transactions, SeasonWinter)
	assert.NoError(t, err)
	assert.Len(t, aggregates, 1)
	assert.Equal(t, int64(8), aggregates[0].TotalQuantity)
	assert.Equal(t, 1, aggregates[0].UniqueOrders)
}

// TestAggregator_EmptySeason は取引のないシーズンのエラーテスト
func TestAggregator_EmptySeason(t *testing.T) {
	aggregator := NewAggregator(zap.NewNop())

	mar := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		makeTx("PARACETAMOL 500MG", "INV-1", mar, 10, "5.00"),
	}

	_, err := aggregator.AggregateSeason(transactions, SeasonMonsoon)

	var empty *EmptySeasonError
	assert.ErrorAs(t, err, &empty)
	assert.Equal(t, SeasonMonsoon, empty.Season)
}

// TestAggregator_DaysInSeason は観測日数計算のテスト
func TestAggregator_DaysInSeason(t *testing.T) {
	aggregator := NewAggregator(zap.NewNop())

	start := time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC)

	transactions := []Transaction{
		makeTx("PARACETAMOL 500MG", "INV-1", end, 1, "1.00"),
		makeTx("CETIRIZINE 10MG", "INV-2", start, 1, "1.00"),
	}

	assert.Equal(t, 30, aggregator.DaysInSeason(transactions, SeasonWinter, 90))

	// 単一日のデータはフォールバック
	single := []Transaction{makeTx("PARACETAMOL 500MG", "INV-1", start, 1, "1.00")}
	assert.Equal(t, 90, aggregator.DaysInSeason(single, SeasonWinter, 90))

	// 対象シーズンのデータなしもフォールバック
	assert.Equal(t, 90, aggregator.DaysInSeason(transactions, SeasonMonsoon, 90))
}
