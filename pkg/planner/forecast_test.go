package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// 不規則な週次販売数のサンプル系列
var sampleWeeklyQuantities = []int64{
	17, 9, 18, 18, 9, 11, 10, 13, 16, 11, 8, 8,
	8, 12, 16, 14, 12, 16, 17, 11, 14, 9, 10, 13,
	10, 16, 13, 18, 15, 18, 12, 11, 14, 14, 17, 8,
}

// weeklyTransactions は週1件（月曜）の取引系列を作成
func weeklyTransactions(key string, quantities []int64) []Transaction {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC) // 月曜
	transactions := make([]Transaction, 0, len(quantities))
	for i, qty := range quantities {
		date := start.AddDate(0, 0, 7*i)
		transactions = append(transactions, makeTx(key, fmt.Sprintf("INV-%d", i), date, qty, "2.00"))
	}
	return transactions
}

// dailyTransactions は連続する日次取引系列を作成
func dailyTransactions(key string, days int) []Transaction {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	transactions := make([]Transaction, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		qty := int64(5 + i%7)
		transactions = append(transactions, makeTx(key, fmt.Sprintf("INV-%d", i), date, qty, "2.00"))
	}
	return transactions
}

// TestForecaster_TopMedicineKeys は累計数量上位の抽出テスト
func TestForecaster_TopMedicineKeys(t *testing.T) {
	forecaster := NewForecaster(zap.NewNop())

	date := time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		makeTx("BETA", "INV-1", date, 50, "1.00"),
		makeTx("ALPHA", "INV-2", date, 30, "1.00"),
		makeTx("GAMMA", "INV-3", date, 30, "1.00"),
		makeTx("BETA", "INV-4", date, 10, "1.00"),
	}

	keys := forecaster.TopMedicineKeys(transactions, 3)

	// 数量降順、同数量はキー昇順
	assert.Equal(t, []string{"BETA", "ALPHA", "GAMMA"}, keys)

	// Nが件数を超える場合は全件
	assert.Len(t, forecaster.TopMedicineKeys(transactions, 10), 3)
}

// TestForecaster_WeeklyGate は週次観測数ゲートのテスト
func TestForecaster_WeeklyGate(t *testing.T) {
	forecaster := NewForecaster(zap.NewNop())

	transactions := weeklyTransactions("PARACETAMOL", sampleWeeklyQuantities[:23])
	forecast := forecaster.Forecast(transactions, "PARACETAMOL", 0, 0)

	result := forecast.SeasonalAR
	assert.False(t, result.OK())
	assert.Equal(t, ModelSeasonalAR, result.Kind)
	assert.Equal(t, FailureInsufficientHistory, result.Failure.Reason)
	assert.Equal(t, 23, result.Failure.Observations)
	assert.Equal(t, MinWeeklyObservations, result.Failure.Required)
	assert.Empty(t, result.Points)
}

// TestForecaster_WeeklyGateBoundary はゲート境界ちょうどのフィットテスト
func TestForecaster_WeeklyGateBoundary(t *testing.T) {
	forecaster := NewForecaster(zap.NewNop())

	transactions := weeklyTransactions("PARACETAMOL", sampleWeeklyQuantities[:24])
	forecast := forecaster.Forecast(transactions, "PARACETAMOL", 8, 0)

	// 24観測ちょうどでフィットが実行され成功する
	result := forecast.SeasonalAR
	assert.True(t, result.OK())
	assert.Equal(t, 24, result.Observations)
	assert.Len(t, result.Points, 8)
}

// TestForecaster_SeasonalARForecast は週次モデルの予測点テスト
func TestForecaster_SeasonalARForecast(t *testing.T) {
	forecaster := NewForecaster(zap.NewNop())

	transactions := weeklyTransactions("PARACETAMOL", sampleWeeklyQuantities)
	forecast := forecaster.Forecast(transactions, "PARACETAMOL", 8, 0)

	result := forecast.SeasonalAR
	assert.True(t, result.OK())
	assert.Equal(t, 36, result.Observations)
	assert.Equal(t, 0.95, result.ConfidenceLevel)
	assert.Len(t, result.Points, 8)

	// 予測点は最終観測週から7日刻みの未来
	lastWeek := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*35)
	for i, point := range result.Points {
		expected := lastWeek.AddDate(0, 0, 7*(i+1))
		assert.Equal(t, expected, point.Period)
		assert.Equal(t, expected.Format("2006-01-02"), point.PeriodLabel)
		assert.LessOrEqual(t, point.Lower, point.Predicted)
		assert.GreaterOrEqual(t, point.Upper, point.Predicted)
	}

	// 区間幅はホライズンとともに広がる
	firstWidth := result.Points[0].Upper - result.Points[0].Lower
	lastWidth := result.Points[7].Upper - result.Points[7].Lower
	assert.GreaterOrEqual(t, lastWidth, firstWidth)
}

// TestForecaster_DailyGate は日次観測数ゲートのテスト
func TestForecaster_DailyGate(t *testing.T) {
	forecaster := NewForecaster(zap.NewNop())

	transactions := dailyTransactions("CETIRIZINE", 29)
	forecast := forecaster.Forecast(transactions, "CETIRIZINE", 0, 0)

	result := forecast.Decomposition
	assert.False(t, result.OK())
	assert.Equal(t, ModelDecomposition, result.Kind)
	assert.Equal(t, FailureInsufficientHistory, result.Failure.Reason)
	assert.Equal(t, 29, result.Failure.Observations)
	assert.Equal(t, MinDailyObservations, result.Failure.Required)
}

// TestForecaster_DecompositionForecast は日次モデルの月次予測テスト
func TestForecaster_DecompositionForecast(t *testing.T) {
	forecaster := NewForecaster(zap.NewNop())

	// 2024-01-01から60日間（最終観測日 2024-02-29）
	transactions := dailyTransactions("CETIRIZINE", 60)
	forecast := forecaster.Forecast(transactions, "CETIRIZINE", 0, 2)

	result := forecast.Decomposition
	assert.True(t, result.OK())
	assert.Equal(t, 60, result.Observations)

	// 60日先は2024-03と2024-04の2バケット
	assert.Len(t, result.Points, 2)
	assert.Equal(t, "2024-03", result.Points[0].PeriodLabel)
	assert.Equal(t, "2024-04", result.Points[1].PeriodLabel)
	for _, point := range result.Points {
		assert.Greater(t, point.Predicted, 0.0)
		assert.LessOrEqual(t, point.Lower, point.Predicted)
		assert.GreaterOrEqual(t, point.Upper, point.Predicted)
	}

	// 週次モデルは観測不足のまま（モデルは独立に判定される）
	assert.False(t, forecast.SeasonalAR.OK())
	assert.Equal(t, FailureInsufficientHistory, forecast.SeasonalAR.Failure.Reason)
}

// TestForecaster_KeyNormalization は医薬品キー正規化と合計数量のテスト
func TestForecaster_KeyNormalization(t *testing.T) {
	forecaster := NewForecaster(zap.NewNop())

	date := time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC)
	transactions := []Transaction{
		makeTx("PARACETAMOL 500MG", "INV-1", date, 10, "2.00"),
		makeTx("CETIRIZINE", "INV-2", date, 5, "2.00"),
	}

	forecast := forecaster.Forecast(transactions, "  paracetamol  500mg ", 0, 0)
	assert.Equal(t, "PARACETAMOL 500MG", forecast.MedicineKey)
	assert.Equal(t, int64(10), forecast.TotalQuantity)

	// 存在しない医薬品は合計ゼロ
	missing := forecaster.Forecast(transactions, "IBUPROFEN", 0, 0)
	assert.Equal(t, int64(0), missing.TotalQuantity)
}

// TestResampleWeekly は週次リサンプリングのテスト
func TestResampleWeekly(t *testing.T) {
	// 2024-01-03は水曜: 週開始は2024-01-01（月曜）
	wed := time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
	twoWeeksLater := wed.AddDate(0, 0, 14)

	transactions := []Transaction{
		makeTx("PARACETAMOL", "INV-1", wed, 5, "1.00"),
		makeTx("PARACETAMOL", "INV-2", twoWeeksLater, 7, "1.00"),
	}

	dates, values := resampleWeekly(transactions)

	// 中間の欠損週はゼロ埋めされる
	assert.Len(t, dates, 3)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, []float64{5, 0, 7}, values)
}

// TestForecaster_SeasonalARFitFailure は数値フィット失敗の変換テスト
func TestForecaster_SeasonalARFitFailure(t *testing.T) {
	forecaster := NewForecaster(zap.NewNop())

	// 定数系列は差分後にゼロとなり、最小二乗系が特異になる
	quantities := make([]int64, 30)
	for i := range quantities {
		quantities[i] = 10
	}
	transactions := weeklyTransactions("PARACETAMOL", quantities)

	forecast := forecaster.Forecast(transactions, "PARACETAMOL", 0, 0)

	result := forecast.SeasonalAR
	assert.False(t, result.OK())
	assert.Equal(t, FailureFitFailed, result.Failure.Reason)
	assert.NotEmpty(t, result.Failure.Message)
	assert.Empty(t, result.Points)
	assert.Equal(t, 30, result.Observations)

	// 一方のフィット失敗が他方のモデルの試行を妨げない
	assert.Equal(t, ModelDecomposition, forecast.Decomposition.Kind)
	assert.Equal(t, 30, forecast.Decomposition.Observations)
	if forecast.Decomposition.Failure != nil {
		assert.Equal(t, FailureFitFailed, forecast.Decomposition.Failure.Reason)
	}
}
