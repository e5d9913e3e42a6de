package planner

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// 予測モデルの固定パラメータ
const (
	// MinWeeklyObservations gates the seasonal-autoregressive model
	// 季節自己回帰モデルの最小週次観測数
	MinWeeklyObservations = 24

	// MinDailyObservations gates the seasonal-decomposition model
	// 季節分解モデルの最小日次観測数
	MinDailyObservations = 30

	// DefaultHorizonWeeks is the weekly forecast horizon
	// 週次予測のデフォルト期間
	DefaultHorizonWeeks = 12

	// DefaultHorizonMonths is the monthly forecast horizon
	// 月次予測のデフォルト期間
	DefaultHorizonMonths = 3

	// weeklySeasonalLag is the seasonal period of the weekly model
	// 週次モデルの季節周期
	weeklySeasonalLag = 12

	// confidenceLevel is the 2-sided interval width for both models
	// 両モデル共通の両側信頼水準
	confidenceLevel = 0.95

	// z95 is the standard normal quantile for the 95% interval
	// 95%区間に対応する標準正規分位点
	z95 = 1.959963984540054
)

// Forecaster builds per-medicine time series and runs the two independent
// forecasting strategies with minimum-data gating
// 医薬品ごとの時系列を構築し、最小データゲート付きで
// 2つの独立した予測戦略を実行
type Forecaster struct {
	logger *zap.Logger
}

// NewForecaster creates a new forecaster
// 新しい予測器を作成
func NewForecaster(logger *zap.Logger) *Forecaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forecaster{logger: logger}
}

// Forecast attempts both models for one medicine. Each model is independently
// gated and independently nullable; a failure in one never aborts the other.
// 1医薬品に対し両モデルを試行。各モデルは独立にゲートされ、
// 一方の失敗が他方を中断することはない。
func (f *Forecaster) Forecast(transactions []Transaction, medicineKey string, horizonWeeks, horizonMonths int) *MedicineForecast {
	if horizonWeeks <= 0 {
		horizonWeeks = DefaultHorizonWeeks
	}
	if horizonMonths <= 0 {
		horizonMonths = DefaultHorizonMonths
	}

	key := NormalizeMedicineKey(medicineKey)
	var filtered []Transaction
	var total int64
	for _, tx := range transactions {
		if tx.MedicineKey == key {
			filtered = append(filtered, tx)
			total += tx.Quantity
		}
	}

	forecast := &MedicineForecast{
		MedicineKey:   key,
		TotalQuantity: total,
	}

	weeklyDates, weeklyValues := resampleWeekly(filtered)
	forecast.SeasonalAR = f.runSeasonalAR(key, weeklyDates, weeklyValues, horizonWeeks)

	dailyDates, dailyValues, observedDays := resampleDaily(filtered)
	forecast.Decomposition = f.runDecomposition(key, dailyDates, dailyValues, observedDays, horizonMonths)

	return forecast
}

// ForecastTop forecasts the top-N medicines by total historical quantity.
// Ties are broken by ascending medicine key so output order is deterministic.
// 累計販売数量の上位N医薬品を予測。同数量は医薬品キーの昇順で解決し、
// 出力順を決定的にする。
func (f *Forecaster) ForecastTop(transactions []Transaction, n, horizonWeeks, horizonMonths int) []*MedicineForecast {
	keys := f.TopMedicineKeys(transactions, n)
	forecasts := make([]*MedicineForecast, 0, len(keys))
	for _, key := range keys {
		forecasts = append(forecasts, f.Forecast(transactions, key, horizonWeeks, horizonMonths))
	}
	return forecasts
}

// TopMedicineKeys returns the N medicines with the highest total quantity sold
// 累計販売数量が最も多いN医薬品を返却
func (f *Forecaster) TopMedicineKeys(transactions []Transaction, n int) []string {
	totals := make(map[string]int64)
	for _, tx := range transactions {
		totals[tx.MedicineKey] += tx.Quantity
	}

	keys := make([]string, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if totals[keys[i]] != totals[keys[j]] {
			return totals[keys[i]] > totals[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if n > 0 && n < len(keys) {
		keys = keys[:n]
	}
	return keys
}

// runSeasonalAR gates and fits the weekly seasonal-autoregressive model.
// Fit panics are recovered and converted into a failure result.
// 週次の季節自己回帰モデルをゲート・フィット。
// フィット中のパニックは回復され失敗結果に変換される。
func (f *Forecaster) runSeasonalAR(key string, dates []time.Time, values []float64, horizon int) (result ModelResult) {
	result = ModelResult{
		Kind:            ModelSeasonalAR,
		Observations:    len(values),
		ConfidenceLevel: confidenceLevel,
	}

	if len(values) < MinWeeklyObservations {
		gateErr := InsufficientHistoryError{
			MedicineKey:  key,
			Model:        ModelSeasonalAR,
			Observations: len(values),
			Required:     MinWeeklyObservations,
		}
		f.logger.Warn("週次観測数が不足しています",
			zap.String("medicine_key", key),
			zap.Int("observations", len(values)),
			zap.Int("required", MinWeeklyObservations),
		)
		result.Failure = &ModelFailure{
			Reason:       FailureInsufficientHistory,
			Message:      gateErr.Error(),
			Observations: len(values),
			Required:     MinWeeklyObservations,
		}
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			fitErr := ModelFitError{MedicineKey: key, Model: ModelSeasonalAR, Message: fmt.Sprint(r)}
			f.logger.Error("季節自己回帰モデルのフィット中にパニックが発生しました",
				zap.String("medicine_key", key),
				zap.Any("panic", r),
			)
			result.Points = nil
			result.Failure = &ModelFailure{Reason: FailureFitFailed, Message: fitErr.Error()}
		}
	}()

	points, err := fitSeasonalAR(dates, values, horizon)
	if err != nil {
		fitErr := ModelFitError{MedicineKey: key, Model: ModelSeasonalAR, Message: err.Error()}
		f.logger.Warn("季節自己回帰モデルのフィットに失敗しました",
			zap.String("medicine_key", key),
			zap.Error(err),
		)
		result.Failure = &ModelFailure{Reason: FailureFitFailed, Message: fitErr.Error()}
		return result
	}

	result.Points = points
	return result
}

// runDecomposition gates and fits the daily seasonal-decomposition model
// 日次の季節分解モデルをゲート・フィット
func (f *Forecaster) runDecomposition(key string, dates []time.Time, values []float64, observedDays, horizonMonths int) (result ModelResult) {
	result = ModelResult{
		Kind:            ModelDecomposition,
		Observations:    observedDays,
		ConfidenceLevel: confidenceLevel,
	}

	if observedDays < MinDailyObservations {
		gateErr := InsufficientHistoryError{
			MedicineKey:  key,
			Model:        ModelDecomposition,
			Observations: observedDays,
			Required:     MinDailyObservations,
		}
		f.logger.Warn("日次観測数が不足しています",
			zap.String("medicine_key", key),
			zap.Int("observations", observedDays),
			zap.Int("required", MinDailyObservations),
		)
		result.Failure = &ModelFailure{
			Reason:       FailureInsufficientHistory,
			Message:      gateErr.Error(),
			Observations: observedDays,
			Required:     MinDailyObservations,
		}
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			fitErr := ModelFitError{MedicineKey: key, Model: ModelDecomposition, Message: fmt.Sprint(r)}
			f.logger.Error("季節分解モデルのフィット中にパニックが発生しました",
				zap.String("medicine_key", key),
				zap.Any("panic", r),
			)
			result.Points = nil
			result.Failure = &ModelFailure{Reason: FailureFitFailed, Message: fitErr.Error()}
		}
	}()

	points, err := fitDecomposition(dates, values, horizonMonths)
	if err != nil {
		fitErr := ModelFitError{MedicineKey: key, Model: ModelDecomposition, Message: err.Error()}
		f.logger.Warn("季節分解モデルのフィットに失敗しました",
			zap.String("medicine_key", key),
			zap.Error(err),
		)
		result.Failure = &ModelFailure{Reason: FailureFitFailed, Message: fitErr.Error()}
		return result
	}

	result.Points = points
	return result
}

// resampleWeekly sums quantities into Monday-anchored weekly buckets,
// filling gap weeks with zero between the first and last observed weeks
// 数量を月曜始まりの週次バケットに集計し、欠損週はゼロで埋める
func resampleWeekly(transactions []Transaction) ([]time.Time, []float64) {
	if len(transactions) == 0 {
		return nil, nil
	}

	sums := make(map[time.Time]float64)
	var first, last time.Time
	for _, tx := range transactions {
		week := weekStart(tx.Date)
		sums[week] += float64(tx.Quantity)
		if first.IsZero() || week.Before(first) {
			first = week
		}
		if last.IsZero() || week.After(last) {
			last = week
		}
	}

	var dates []time.Time
	var values []float64
	for week := first; !week.After(last); week = week.AddDate(0, 0, 7) {
		dates = append(dates, week)
		values = append(values, sums[week])
	}
	return dates, values
}

// resampleDaily sums quantities per calendar day over a continuous range.
// The observed-day count (days with actual sales) drives the model gate.
// 数量を暦日ごとに連続区間で集計。実売のあった日数がゲート判定に使われる。
func resampleDaily(transactions []Transaction) ([]time.Time, []float64, int) {
	if len(transactions) == 0 {
		return nil, nil, 0
	}

	sums := make(map[time.Time]float64)
	var first, last time.Time
	for _, tx := range transactions {
		day := dayStart(tx.Date)
		sums[day] += float64(tx.Quantity)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}
	observedDays := len(sums)

	var dates []time.Time
	var values []float64
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		dates = append(dates, day)
		values = append(values, sums[day])
	}
	return dates, values, observedDays
}

// weekStart truncates a date to the Monday of its week
// 日付をその週の月曜日に切り詰める
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// dayStart truncates a timestamp to its calendar day
// タイムスタンプを暦日に切り詰める
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
