package planner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// fitDecomposition fits the daily seasonal-decomposition model: a linear
// trend with multiplicative weekly and yearly seasonal factors (daily
// seasonality disabled). The series is extended by horizonMonths*30 days and
// the strictly-future portion is aggregated into monthly buckets, summing
// predicted, lower and upper values per month at a 95% interval.
// 日次の季節分解モデルをフィット。線形トレンドに乗法的な週次・年次の季節
// 係数を掛け合わせる（日内季節性は無効）。系列を予測月数×30日分延長し、
// 最終観測日より後の部分のみを月次バケットに集計（95%区間）。
func fitDecomposition(dates []time.Time, values []float64, horizonMonths int) ([]ForecastPoint, error) {
	n := len(values)
	if n < 2 {
		return nil, fmt.Errorf("日次系列が短すぎます: %d", n)
	}

	// 線形トレンド
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, values, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return nil, fmt.Errorf("トレンド推定に失敗しました")
	}
	trend := func(t float64) float64 {
		return alpha + beta*t
	}

	const eps = 1e-9

	// 乗法的な季節係数: 曜日（週次）と月（年次の代理）
	var weekdaySum, weekdayCount [7]float64
	var monthSum, monthCount [13]float64
	for i, v := range values {
		ratio := v / math.Max(trend(float64(i)), eps)
		wd := int(dates[i].Weekday())
		weekdaySum[wd] += ratio
		weekdayCount[wd]++
		m := int(dates[i].Month())
		monthSum[m] += ratio
		monthCount[m]++
	}

	weekdayFactor := normalizeFactors(weekdaySum[:], weekdayCount[:])
	monthFactor := normalizeFactors(monthSum[:], monthCount[:])

	// 残差比率から区間幅を推定
	ratios := make([]float64, n)
	for i, v := range values {
		fitted := math.Max(trend(float64(i)), eps) *
			weekdayFactor[int(dates[i].Weekday())] *
			monthFactor[int(dates[i].Month())]
		ratios[i] = v / math.Max(fitted, eps)
	}
	sigmaRatio := stat.StdDev(ratios, nil)
	if math.IsNaN(sigmaRatio) || math.IsInf(sigmaRatio, 0) {
		return nil, fmt.Errorf("残差比率の分散を推定できませんでした")
	}

	// 最終観測日より後の日次予測を月次バケットへ集計
	lastDate := dates[n-1]
	buckets := make(map[time.Time]*ForecastPoint)
	for d := 1; d <= horizonMonths*30; d++ {
		date := lastDate.AddDate(0, 0, d)
		predicted := math.Max(trend(float64(n-1+d)), 0) *
			weekdayFactor[int(date.Weekday())] *
			monthFactor[int(date.Month())]
		lower := math.Max(predicted*(1-z95*sigmaRatio), 0)
		upper := predicted * (1 + z95*sigmaRatio)

		month := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		point, ok := buckets[month]
		if !ok {
			point = &ForecastPoint{
				Period:      month,
				PeriodLabel: month.Format("2006-01"),
			}
			buckets[month] = point
		}
		point.Predicted += predicted
		point.Lower += lower
		point.Upper += upper
	}

	months := make([]time.Time, 0, len(buckets))
	for month := range buckets {
		months = append(months, month)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	points := make([]ForecastPoint, 0, len(months))
	for _, month := range months {
		points = append(points, *buckets[month])
	}
	return points, nil
}

// normalizeFactors converts per-bin ratio sums into factors centered on 1.
// Bins without observations default to a neutral factor.
// ビンごとの比率合計を平均1の係数に正規化。観測のないビンは中立係数。
func normalizeFactors(sums, counts []float64) []float64 {
	factors := make([]float64, len(sums))
	var total, represented float64
	for i := range sums {
		if counts[i] > 0 {
			factors[i] = sums[i] / counts[i]
			total += factors[i]
			represented++
		} else {
			factors[i] = 1
		}
	}
	if represented == 0 {
		return factors
	}
	mean := total / represented
	if mean <= 0 {
		return factors
	}
	for i := range factors {
		if counts[i] > 0 {
			factors[i] = factors[i] / mean
		}
	}
	return factors
}
