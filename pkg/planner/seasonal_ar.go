package planner

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// fitSeasonalAR fits the weekly model with order (1,1,1) and seasonal order
// (1,1,0,12): the series is seasonally differenced at lag 12, then regular
// differenced once, and AR/MA coefficients are estimated on the result by
// conditional least squares (a Hannan-Rissanen two-stage fit). Stationarity
// and invertibility constraints are not enforced. The seasonal AR term is
// included only when the differenced series is long enough to identify it.
// 週次モデルを(1,1,1)×(1,1,0,12)の構造でフィット。系列をラグ12で季節差分、
// さらに1階差分し、条件付き最小二乗（Hannan-Rissanen二段階法）でAR/MA係数を
// 推定。定常性・反転可能性の制約は課さない。季節AR項は差分系列が十分に
// 長い場合のみ含める。
func fitSeasonalAR(dates []time.Time, values []float64, horizon int) ([]ForecastPoint, error) {
	n := len(values)

	// 季節差分: w_t = y_t - y_{t-12}
	w := make([]float64, 0, n-weeklySeasonalLag)
	for t := weeklySeasonalLag; t < n; t++ {
		w = append(w, values[t]-values[t-weeklySeasonalLag])
	}

	// 1階差分: z_t = w_t - w_{t-1}
	z := make([]float64, 0, len(w)-1)
	for t := 1; t < len(w); t++ {
		z = append(z, w[t]-w[t-1])
	}

	if len(z) < 4 {
		return nil, fmt.Errorf("差分系列が短すぎます: %d", len(z))
	}

	useSeasonalAR := len(z) > weeklySeasonalLag+4

	// 第1段階: AR項のみの最小二乗フィット
	start := 1
	if useSeasonalAR {
		start = weeklySeasonalLag
	}
	var rowsX [][]float64
	var rowsY []float64
	for t := start; t < len(z); t++ {
		row := []float64{z[t-1]}
		if useSeasonalAR {
			row = append(row, z[t-weeklySeasonalLag])
		}
		rowsX = append(rowsX, row)
		rowsY = append(rowsY, z[t])
	}
	stage1, err := solveLeastSquares(rowsX, rowsY)
	if err != nil {
		return nil, err
	}

	residuals := make([]float64, len(rowsY))
	for i, row := range rowsX {
		fitted := 0.0
		for j, v := range row {
			fitted += stage1[j] * v
		}
		residuals[i] = rowsY[i] - fitted
	}

	// 第2段階: 1期前残差をMA項として追加
	var rowsX2 [][]float64
	var rowsY2 []float64
	for i := 1; i < len(rowsY); i++ {
		row := append(append([]float64(nil), rowsX[i]...), residuals[i-1])
		rowsX2 = append(rowsX2, row)
		rowsY2 = append(rowsY2, rowsY[i])
	}
	coeffs, err := solveLeastSquares(rowsX2, rowsY2)
	if err != nil {
		return nil, err
	}

	phi1 := coeffs[0]
	phi12 := 0.0
	theta := coeffs[1]
	if useSeasonalAR {
		phi12 = coeffs[1]
		theta = coeffs[2]
	}

	finalResiduals := make([]float64, len(rowsY2))
	for i, row := range rowsX2 {
		fitted := 0.0
		for j, v := range row {
			fitted += coeffs[j] * v
		}
		finalResiduals[i] = rowsY2[i] - fitted
	}
	sigma := stat.StdDev(finalResiduals, nil)
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("残差分散を推定できませんでした")
	}

	// 逐次予測: 差分系列を延長してから差分を逆変換
	zExt := append([]float64(nil), z...)
	wExt := append([]float64(nil), w...)
	yExt := append([]float64(nil), values...)
	lastResidual := finalResiduals[len(finalResiduals)-1]
	lastDate := dates[len(dates)-1]

	points := make([]ForecastPoint, 0, horizon)
	for h := 1; h <= horizon; h++ {
		idx := len(zExt)
		zNext := phi1 * zExt[idx-1]
		if useSeasonalAR {
			zNext += phi12 * zExt[idx-weeklySeasonalLag]
		}
		if h == 1 {
			zNext += theta * lastResidual
		}
		zExt = append(zExt, zNext)

		wNext := zNext + wExt[len(wExt)-1]
		wExt = append(wExt, wNext)

		yNext := wNext + yExt[len(yExt)-weeklySeasonalLag]
		yExt = append(yExt, yNext)

		period := lastDate.AddDate(0, 0, 7*h)
		halfWidth := z95 * sigma * math.Sqrt(float64(h))
		points = append(points, ForecastPoint{
			Period:      period,
			PeriodLabel: period.Format("2006-01-02"),
			Predicted:   yNext,
			Lower:       yNext - halfWidth,
			Upper:       yNext + halfWidth,
		})
	}

	return points, nil
}

// solveLeastSquares solves an ordinary least squares problem via QR
// QR分解で最小二乗問題を解く
func solveLeastSquares(x [][]float64, y []float64) ([]float64, error) {
	rows := len(x)
	if rows == 0 {
		return nil, fmt.Errorf("回帰用の観測行がありません")
	}
	cols := len(x[0])
	if rows < cols {
		return nil, fmt.Errorf("観測行数 %d が係数 %d に対して不足しています", rows, cols)
	}

	a := mat.NewDense(rows, cols, nil)
	for i, row := range x {
		a.SetRow(i, row)
	}
	b := mat.NewDense(rows, 1, y)

	var qr mat.QR
	qr.Factorize(a)

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, b); err != nil {
		return nil, fmt.Errorf("最小二乗解の計算に失敗しました: %w", err)
	}

	coeffs := make([]float64, cols)
	for i := range coeffs {
		coeffs[i] = beta.At(i, 0)
	}
	return coeffs, nil
}
