package planner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Planner implements the DemandPlanner interface. It is stateless between
// calls: every run recomputes its aggregates from the supplied transaction
// snapshot and returns results by value.
// DemandPlannerインターフェースの実装。呼び出し間で状態を持たず、
// 毎回渡された取引スナップショットから集計を再計算する。
type Planner struct {
	sanitizer  *Sanitizer            // 行サニタイザー
	aggregator *Aggregator           // シーズン集計
	engine     *RecommendationEngine // 推奨エンジン
	forecaster *Forecaster           // 予測器
	storage    Storage               // ストレージ層（nilの場合はメモリ内動作）
	logger     *zap.Logger           // ログ
	config     *Config               // 設定
}

// DemandPlannerインターフェースを実装することを明示
var _ DemandPlanner = (*Planner)(nil)

// Config holds configuration for the demand planner
// 需要プランナーの設定を保持
type Config struct {
	BufferFraction     float64 `yaml:"buffer_fraction"`      // 安全在庫バッファ率
	HorizonWeeks       int     `yaml:"horizon_weeks"`        // 週次予測期間
	HorizonMonths      int     `yaml:"horizon_months"`       // 月次予測期間
	TopMedicines       int     `yaml:"top_medicines"`        // 予測対象の上位件数
	FallbackSeasonDays int     `yaml:"fallback_season_days"` // シーズン日数のフォールバック
}

// NewPlanner creates a new demand planner. Storage may be nil for purely
// in-memory use; persisted analysis runs are then skipped.
// 新しい需要プランナーを作成。ストレージはnil可（メモリ内動作）。
func NewPlanner(storage Storage, logger *zap.Logger, config *Config) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil {
		config = &Config{
			BufferFraction:     DefaultBufferFraction,
			HorizonWeeks:       DefaultHorizonWeeks,
			HorizonMonths:      DefaultHorizonMonths,
			TopMedicines:       10,
			FallbackSeasonDays: FallbackSeasonDays,
		}
	}

	return &Planner{
		sanitizer:  NewSanitizer(logger),
		aggregator: NewAggregator(logger),
		engine:     NewRecommendationEngine(logger),
		forecaster: NewForecaster(logger),
		storage:    storage,
		logger:     logger,
		config:     config,
	}
}

// Sanitize validates and coerces raw rows into typed Transactions
// 生データ行を型付きTransactionに検証・変換
func (p *Planner) Sanitize(table *RawTable) ([]Transaction, *QualityReport, error) {
	return p.sanitizer.Sanitize(table)
}

// Recommend produces a recommendation set for one season from the supplied
// transactions. A negative bufferFraction applies the configured default;
// zero is honored as a genuine no-buffer request. A season without
// transactions surfaces an EmptySeasonError, never a zero-filled result.
// 渡された取引から1シーズン分の推奨セットを生成。負のバッファ率は
// 設定済みデフォルトを適用し、ゼロはバッファなしとして扱う。取引のない
// シーズンはEmptySeasonErrorを返し、ゼロ埋め結果にはしない。
func (p *Planner) Recommend(ctx context.Context, transactions []Transaction, season Season, bufferFraction float64) (*RecommendationSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bufferFraction < 0 {
		bufferFraction = p.config.BufferFraction
	}

	aggregates, err := p.aggregator.AggregateSeason(transactions, season)
	if err != nil {
		return nil, err
	}

	days := p.aggregator.DaysInSeason(transactions, season, p.config.FallbackSeasonDays)

	set, err := p.engine.Generate(aggregates, season, days, bufferFraction)
	if err != nil {
		return nil, err
	}

	p.recordAnalysisRun(ctx, set)
	return set, nil
}

// RecommendFromStore reloads the transaction snapshot from storage and
// generates recommendations for the season
// ストレージから取引スナップショットを再読み込みしてシーズンの推奨を生成
func (p *Planner) RecommendFromStore(ctx context.Context, season Season, bufferFraction float64) (*RecommendationSet, error) {
	if p.storage == nil {
		return nil, NewStorageError("list_transactions", "ストレージが設定されていません", nil)
	}

	transactions, err := p.storage.ListTransactionsBySeason(ctx, season)
	if err != nil {
		return nil, NewStorageError("list_transactions_by_season", "シーズン取引の取得に失敗しました", err)
	}

	return p.Recommend(ctx, transactions, season, bufferFraction)
}

// Forecast runs both forecasting models for one medicine. Each model fails
// independently; the returned result always carries both slots.
// 1医薬品に対し両予測モデルを実行。各モデルは独立に失敗し、
// 結果は常に両方のスロットを持つ。
func (p *Planner) Forecast(ctx context.Context, transactions []Transaction, medicineKey string, horizonWeeks, horizonMonths int) (*MedicineForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if medicineKey == "" {
		return nil, NewValidationError("medicine_key", "医薬品キーが指定されていません", "")
	}

	forecast := p.forecaster.Forecast(transactions, medicineKey, horizonWeeks, horizonMonths)
	if forecast.TotalQuantity == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, NormalizeMedicineKey(medicineKey))
	}

	p.logger.Info("需要予測完了",
		zap.String("medicine_key", forecast.MedicineKey),
		zap.Bool("sarima_ok", forecast.SeasonalAR.OK()),
		zap.Bool("decomposition_ok", forecast.Decomposition.OK()),
	)

	return forecast, nil
}

// ForecastTop forecasts the top-N medicines by total historical quantity
// 累計販売数量の上位N医薬品を予測
func (p *Planner) ForecastTop(ctx context.Context, transactions []Transaction, n, horizonWeeks, horizonMonths int) ([]*MedicineForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return nil, ErrNoTransactions
	}
	if n <= 0 {
		n = p.config.TopMedicines
	}

	return p.forecaster.ForecastTop(transactions, n, horizonWeeks, horizonMonths), nil
}

// recordAnalysisRun persists a run record when storage is configured.
// Persistence failures are logged, never fatal to the analysis itself.
// ストレージ設定時に実行記録を永続化。失敗はログのみで分析自体は継続。
func (p *Planner) recordAnalysisRun(ctx context.Context, set *RecommendationSet) {
	if p.storage == nil {
		return
	}

	run := &AnalysisRun{
		ID:             set.ID,
		Season:         set.Season,
		BufferFraction: set.BufferFraction,
		DaysInSeason:   set.DaysInSeason,
		ItemCount:      len(set.Items),
		CreatedAt:      time.Now(),
	}

	if err := p.storage.SaveAnalysisRun(ctx, run); err != nil {
		p.logger.Error("分析実行の記録に失敗しました",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}
