package planner

import (
	"context"
)

// DemandPlanner defines the core interface for seasonal demand planning
// 季節需要計画のコアインターフェースを定義
type DemandPlanner interface {
	// サニタイズ - Sanitization
	Sanitize(table *RawTable) ([]Transaction, *QualityReport, error)

	// 推奨生成 - Recommendation
	Recommend(ctx context.Context, transactions []Transaction, season Season, bufferFraction float64) (*RecommendationSet, error)
	RecommendFromStore(ctx context.Context, season Season, bufferFraction float64) (*RecommendationSet, error)

	// 需要予測 - Forecasting
	Forecast(ctx context.Context, transactions []Transaction, medicineKey string, horizonWeeks, horizonMonths int) (*MedicineForecast, error)
	ForecastTop(ctx context.Context, transactions []Transaction, n, horizonWeeks, horizonMonths int) ([]*MedicineForecast, error)

	// レポート - Reporting
	SeasonalSummary(transactions []Transaction) []SeasonSummary
	TopSellers(transactions []Transaction, season Season, n int) ([]SeasonalAggregate, error)
	MedicineCatalog(transactions []Transaction) []MedicineInfo
	WeeklyTrend(transactions []Transaction, medicineKey string) (*MedicineTrend, error)
	CategoryBreakdown(transactions []Transaction) []CategorySummary
	OrderingGuide(set *RecommendationSet) *PurchasingGuide
	ActionableInsights(set *RecommendationSet) *SeasonInsights
}

// Storage defines the interface for the transaction persistence layer.
// The planner itself only reads; writes happen at the ingestion boundary.
// 取引データ永続化層のインターフェースを定義。
// プランナー自身は読み取りのみで、書き込みは取り込み境界で行う。
type Storage interface {
	// Transaction persistence
	SaveTransactions(ctx context.Context, transactions []Transaction) (int, error)
	ListTransactions(ctx context.Context) ([]Transaction, error)
	ListTransactionsBySeason(ctx context.Context, season Season) ([]Transaction, error)
	ListTransactionsByMedicine(ctx context.Context, medicineKey string) ([]Transaction, error)

	// Analysis run records
	SaveAnalysisRun(ctx context.Context, run *AnalysisRun) error
	GetAnalysisRun(ctx context.Context, runID string) (*AnalysisRun, error)
	ListAnalysisRuns(ctx context.Context, limit int) ([]AnalysisRun, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
