// Package planner provides seasonal demand planning for pharmacy point-of-sale data
package planner

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Season represents one of the three demand seasons
// 3つの需要シーズンのいずれかを表現
type Season string

const (
	SeasonSummer  Season = "Summer"  // 夏季（2月〜5月）
	SeasonMonsoon Season = "Monsoon" // 雨季（6月〜9月）
	SeasonWinter  Season = "Winter"  // 冬季（10月〜1月）
)

// AllSeasons lists the seasons in reporting order
// レポート出力順のシーズン一覧
var AllSeasons = []Season{SeasonSummer, SeasonMonsoon, SeasonWinter}

// RawTable represents an untyped tabular input prior to sanitization
// サニタイズ前の型なし表形式入力を表現
type RawTable struct {
	Columns []string   // 列名（順序保持）
	Rows    [][]string // 行データ
}

// RequiredColumns is the fixed column set every raw input must carry
// すべての生データ入力が持つべき固定列セット
var RequiredColumns = []string{
	"date", "time", "invoice_id", "medicine_name", "generic_name",
	"brand", "manufacturer", "supplier", "dosage_form", "strength",
	"category", "prescription_required", "quantity", "unit_price",
}

// Transaction represents a single sanitized point-of-sale row
// サニタイズ済みのPOS販売行を表現
type Transaction struct {
	Date                 time.Time       `json:"date" db:"sale_date"`                             // 販売日
	Time                 string          `json:"time" db:"sale_time"`                             // 販売時刻
	InvoiceID            string          `json:"invoice_id" db:"invoice_id"`                      // 請求書ID（同時購入のグループ化）
	MedicineName         string          `json:"medicine_name" db:"medicine_name"`                // 医薬品名（原文）
	MedicineKey          string          `json:"medicine_key" db:"medicine_key"`                  // 正規化済み結合キー
	GenericName          string          `json:"generic_name" db:"generic_name"`                  // 一般名
	Brand                string          `json:"brand" db:"brand"`                                // ブランド
	Manufacturer         string          `json:"manufacturer" db:"manufacturer"`                  // 製造元
	Supplier             string          `json:"supplier" db:"supplier"`                          // 仕入先
	DosageForm           string          `json:"dosage_form" db:"dosage_form"`                    // 剤形
	Strength             string          `json:"strength" db:"strength"`                          // 含量
	Category             string          `json:"category" db:"category"`                          // カテゴリ
	PrescriptionRequired bool            `json:"prescription_required" db:"prescription_required"` // 処方箋要否
	Quantity             int64           `json:"quantity" db:"quantity"`                          // 数量（> 0）
	UnitPrice            decimal.Decimal `json:"unit_price" db:"unit_price"`                      // 単価（> 0）
	TotalSales           decimal.Decimal `json:"total_sales" db:"total_sales"`                    // 売上高 = 数量 × 単価
	Season               Season          `json:"season" db:"season"`                              // 導出シーズン
	SeasonYear           string          `json:"season_year" db:"season_year"`                    // シーズン年ラベル
}

// QualityReport summarizes row drops observed during sanitization
// サニタイズ中に発生した行削除を集計
type QualityReport struct {
	InputRows              int `json:"input_rows"`               // 入力行数
	RetainedRows           int `json:"retained_rows"`            // 保持行数
	DroppedMissingCritical int `json:"dropped_missing_critical"` // 必須項目欠落による削除
	DroppedInvalidNumeric  int `json:"dropped_invalid_numeric"`  // 数値変換失敗による削除
	DroppedNonPositive     int `json:"dropped_non_positive"`     // 非正値による削除
}

// DroppedTotal returns the total number of dropped rows
// 削除行の合計を返却
func (q *QualityReport) DroppedTotal() int {
	return q.DroppedMissingCritical + q.DroppedInvalidNumeric + q.DroppedNonPositive
}

// SeasonalAggregate holds per-medicine statistics for one season
// 1シーズンにおける医薬品ごとの統計を保持
type SeasonalAggregate struct {
	Season       Season          `json:"season" db:"season"`                 // シーズン
	MedicineKey  string          `json:"medicine_key" db:"medicine_key"`     // 医薬品キー
	GenericName  string          `json:"generic_name" db:"generic_name"`     // 一般名
	Category     string          `json:"category" db:"category"`             // カテゴリ
	TotalQuantity int64          `json:"total_quantity" db:"total_quantity"` // 合計数量
	TotalRevenue decimal.Decimal `json:"total_revenue" db:"total_revenue"`   // 合計売上
	UniqueOrders int             `json:"unique_orders" db:"unique_orders"`   // 請求書の一意件数
	AvgUnitPrice decimal.Decimal `json:"avg_unit_price" db:"avg_unit_price"` // 平均単価
}

// PriorityLevel defines ordering urgency buckets
// 発注緊急度バケットを定義
type PriorityLevel string

const (
	PriorityCritical PriorityLevel = "CRITICAL" // 最優先
	PriorityHigh     PriorityLevel = "HIGH"     // 高
	PriorityMedium   PriorityLevel = "MEDIUM"   // 中
	PriorityLow      PriorityLevel = "LOW"      // 低
)

// PriorityActions maps each level to its fixed purchasing action
// 各優先度に対応する固定の発注アクション
var PriorityActions = map[PriorityLevel]string{
	PriorityCritical: "MUST ORDER IMMEDIATELY",
	PriorityHigh:     "ORDER RECOMMENDED",
	PriorityMedium:   "ORDER IF BUDGET ALLOWS",
	PriorityLow:      "STOCK ON DEMAND",
}

// Recommendation is one ranked, buffered stock suggestion for a medicine
// 医薬品ごとのランク付き・バッファ込み在庫提案
type Recommendation struct {
	Rank                   int             `json:"rank"`                     // 1始まりの密なランク
	MedicineKey            string          `json:"medicine_key"`             // 医薬品キー
	GenericName            string          `json:"generic_name"`             // 一般名
	Category               string          `json:"category"`                 // カテゴリ
	LastSeasonSales        int64           `json:"last_season_sales"`        // 前シーズン販売数量
	SuggestedStockQuantity int64           `json:"suggested_stock_quantity"` // 提案在庫数量
	DailyAvgSales          float64         `json:"daily_avg_sales"`          // 日次平均販売数
	TotalRevenue           decimal.Decimal `json:"total_revenue"`            // 合計売上
	AvgUnitPrice           decimal.Decimal `json:"avg_unit_price"`           // 平均単価
	UniqueOrders           int             `json:"unique_orders"`            // 請求書の一意件数
	IsFastMover            bool            `json:"is_fast_mover"`            // 高回転品フラグ
	Priority               PriorityLevel   `json:"priority_level"`           // 優先度
	Action                 string          `json:"action"`                   // 発注アクション
	ReorderPoint           float64         `json:"reorder_point"`            // 発注点（日次平均 × 7）
	StockDurationDays      float64         `json:"stock_duration_days"`      // 提案在庫の持続日数
}

// PriorityTier groups recommendations sharing one priority level
// 同一優先度の推奨をグループ化
type PriorityTier struct {
	Level  PriorityLevel    `json:"level"`  // 優先度
	Action string           `json:"action"` // 発注アクション
	Items  []Recommendation `json:"items"`  // 対象医薬品
}

// CalendarWindow is one scheduling window of the ordering calendar
// 発注カレンダーの1スケジュール枠
type CalendarWindow struct {
	Week          string          `json:"week"`           // 週ラベル
	Action        string          `json:"action"`         // アクション
	MedicineCount int             `json:"medicines_count"` // 医薬品件数
	TotalQuantity int64           `json:"total_quantity"` // 合計提案数量
	EstimatedCost decimal.Decimal `json:"estimated_cost"` // 見積コスト
	Priority      string          `json:"priority"`       // 緊急度ラベル
}

// RecommendationSet is a complete recommendation run for one season
// 1シーズン分の完全な推奨結果
type RecommendationSet struct {
	ID             string           `json:"id"`              // 実行ID
	Season         Season           `json:"season"`          // 対象シーズン
	BufferFraction float64          `json:"buffer_fraction"` // バッファ率
	DaysInSeason   int              `json:"days_in_season"`  // 観測シーズン日数
	GeneratedAt    time.Time        `json:"generated_at"`    // 生成日時
	Items          []Recommendation `json:"items"`           // ランク順の推奨
	Tiers          []PriorityTier   `json:"tiers"`           // 優先度ティア
	Calendar       []CalendarWindow `json:"calendar"`        // 発注カレンダー
}

// ModelKind identifies a forecasting strategy
// 予測戦略を識別
type ModelKind string

const (
	ModelSeasonalAR    ModelKind = "seasonal-autoregressive"          // 週次の季節自己回帰モデル
	ModelDecomposition ModelKind = "additive-seasonal-decomposition"  // 日次の季節分解モデル
)

// FailureReason classifies why a model produced no forecast
// モデルが予測を生成できなかった理由を分類
type FailureReason string

const (
	FailureInsufficientHistory FailureReason = "insufficient_history" // 観測数不足
	FailureFitFailed           FailureReason = "fit_failed"           // 数値フィット失敗
)

// ModelFailure carries details of a gated or failed model attempt
// ゲートまたは失敗したモデル試行の詳細を保持
type ModelFailure struct {
	Reason       FailureReason `json:"reason"`       // 失敗理由
	Message      string        `json:"message"`      // 詳細メッセージ
	Observations int           `json:"observations"` // 実際の観測数
	Required     int           `json:"required"`     // 必要な観測数
}

// ForecastPoint is a single predicted period with uncertainty bounds
// 不確実性付きの単一予測期間
type ForecastPoint struct {
	Period      time.Time `json:"period"`       // 期間開始日
	PeriodLabel string    `json:"period_label"` // 期間ラベル
	Predicted   float64   `json:"predicted"`    // 予測数量
	Lower       float64   `json:"lower"`        // 下限
	Upper       float64   `json:"upper"`        // 上限
}

// ModelResult holds one model's outcome: points on success, failure otherwise
// 1モデルの結果を保持（成功時は予測点、それ以外は失敗情報）
type ModelResult struct {
	Kind            ModelKind       `json:"model_kind"`       // モデル種別
	Observations    int             `json:"observations"`     // 使用した観測数
	ConfidenceLevel float64         `json:"confidence_level"` // 信頼水準
	Points          []ForecastPoint `json:"points,omitempty"` // 予測点
	Failure         *ModelFailure   `json:"failure,omitempty"` // 失敗情報（成功時はnil）
}

// OK reports whether the model produced a usable forecast
// モデルが利用可能な予測を生成したかを返却
func (r *ModelResult) OK() bool {
	return r.Failure == nil
}

// MedicineForecast bundles both model attempts for a single medicine
// 単一医薬品に対する両モデルの試行結果をまとめる
type MedicineForecast struct {
	MedicineKey   string      `json:"medicine_key"`   // 医薬品キー
	TotalQuantity int64       `json:"total_quantity"` // 累計販売数量
	SeasonalAR    ModelResult `json:"sarima"`         // 季節自己回帰モデルの結果
	Decomposition ModelResult `json:"decomposition"`  // 季節分解モデルの結果
}

// SeasonTiming describes the purchasing calendar context of a season
// シーズンの発注カレンダー文脈を記述
type SeasonTiming struct {
	Season       Season `json:"season"`        // シーズン
	Months       string `json:"months"`        // 対象月
	OrderBefore  string `json:"order_before"`  // 発注期限
	PeakMonths   string `json:"peak_months"`   // ピーク期間
	DurationDays int    `json:"duration_days"` // シーズン日数
}

// AnalysisRun records one persisted recommendation run
// 永続化された推奨実行の記録
type AnalysisRun struct {
	ID             string    `json:"id" db:"id"`                           // 実行ID
	Season         Season    `json:"season" db:"season"`                   // 対象シーズン
	BufferFraction float64   `json:"buffer_fraction" db:"buffer_fraction"` // バッファ率
	DaysInSeason   int       `json:"days_in_season" db:"days_in_season"`   // 観測シーズン日数
	ItemCount      int       `json:"item_count" db:"item_count"`           // 推奨件数
	CreatedAt      time.Time `json:"created_at" db:"created_at"`           // 作成日時
}

// NewAnalysisID generates a new analysis run ID
// 新しい分析実行IDを生成
func NewAnalysisID() string {
	return uuid.New().String()
}
