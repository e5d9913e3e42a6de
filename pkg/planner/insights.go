package planner

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SeasonSummary holds season-level totals for the overview report.
// Unlike the aggregator, the summary reports all three seasons, with zero
// rows for seasons that had no sales.
// 概要レポート用のシーズン別合計。アグリゲーターとは異なり、
// 販売のないシーズンもゼロ行として3シーズンすべてを報告する。
type SeasonSummary struct {
	Season        Season          `json:"season"`          // シーズン
	TotalQuantity int64           `json:"total_quantity"`  // 合計数量
	TotalRevenue  decimal.Decimal `json:"total_revenue"`   // 合計売上
	UniqueOrders  int             `json:"unique_orders"`   // 請求書の一意件数
	MedicineCount int             `json:"medicine_count"`  // 医薬品件数
}

// MedicineInfo is one entry of the medicine master catalog
// 医薬品マスターカタログの1エントリ
type MedicineInfo struct {
	MedicineKey   string          `json:"medicine_key"`   // 医薬品キー
	GenericName   string          `json:"generic_name"`   // 一般名
	Category      string          `json:"category"`       // カテゴリ
	TotalQuantity int64           `json:"total_quantity"` // 累計販売数量
	TotalRevenue  decimal.Decimal `json:"total_revenue"`  // 累計売上
}

// TrendPoint is one weekly observation of a medicine trend
// 医薬品トレンドの週次観測点
type TrendPoint struct {
	Week     time.Time `json:"week"`     // 週の開始日（月曜）
	Quantity float64   `json:"quantity"` // 週間販売数量
}

// MedicineTrend describes the weekly sales trend of one medicine
// 1医薬品の週次販売トレンドを記述
type MedicineTrend struct {
	MedicineKey string       `json:"medicine_key"` // 医薬品キー
	Points      []TrendPoint `json:"points"`       // 週次系列
	PeakWeek    time.Time    `json:"peak_week"`    // ピーク週
	PeakQty     float64      `json:"peak_qty"`     // ピーク週の数量
}

// CategorySummary holds per-category sales totals
// カテゴリ別の販売合計を保持
type CategorySummary struct {
	Category      string          `json:"category"`       // カテゴリ
	TotalQuantity int64           `json:"total_quantity"` // 合計数量
	TotalRevenue  decimal.Decimal `json:"total_revenue"`  // 合計売上
	MedicineCount int             `json:"medicine_count"` // 医薬品件数
}

// PurchasingGuide is a human-readable ordering guide for one season
// 1シーズン分の人間可読な発注ガイド
type PurchasingGuide struct {
	Season Season       `json:"season"` // 対象シーズン
	Timing SeasonTiming `json:"timing"` // 発注タイミング
	Lines  []string     `json:"lines"`  // ガイド本文
}

// SeasonInsights carries actionable findings derived from a recommendation set
// 推奨セットから導出した実行可能な所見を保持
type SeasonInsights struct {
	Season            Season                            `json:"season"`             // 対象シーズン
	Timing            SeasonTiming                      `json:"timing"`             // 発注タイミング
	ImmediateActions  []string                          `json:"immediate_actions"`  // 即時アクション
	CriticalMedicines []Recommendation                  `json:"critical_medicines"` // 最優先医薬品
	BudgetByPriority  map[PriorityLevel]decimal.Decimal `json:"budget_by_priority"` // 優先度別予算
}

// SeasonalSummary reports totals for all three seasons in fixed order
// 3シーズンすべての合計を固定順で報告
func (p *Planner) SeasonalSummary(transactions []Transaction) []SeasonSummary {
	type seasonAcc struct {
		quantity  int64
		revenue   decimal.Decimal
		invoices  map[string]struct{}
		medicines map[string]struct{}
	}
	accs := make(map[Season]*seasonAcc, len(AllSeasons))
	for _, season := range AllSeasons {
		accs[season] = &seasonAcc{
			invoices:  make(map[string]struct{}),
			medicines: make(map[string]struct{}),
		}
	}

	for _, tx := range transactions {
		acc := accs[tx.Season]
		acc.quantity += tx.Quantity
		acc.revenue = acc.revenue.Add(tx.TotalSales)
		acc.invoices[tx.InvoiceID] = struct{}{}
		acc.medicines[tx.MedicineKey] = struct{}{}
	}

	summary := make([]SeasonSummary, 0, len(AllSeasons))
	for _, season := range AllSeasons {
		acc := accs[season]
		summary = append(summary, SeasonSummary{
			Season:        season,
			TotalQuantity: acc.quantity,
			TotalRevenue:  acc.revenue,
			UniqueOrders:  len(acc.invoices),
			MedicineCount: len(acc.medicines),
		})
	}
	return summary
}

// TopSellers returns the N highest-volume medicines of one season,
// ties broken by ascending medicine key
// 1シーズンの販売数量上位N医薬品を返却（同数量はキー昇順）
func (p *Planner) TopSellers(transactions []Transaction, season Season, n int) ([]SeasonalAggregate, error) {
	aggregates, err := p.aggregator.AggregateSeason(transactions, season)
	if err != nil {
		return nil, err
	}

	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].TotalQuantity != aggregates[j].TotalQuantity {
			return aggregates[i].TotalQuantity > aggregates[j].TotalQuantity
		}
		return aggregates[i].MedicineKey < aggregates[j].MedicineKey
	})

	if n > 0 && n < len(aggregates) {
		aggregates = aggregates[:n]
	}
	return aggregates, nil
}

// MedicineCatalog builds the distinct medicine master list with lifetime totals
// 累計値付きの医薬品マスター一覧を構築
func (p *Planner) MedicineCatalog(transactions []Transaction) []MedicineInfo {
	order := make([]string, 0)
	catalog := make(map[string]*MedicineInfo)

	for _, tx := range transactions {
		info, ok := catalog[tx.MedicineKey]
		if !ok {
			info = &MedicineInfo{
				MedicineKey: tx.MedicineKey,
				GenericName: tx.GenericName,
				Category:    tx.Category,
			}
			catalog[tx.MedicineKey] = info
			order = append(order, tx.MedicineKey)
		}
		info.TotalQuantity += tx.Quantity
		info.TotalRevenue = info.TotalRevenue.Add(tx.TotalSales)
	}

	sort.Strings(order)
	result := make([]MedicineInfo, 0, len(order))
	for _, key := range order {
		result = append(result, *catalog[key])
	}
	return result
}

// WeeklyTrend builds the weekly sales trend of one medicine with peak-week
// detection
// 1医薬品の週次販売トレンドをピーク週検出付きで構築
func (p *Planner) WeeklyTrend(transactions []Transaction, medicineKey string) (*MedicineTrend, error) {
	key := NormalizeMedicineKey(medicineKey)
	var filtered []Transaction
	for _, tx := range transactions {
		if tx.MedicineKey == key {
			filtered = append(filtered, tx)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, key)
	}

	dates, values := resampleWeekly(filtered)
	trend := &MedicineTrend{MedicineKey: key}
	for i := range dates {
		trend.Points = append(trend.Points, TrendPoint{Week: dates[i], Quantity: values[i]})
		if values[i] > trend.PeakQty {
			trend.PeakQty = values[i]
			trend.PeakWeek = dates[i]
		}
	}
	return trend, nil
}

// CategoryBreakdown reports per-category sales totals sorted by quantity
// カテゴリ別の販売合計を数量順で報告
func (p *Planner) CategoryBreakdown(transactions []Transaction) []CategorySummary {
	type categoryAcc struct {
		summary   CategorySummary
		medicines map[string]struct{}
	}
	accs := make(map[string]*categoryAcc)
	for _, tx := range transactions {
		acc, ok := accs[tx.Category]
		if !ok {
			acc = &categoryAcc{
				summary:   CategorySummary{Category: tx.Category},
				medicines: make(map[string]struct{}),
			}
			accs[tx.Category] = acc
		}
		acc.summary.TotalQuantity += tx.Quantity
		acc.summary.TotalRevenue = acc.summary.TotalRevenue.Add(tx.TotalSales)
		acc.medicines[tx.MedicineKey] = struct{}{}
	}

	result := make([]CategorySummary, 0, len(accs))
	for _, acc := range accs {
		acc.summary.MedicineCount = len(acc.medicines)
		result = append(result, acc.summary)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalQuantity != result[j].TotalQuantity {
			return result[i].TotalQuantity > result[j].TotalQuantity
		}
		return result[i].Category < result[j].Category
	})
	return result
}

// OrderingGuide renders the ordering calendar as human-readable guide text
// 発注カレンダーを人間可読なガイド文に変換
func (p *Planner) OrderingGuide(set *RecommendationSet) *PurchasingGuide {
	timing := GetSeasonTiming(set.Season)
	guide := &PurchasingGuide{
		Season: set.Season,
		Timing: timing,
	}

	guide.Lines = append(guide.Lines,
		fmt.Sprintf("%s season (%s): order before %s, peak demand %s.",
			set.Season, timing.Months, timing.OrderBefore, timing.PeakMonths),
		fmt.Sprintf("%d medicines recommended, %d days of observed history.",
			len(set.Items), set.DaysInSeason),
	)
	for _, window := range set.Calendar {
		guide.Lines = append(guide.Lines,
			fmt.Sprintf("Week %s: %s - %d medicines, %d units, estimated cost %s.",
				window.Week, window.Action, window.MedicineCount,
				window.TotalQuantity, window.EstimatedCost.StringFixed(2)))
	}
	return guide
}

// ActionableInsights derives immediate actions and budget allocation from a
// recommendation set
// 推奨セットから即時アクションと予算配分を導出
func (p *Planner) ActionableInsights(set *RecommendationSet) *SeasonInsights {
	timing := GetSeasonTiming(set.Season)
	insights := &SeasonInsights{
		Season:           set.Season,
		Timing:           timing,
		BudgetByPriority: make(map[PriorityLevel]decimal.Decimal),
	}

	var totalSuggested int64
	totalBudget := decimal.Zero
	fastMovers := 0
	criticalCount := 0
	for _, item := range set.Items {
		totalSuggested += item.SuggestedStockQuantity
		totalBudget = totalBudget.Add(item.TotalRevenue)
		if item.IsFastMover {
			fastMovers++
		}
		budget := insights.BudgetByPriority[item.Priority]
		insights.BudgetByPriority[item.Priority] = budget.Add(item.TotalRevenue)
		if item.Priority == PriorityCritical {
			criticalCount++
			if len(insights.CriticalMedicines) < 10 {
				insights.CriticalMedicines = append(insights.CriticalMedicines, item)
			}
		}
	}

	insights.ImmediateActions = []string{
		fmt.Sprintf("URGENT: order %d critical medicines before %s", criticalCount, timing.OrderBefore),
		fmt.Sprintf("Prepare storage space for ~%d units", totalSuggested),
		fmt.Sprintf("Allocate budget %s for the complete stock", totalBudget.StringFixed(2)),
		fmt.Sprintf("Set up supplier coordination for %d fast-moving items", fastMovers),
		fmt.Sprintf("Monitor stock levels daily during the %s peak period", timing.PeakMonths),
	}
	return insights
}
