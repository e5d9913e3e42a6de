package planner

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Aggregator groups sanitized transactions by season and medicine
// サニタイズ済み取引をシーズンと医薬品でグループ化
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator creates a new aggregator
// 新しいアグリゲーターを作成
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger}
}

// AggregateSeason produces one SeasonalAggregate per medicine observed in the
// target season. Multiple years of the same season are pooled. A season with
// zero transactions returns an EmptySeasonError, never a zero-filled result.
// 対象シーズンで観測された医薬品ごとにSeasonalAggregateを生成。同一シーズンの
// 複数年はプールされる。取引ゼロのシーズンはEmptySeasonErrorを返す。
func (a *Aggregator) AggregateSeason(transactions []Transaction, season Season) ([]SeasonalAggregate, error) {
	type accumulator struct {
		agg        SeasonalAggregate
		invoices   map[string]struct{}
		priceSum   decimal.Decimal
		priceCount int64
	}

	// 出現順を保持するグループ化
	order := make([]string, 0)
	groups := make(map[string]*accumulator)

	for _, tx := range transactions {
		if tx.Season != season {
			continue
		}
		acc, ok := groups[tx.MedicineKey]
		if !ok {
			acc = &accumulator{
				agg: SeasonalAggregate{
					Season:      season,
					MedicineKey: tx.MedicineKey,
					GenericName: tx.GenericName,
					Category:    tx.Category,
				},
				invoices: make(map[string]struct{}),
			}
			groups[tx.MedicineKey] = acc
			order = append(order, tx.MedicineKey)
		}
		acc.agg.TotalQuantity += tx.Quantity
		acc.agg.TotalRevenue = acc.agg.TotalRevenue.Add(tx.TotalSales)
		acc.invoices[tx.InvoiceID] = struct{}{}
		acc.priceSum = acc.priceSum.Add(tx.UnitPrice)
		acc.priceCount++
	}

	if len(order) == 0 {
		return nil, NewEmptySeasonError(season)
	}

	aggregates := make([]SeasonalAggregate, 0, len(order))
	for _, key := range order {
		acc := groups[key]
		acc.agg.UniqueOrders = len(acc.invoices)
		acc.agg.AvgUnitPrice = acc.priceSum.Div(decimal.NewFromInt(acc.priceCount))
		aggregates = append(aggregates, acc.agg)
	}

	a.logger.Info("シーズン集計完了",
		zap.String("season", string(season)),
		zap.Int("medicines", len(aggregates)),
	)

	return aggregates, nil
}

// DaysInSeason returns the observed span in days of a season's transactions.
// A zero span (single-day dataset) or a season with no dates falls back to
// the supplied default.
// シーズン取引の観測日数を返却。単一日のデータや日付なしの場合は
// 指定のフォールバック値を使用。
func (a *Aggregator) DaysInSeason(transactions []Transaction, season Season, fallback int) int {
	var minDate, maxDate time.Time
	seen := false
	for _, tx := range transactions {
		if tx.Season != season {
			continue
		}
		if !seen || tx.Date.Before(minDate) {
			minDate = tx.Date
		}
		if !seen || tx.Date.After(maxDate) {
			maxDate = tx.Date
		}
		seen = true
	}
	if !seen {
		return fallback
	}
	days := int(maxDate.Sub(minDate).Hours() / 24)
	if days <= 0 {
		return fallback
	}
	return days
}
