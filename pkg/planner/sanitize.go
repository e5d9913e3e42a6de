package planner

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sanitizer validates and coerces raw tabular rows into typed Transactions
// 生の表形式行を型付きTransactionに検証・変換
type Sanitizer struct {
	logger *zap.Logger
}

// NewSanitizer creates a new sanitizer
// 新しいサニタイザーを作成
func NewSanitizer(logger *zap.Logger) *Sanitizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sanitizer{logger: logger}
}

// 日付解析に試行するレイアウト
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"02/01/2006",
}

// Sanitize restricts and types raw rows into Transactions with a season label.
// Missing required columns abort with a StructuralError; individual bad rows
// are dropped and counted in the QualityReport, never raised to the caller.
// 生データ行をシーズンラベル付きTransactionに変換。必須列の欠落は
// StructuralErrorで全体を中断し、不正な行は削除してQualityReportに計上する。
func (s *Sanitizer) Sanitize(table *RawTable) ([]Transaction, *QualityReport, error) {
	if table == nil {
		return nil, nil, NewStructuralError(RequiredColumns)
	}

	// 列名の正規化とインデックス構築
	index := make(map[string]int, len(table.Columns))
	for i, col := range table.Columns {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	// 必須列の構造チェック
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, NewStructuralError(missing)
	}

	report := &QualityReport{InputRows: len(table.Rows)}
	transactions := make([]Transaction, 0, len(table.Rows))

	for _, row := range table.Rows {
		field := func(name string) string {
			pos := index[name]
			if pos >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[pos])
		}

		rawDate := field("date")
		rawName := field("medicine_name")
		rawQty := field("quantity")
		rawPrice := field("unit_price")

		// 必須項目の欠落チェック
		if rawDate == "" || rawName == "" || rawQty == "" || rawPrice == "" {
			report.DroppedMissingCritical++
			continue
		}

		// 日付の変換失敗も必須項目の欠落として扱う
		date, ok := parseDate(rawDate)
		if !ok {
			report.DroppedMissingCritical++
			continue
		}

		quantity, err := parseQuantity(rawQty)
		if err != nil {
			report.DroppedInvalidNumeric++
			continue
		}

		unitPrice, err := decimal.NewFromString(rawPrice)
		if err != nil {
			report.DroppedInvalidNumeric++
			continue
		}

		if quantity <= 0 || unitPrice.Sign() <= 0 {
			report.DroppedNonPositive++
			continue
		}

		generic := field("generic_name")
		if generic == "" {
			generic = "UNKNOWN"
		}

		tx := Transaction{
			Date:                 date,
			Time:                 field("time"),
			InvoiceID:            field("invoice_id"),
			MedicineName:         rawName,
			MedicineKey:          NormalizeMedicineKey(rawName),
			GenericName:          NormalizeMedicineKey(generic),
			Brand:                field("brand"),
			Manufacturer:         field("manufacturer"),
			Supplier:             field("supplier"),
			DosageForm:           field("dosage_form"),
			Strength:             field("strength"),
			Category:             field("category"),
			PrescriptionRequired: parseBoolish(field("prescription_required")),
			Quantity:             quantity,
			UnitPrice:            unitPrice,
			TotalSales:           unitPrice.Mul(decimal.NewFromInt(quantity)),
			Season:               SeasonOf(date),
			SeasonYear:           SeasonYearLabel(date),
		}
		transactions = append(transactions, tx)
	}

	report.RetainedRows = len(transactions)

	s.logger.Info("サニタイズ完了",
		zap.Int("input_rows", report.InputRows),
		zap.Int("retained_rows", report.RetainedRows),
		zap.Int("dropped_missing_critical", report.DroppedMissingCritical),
		zap.Int("dropped_invalid_numeric", report.DroppedInvalidNumeric),
		zap.Int("dropped_non_positive", report.DroppedNonPositive),
	)

	return transactions, report, nil
}

// NormalizeMedicineKey normalizes a medicine name into its join key:
// trimmed, upper-cased, internal whitespace collapsed to single spaces.
// 医薬品名を結合キーに正規化（トリム、大文字化、空白の折りたたみ）
func NormalizeMedicineKey(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(name))), " ")
}

// parseDate tries the supported date layouts in order
// サポートされる日付レイアウトを順に試行
func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseQuantity coerces a quantity field to an integer count.
// Fractional inputs are truncated the way a numeric cast would.
// 数量フィールドを整数に変換。小数は数値キャストと同様に切り捨てる。
func parseQuantity(value string) (int64, error) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// parseBoolish interprets the prescription_required flag
// 処方箋要否フラグを解釈
func parseBoolish(value string) bool {
	switch strings.ToLower(value) {
	case "yes", "y", "true", "1":
		return true
	default:
		return false
	}
}
