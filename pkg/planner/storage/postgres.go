// Package storage provides the PostgreSQL persistence layer for the planner
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/kisetsuGoPlanner/pkg/planner"
)

// PostgreSQLStorage implements the Storage interface using PostgreSQL
// PostgreSQLを使用したStorageインターフェースの実装
type PostgreSQLStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// Storageインターフェースを実装することを明示
var _ planner.Storage = (*PostgreSQLStorage)(nil)

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
// 新しいPostgreSQLストレージインスタンスを作成
func NewPostgreSQLStorage(dsn string, logger *zap.Logger) (*PostgreSQLStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLStorage{
		db:     db,
		logger: logger,
	}, nil
}

const transactionColumns = `sale_date, sale_time, invoice_id, medicine_name, medicine_key,
	generic_name, brand, manufacturer, supplier, dosage_form, strength, category,
	prescription_required, quantity, unit_price, total_sales, season, season_year`

// SaveTransactions persists sanitized transactions, skipping duplicates.
// Returns the number of newly inserted rows.
// サニタイズ済み取引を永続化（重複はスキップ）。新規挿入行数を返却。
func (s *PostgreSQLStorage) SaveTransactions(ctx context.Context, transactions []planner.Transaction) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクション開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO pos_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (invoice_id, medicine_key, sale_date, sale_time) DO NOTHING`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("挿入ステートメントの準備に失敗しました: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range transactions {
		result, err := stmt.ExecContext(ctx,
			t.Date,
			t.Time,
			t.InvoiceID,
			t.MedicineName,
			t.MedicineKey,
			t.GenericName,
			t.Brand,
			t.Manufacturer,
			t.Supplier,
			t.DosageForm,
			t.Strength,
			t.Category,
			t.PrescriptionRequired,
			t.Quantity,
			t.UnitPrice,
			t.TotalSales,
			string(t.Season),
			t.SeasonYear,
		)
		if err != nil {
			return 0, fmt.Errorf("取引記録の挿入に失敗しました: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("挿入行数の取得に失敗しました: %w", err)
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	s.logger.Info("取引記録保存完了",
		zap.Int("input", len(transactions)),
		zap.Int("inserted", inserted),
	)

	return inserted, nil
}

// ListTransactions retrieves the full transaction snapshot
// 取引スナップショット全体を取得
func (s *PostgreSQLStorage) ListTransactions(ctx context.Context) ([]planner.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM pos_transactions
		ORDER BY sale_date, invoice_id`

	return s.queryTransactions(ctx, query)
}

// ListTransactionsBySeason retrieves all transactions of one season
// 1シーズンの全取引を取得
func (s *PostgreSQLStorage) ListTransactionsBySeason(ctx context.Context, season planner.Season) ([]planner.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM pos_transactions
		WHERE season = $1
		ORDER BY sale_date, invoice_id`

	return s.queryTransactions(ctx, query, string(season))
}

// ListTransactionsByMedicine retrieves all transactions of one medicine
// 1医薬品の全取引を取得
func (s *PostgreSQLStorage) ListTransactionsByMedicine(ctx context.Context, medicineKey string) ([]planner.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM pos_transactions
		WHERE medicine_key = $1
		ORDER BY sale_date, invoice_id`

	return s.queryTransactions(ctx, query, medicineKey)
}

// queryTransactions runs a transaction query and scans the rows
// 取引クエリを実行して行をスキャン
func (s *PostgreSQLStorage) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]planner.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("取引記録の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var transactions []planner.Transaction
	for rows.Next() {
		var t planner.Transaction
		var season string
		err := rows.Scan(
			&t.Date,
			&t.Time,
			&t.InvoiceID,
			&t.MedicineName,
			&t.MedicineKey,
			&t.GenericName,
			&t.Brand,
			&t.Manufacturer,
			&t.Supplier,
			&t.DosageForm,
			&t.Strength,
			&t.Category,
			&t.PrescriptionRequired,
			&t.Quantity,
			&t.UnitPrice,
			&t.TotalSales,
			&season,
			&t.SeasonYear,
		)
		if err != nil {
			return nil, fmt.Errorf("取引記録のスキャンに失敗しました: %w", err)
		}
		t.Season = planner.Season(season)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("取引記録の走査に失敗しました: %w", err)
	}

	return transactions, nil
}

// SaveAnalysisRun persists a recommendation run record
// 推奨実行記録を永続化
func (s *PostgreSQLStorage) SaveAnalysisRun(ctx context.Context, run *planner.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (id, season, buffer_fraction, days_in_season, item_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		string(run.Season),
		run.BufferFraction,
		run.DaysInSeason,
		run.ItemCount,
		run.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("分析実行は既に記録されています: %s", run.ID)
		}
		return fmt.Errorf("分析実行の記録に失敗しました: %w", err)
	}

	return nil
}

// GetAnalysisRun retrieves one analysis run by ID
// IDで分析実行を取得
func (s *PostgreSQLStorage) GetAnalysisRun(ctx context.Context, runID string) (*planner.AnalysisRun, error) {
	query := `
		SELECT id, season, buffer_fraction, days_in_season, item_count, created_at
		FROM analysis_runs
		WHERE id = $1`

	run := &planner.AnalysisRun{}
	var season string
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&run.ID,
		&season,
		&run.BufferFraction,
		&run.DaysInSeason,
		&run.ItemCount,
		&run.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, planner.ErrRunNotFound
		}
		return nil, fmt.Errorf("分析実行の取得に失敗しました: %w", err)
	}
	run.Season = planner.Season(season)

	return run, nil
}

// ListAnalysisRuns retrieves the most recent analysis runs
// 最新の分析実行を取得
func (s *PostgreSQLStorage) ListAnalysisRuns(ctx context.Context, limit int) ([]planner.AnalysisRun, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, season, buffer_fraction, days_in_season, item_count, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("分析実行一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var runs []planner.AnalysisRun
	for rows.Next() {
		var run planner.AnalysisRun
		var season string
		err := rows.Scan(
			&run.ID,
			&season,
			&run.BufferFraction,
			&run.DaysInSeason,
			&run.ItemCount,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("分析実行のスキャンに失敗しました: %w", err)
		}
		run.Season = planner.Season(season)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("分析実行の走査に失敗しました: %w", err)
	}

	return runs, nil
}

// Ping checks database connectivity
// データベース接続を確認
func (s *PostgreSQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}
