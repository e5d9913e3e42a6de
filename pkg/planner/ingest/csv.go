// Package ingest reads raw point-of-sale tables for the demand planner
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/nemonet1337/kisetsuGoPlanner/pkg/planner"
)

// CSVReader reads raw transaction tables from CSV sources.
// Column validation is the sanitizer's job; the reader only shapes rows.
// CSVソースから生取引テーブルを読み込む。
// 列の検証はサニタイザーの責務で、リーダーは行の整形のみを行う。
type CSVReader struct {
	logger *zap.Logger
}

// NewCSVReader creates a new CSV reader
// 新しいCSVリーダーを作成
func NewCSVReader(logger *zap.Logger) *CSVReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVReader{logger: logger}
}

// Read parses a CSV stream into a RawTable. The first record is the header.
// CSVストリームをRawTableに解析。先頭レコードがヘッダー。
func (r *CSVReader) Read(src io.Reader) (*planner.RawTable, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // 行ごとの列数ずれはサニタイザーで処理

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSVが空です")
	}
	if err != nil {
		return nil, fmt.Errorf("CSVヘッダーの読み込みに失敗しました: %w", err)
	}

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(col))
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV行の読み込みに失敗しました: %w", err)
		}
		rows = append(rows, record)
	}

	r.logger.Info("CSV読み込み完了",
		zap.Int("columns", len(columns)),
		zap.Int("rows", len(rows)),
	)

	return &planner.RawTable{Columns: columns, Rows: rows}, nil
}

// ReadFile parses a CSV file into a RawTable
// CSVファイルをRawTableに解析
func (r *CSVReader) ReadFile(path string) (*planner.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("CSVファイルを開けませんでした: %w", err)
	}
	defer f.Close()

	return r.Read(f)
}
