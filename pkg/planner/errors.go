package planner

import (
	"errors"
	"fmt"
	"strings"
)

// Common planning errors
// 共通の需要計画エラー定義

var (
	// ErrNoTransactions is returned when an operation receives no sanitized rows
	// サニタイズ済み行が1件もない場合のエラー
	ErrNoTransactions = errors.New("取引データがありません")

	// ErrMedicineNotFound is returned when a medicine key has no sales history
	// 医薬品キーに販売履歴がない場合のエラー
	ErrMedicineNotFound = errors.New("医薬品の販売履歴が見つかりません")

	// ErrUnknownSeason is returned when a season label is not one of the three seasons
	// シーズンラベルが3シーズンのいずれでもない場合のエラー
	ErrUnknownSeason = errors.New("未知のシーズンです")

	// ErrRunNotFound is returned when an analysis run doesn't exist
	// 分析実行が存在しない場合のエラー
	ErrRunNotFound = errors.New("分析実行が見つかりません")
)

// StructuralError is returned when required columns are absent from the input.
// It aborts sanitization entirely; no per-row processing happens.
// 必須列が入力に存在しない場合のエラー。サニタイズ全体を中断する。
type StructuralError struct {
	MissingColumns []string `json:"missing_columns"` // 欠落している列名
}

func (e StructuralError) Error() string {
	return fmt.Sprintf("構造エラー: 必須列が欠落しています [%s]", strings.Join(e.MissingColumns, ", "))
}

// EmptySeasonError signals that a season has zero transactions.
// Distinguishable from a computed-but-empty result.
// シーズンに取引が1件もないことを示すエラー。計算結果が空の場合とは区別される。
type EmptySeasonError struct {
	Season Season `json:"season"` // 対象シーズン
}

func (e EmptySeasonError) Error() string {
	return fmt.Sprintf("シーズン %s の取引データがありません", e.Season)
}

// InsufficientHistoryError signals that a model's minimum-length gate was not met
// モデルの最小観測数ゲートを満たさなかったことを示すエラー
type InsufficientHistoryError struct {
	MedicineKey  string    `json:"medicine_key"` // 医薬品キー
	Model        ModelKind `json:"model"`        // モデル種別
	Observations int       `json:"observations"` // 実際の観測数
	Required     int       `json:"required"`     // 必要な観測数
}

func (e InsufficientHistoryError) Error() string {
	return fmt.Sprintf("履歴不足 [%s:%s]: 観測数 %d (必要数: %d)", e.MedicineKey, e.Model, e.Observations, e.Required)
}

// ModelFitError signals that a numerical fit failed at runtime
// 数値フィットが実行時に失敗したことを示すエラー
type ModelFitError struct {
	MedicineKey string    `json:"medicine_key"` // 医薬品キー
	Model       ModelKind `json:"model"`        // モデル種別
	Message     string    `json:"message"`      // 失敗メッセージ
}

func (e ModelFitError) Error() string {
	return fmt.Sprintf("モデルフィット失敗 [%s:%s]: %s", e.MedicineKey, e.Model, e.Message)
}

// ValidationError represents a validation error with details
// 詳細付きバリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// StorageError represents a storage layer error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewStructuralError creates a new structural error
// 新しい構造エラーを作成
func NewStructuralError(missingColumns []string) *StructuralError {
	return &StructuralError{MissingColumns: missingColumns}
}

// NewEmptySeasonError creates a new empty season error
// 新しい空シーズンエラーを作成
func NewEmptySeasonError(season Season) *EmptySeasonError {
	return &EmptySeasonError{Season: season}
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
