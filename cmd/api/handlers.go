package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/kisetsuGoPlanner/internal/metrics"
	"github.com/nemonet1337/kisetsuGoPlanner/pkg/planner"
	"github.com/nemonet1337/kisetsuGoPlanner/pkg/planner/ingest"
)

// Handlers holds HTTP handlers for the demand planning API
// 需要計画API用のHTTPハンドラーを保持
type Handlers struct {
	planner planner.DemandPlanner
	storage planner.Storage
	reader  *ingest.CSVReader
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(p planner.DemandPlanner, storage planner.Storage, m *metrics.Metrics, logger *zap.Logger) *Handlers {
	return &Handlers{
		planner: p,
		storage: storage,
		reader:  ingest.NewCSVReader(logger),
		metrics: m,
		logger:  logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// UploadResult reports the outcome of a CSV ingest
// CSV取り込みの結果を報告
type UploadResult struct {
	Saved   int                    `json:"saved"`
	Quality *planner.QualityReport `json:"quality"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.storage != nil {
		if err := h.storage.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	h.sendSuccess(w, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"service":   "kisetsuGoPlanner",
	})
}

// UploadTransactions ingests a CSV of raw POS rows
// 生POS行のCSVを取り込み
func (h *Handlers) UploadTransactions(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	table, err := h.reader.Read(r.Body)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, report, err := h.planner.Sanitize(table)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSanitized(report.RetainedRows, report.DroppedMissingCritical, report.DroppedInvalidNumeric, report.DroppedNonPositive)
	}

	saved := 0
	if h.storage != nil {
		saved, err = h.storage.SaveTransactions(r.Context(), transactions)
		if err != nil {
			h.sendPlannerError(w, err)
			return
		}
	}

	h.sendSuccess(w, UploadResult{Saved: saved, Quality: report})
}

// GetRecommendations generates seasonal stock recommendations
// 季節の在庫推奨を生成
func (h *Handlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	season, ok := h.seasonFromRequest(w, r)
	if !ok {
		return
	}

	buffer := planner.UseConfiguredBuffer
	if raw := r.URL.Query().Get("buffer"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "無効なバッファ率です: "+raw)
			return
		}
		buffer = parsed
	}

	set, err := h.planner.RecommendFromStore(r.Context(), season, buffer)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAnalysis(string(season))
	}

	h.sendSuccess(w, set)
}

// GetCalendar returns the week-by-week ordering calendar for a season
// シーズンの週次発注カレンダーを返す
func (h *Handlers) GetCalendar(w http.ResponseWriter, r *http.Request) {
	season, ok := h.seasonFromRequest(w, r)
	if !ok {
		return
	}

	set, err := h.planner.RecommendFromStore(r.Context(), season, planner.UseConfiguredBuffer)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, map[string]interface{}{
		"season":   set.Season,
		"calendar": set.Calendar,
	})
}

// GetOrderingGuide returns a readable purchasing guide for a season
// シーズンの購買ガイドを返す
func (h *Handlers) GetOrderingGuide(w http.ResponseWriter, r *http.Request) {
	season, ok := h.seasonFromRequest(w, r)
	if !ok {
		return
	}

	set, err := h.planner.RecommendFromStore(r.Context(), season, planner.UseConfiguredBuffer)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, h.planner.OrderingGuide(set))
}

// GetInsights returns actionable insights for a season
// シーズンの実用的インサイトを返す
func (h *Handlers) GetInsights(w http.ResponseWriter, r *http.Request) {
	season, ok := h.seasonFromRequest(w, r)
	if !ok {
		return
	}

	set, err := h.planner.RecommendFromStore(r.Context(), season, planner.UseConfiguredBuffer)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, h.planner.ActionableInsights(set))
}

// GetForecast runs both demand models for a single medicine
// 単一医薬品の両需要モデルを実行
func (h *Handlers) GetForecast(w http.ResponseWriter, r *http.Request) {
	medicineKey := mux.Vars(r)["medicine"]

	weeks, months, ok := h.horizonsFromRequest(w, r)
	if !ok {
		return
	}

	transactions, err := h.storage.ListTransactionsByMedicine(r.Context(), medicineKey)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	forecast, err := h.planner.Forecast(r.Context(), transactions, medicineKey, weeks, months)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.recordModelOutcomes(forecast)
	h.sendSuccess(w, forecast)
}

// GetTopForecasts runs both demand models for the top-selling medicines
// 売上上位医薬品の両需要モデルを実行
func (h *Handlers) GetTopForecasts(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.sendError(w, http.StatusBadRequest, "無効な件数です: "+raw)
			return
		}
		n = parsed
	}

	weeks, months, ok := h.horizonsFromRequest(w, r)
	if !ok {
		return
	}

	transactions, err := h.storage.ListTransactions(r.Context())
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	forecasts, err := h.planner.ForecastTop(r.Context(), transactions, n, weeks, months)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	for _, forecast := range forecasts {
		h.recordModelOutcomes(forecast)
	}

	h.sendSuccess(w, forecasts)
}

// GetSummary returns aggregate figures per season
// シーズンごとの集計値を返す
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.storage.ListTransactions(r.Context())
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, h.planner.SeasonalSummary(transactions))
}

// GetTopSellers returns the best-selling medicines for a season
// シーズンの売上上位医薬品を返す
func (h *Handlers) GetTopSellers(w http.ResponseWriter, r *http.Request) {
	season, ok := h.seasonFromRequest(w, r)
	if !ok {
		return
	}

	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.sendError(w, http.StatusBadRequest, "無効な件数です: "+raw)
			return
		}
		n = parsed
	}

	transactions, err := h.storage.ListTransactionsBySeason(r.Context(), season)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	sellers, err := h.planner.TopSellers(transactions, season, n)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, sellers)
}

// GetMedicines returns the medicine catalog
// 医薬品カタログを返す
func (h *Handlers) GetMedicines(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.storage.ListTransactions(r.Context())
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, h.planner.MedicineCatalog(transactions))
}

// GetTrend returns the weekly sales trend for one medicine
// 単一医薬品の週次売上トレンドを返す
func (h *Handlers) GetTrend(w http.ResponseWriter, r *http.Request) {
	medicineKey := mux.Vars(r)["medicine"]

	transactions, err := h.storage.ListTransactionsByMedicine(r.Context(), medicineKey)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	trend, err := h.planner.WeeklyTrend(transactions, medicineKey)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, trend)
}

// GetCategories returns sales figures grouped by category
// カテゴリ別の売上集計を返す
func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.storage.ListTransactions(r.Context())
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, h.planner.CategoryBreakdown(transactions))
}

// ListRuns returns recent analysis run records
// 最近の分析実行レコードを返す
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.sendError(w, http.StatusBadRequest, "無効な件数です: "+raw)
			return
		}
		limit = parsed
	}

	runs, err := h.storage.ListAnalysisRuns(r.Context(), limit)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, runs)
}

// GetRun returns a single analysis run record
// 単一の分析実行レコードを返す
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]

	run, err := h.storage.GetAnalysisRun(r.Context(), runID)
	if err != nil {
		h.sendPlannerError(w, err)
		return
	}

	h.sendSuccess(w, run)
}

// seasonFromRequest parses the {season} path variable
// {season}パス変数を解析
func (h *Handlers) seasonFromRequest(w http.ResponseWriter, r *http.Request) (planner.Season, bool) {
	raw := mux.Vars(r)["season"]
	season, err := planner.ParseSeason(raw)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なシーズンです: "+raw)
		return "", false
	}
	return season, true
}

// horizonsFromRequest parses the weeks and months query parameters
// weeks/monthsクエリパラメータを解析
func (h *Handlers) horizonsFromRequest(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	weeks, months := 0, 0

	if raw := r.URL.Query().Get("weeks"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.sendError(w, http.StatusBadRequest, "無効な週次予測期間です: "+raw)
			return 0, 0, false
		}
		weeks = parsed
	}

	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.sendError(w, http.StatusBadRequest, "無効な月次予測期間です: "+raw)
			return 0, 0, false
		}
		months = parsed
	}

	return weeks, months, true
}

// recordModelOutcomes pushes model fit outcomes into metrics
// モデルフィット結果をメトリクスに記録
func (h *Handlers) recordModelOutcomes(forecast *planner.MedicineForecast) {
	if h.metrics == nil || forecast == nil {
		return
	}
	for _, result := range []planner.ModelResult{forecast.SeasonalAR, forecast.Decomposition} {
		outcome := "ok"
		if result.Failure != nil {
			outcome = string(result.Failure.Reason)
		}
		h.metrics.RecordModelFit(string(result.Kind), outcome)
	}
}

// sendPlannerError maps domain errors to HTTP status codes
// ドメインエラーをHTTPステータスコードにマッピング
func (h *Handlers) sendPlannerError(w http.ResponseWriter, err error) {
	var (
		structural *planner.StructuralError
		empty      *planner.EmptySeasonError
		validation *planner.ValidationError
	)

	switch {
	case errors.As(err, &empty):
		h.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, planner.ErrMedicineNotFound),
		errors.Is(err, planner.ErrRunNotFound),
		errors.Is(err, planner.ErrNoTransactions):
		h.sendError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &structural), errors.As(err, &validation),
		errors.Is(err, planner.ErrUnknownSeason):
		h.sendError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("リクエスト処理に失敗しました", zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("エラーレスポンス送信に失敗しました", zap.Error(err))
	}
}
