package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/kisetsuGoPlanner/internal/config"
	"github.com/nemonet1337/kisetsuGoPlanner/internal/metrics"
	"github.com/nemonet1337/kisetsuGoPlanner/pkg/planner"
	"github.com/nemonet1337/kisetsuGoPlanner/pkg/planner/storage"
)

func main() {
	// ログ設定
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("設定読み込みに失敗しました", zap.Error(err))
	}

	// データベース接続
	store, err := storage.NewPostgreSQLStorage(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer store.Close()

	// プランナー初期化
	plannerConfig := &planner.Config{
		BufferFraction:     cfg.Planner.BufferFraction,
		HorizonWeeks:       cfg.Planner.HorizonWeeks,
		HorizonMonths:      cfg.Planner.HorizonMonths,
		TopMedicines:       cfg.Planner.TopMedicines,
		FallbackSeasonDays: cfg.Planner.FallbackSeasonDays,
	}

	demandPlanner := planner.NewPlanner(store, logger, plannerConfig)

	var collectors *metrics.Metrics
	if cfg.API.EnableMetrics {
		collectors = metrics.New(nil)
	}

	// HTTPハンドラー設定
	handlers := NewHandlers(demandPlanner, store, collectors, logger)
	router := setupRouter(handlers, cfg)

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// グレースフルシャットダウン設定
	go func() {
		logger.Info("季節需要計画APIサーバーを開始します", zap.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// setupRouter sets up HTTP routes
// HTTPルートを設定
func setupRouter(handlers *Handlers, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェック
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if cfg.API.EnableMetrics {
		router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// 取引データ取り込み
	api.HandleFunc("/transactions/upload", handlers.UploadTransactions).Methods("POST")

	// 季節推奨
	api.HandleFunc("/recommendations/{season}", handlers.GetRecommendations).Methods("GET")
	api.HandleFunc("/calendar/{season}", handlers.GetCalendar).Methods("GET")
	api.HandleFunc("/ordering-guide/{season}", handlers.GetOrderingGuide).Methods("GET")
	api.HandleFunc("/insights/{season}", handlers.GetInsights).Methods("GET")

	// 需要予測（topは{medicine}より先に登録）
	api.HandleFunc("/forecast/top", handlers.GetTopForecasts).Methods("GET")
	api.HandleFunc("/forecast/{medicine}", handlers.GetForecast).Methods("GET")

	// レポート
	api.HandleFunc("/summary", handlers.GetSummary).Methods("GET")
	api.HandleFunc("/top-sellers/{season}", handlers.GetTopSellers).Methods("GET")
	api.HandleFunc("/medicines", handlers.GetMedicines).Methods("GET")
	api.HandleFunc("/trends/{medicine}", handlers.GetTrend).Methods("GET")
	api.HandleFunc("/categories", handlers.GetCategories).Methods("GET")

	// 分析実行履歴
	api.HandleFunc("/runs", handlers.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{runId}", handlers.GetRun).Methods("GET")

	// CORS設定（開発用）
	if cfg.API.EnableCORS {
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	// ログ機能
	router.Use(loggingMiddleware(handlers.logger))

	// メトリクス計測
	if handlers.metrics != nil {
		router.Use(metricsMiddleware(handlers.metrics))
	}

	return router
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// リクエスト処理
			next.ServeHTTP(w, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusRecorder captures the response status code for metrics
// メトリクス用にレスポンスステータスコードを捕捉
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records request durations per route
// ルートごとのリクエスト時間を記録するミドルウェア
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if template, err := route.GetPathTemplate(); err == nil {
					path = template
				}
			}

			m.RecordRequest(r.Method, path, strconv.Itoa(recorder.status), time.Since(start).Seconds())
		})
	}
}
