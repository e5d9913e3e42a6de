package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
// アプリケーション設定を保持
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Planner  PlannerConfig  `yaml:"planner"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration
// データベース設定を保持
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// APIConfig holds API server configuration
// APIサーバー設定を保持
type APIConfig struct {
	Port          int           `yaml:"port"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	EnableCORS    bool          `yaml:"enable_cors"`
	EnableMetrics bool          `yaml:"enable_metrics"`
}

// PlannerConfig holds demand-planner specific configuration
// 需要プランナー固有の設定を保持
type PlannerConfig struct {
	BufferFraction     float64 `yaml:"buffer_fraction"`
	HorizonWeeks       int     `yaml:"horizon_weeks"`
	HorizonMonths      int     `yaml:"horizon_months"`
	TopMedicines       int     `yaml:"top_medicines"`
	FallbackSeasonDays int     `yaml:"fallback_season_days"`
}

// LoggingConfig holds logging configuration
// ログ設定を保持
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, file
}

// Load loads configuration from environment variables
// 環境変数から設定を読み込み
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "planner"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "planner_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		API: APIConfig{
			Port:          getEnvAsInt("API_PORT", 8080),
			ReadTimeout:   getEnvAsDuration("API_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:  getEnvAsDuration("API_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:   getEnvAsDuration("API_IDLE_TIMEOUT", 60*time.Second),
			EnableCORS:    getEnvAsBool("API_ENABLE_CORS", true),
			EnableMetrics: getEnvAsBool("API_ENABLE_METRICS", true),
		},
		Planner: PlannerConfig{
			BufferFraction:     getEnvAsFloat("PLANNER_BUFFER_FRACTION", 0.15),
			HorizonWeeks:       getEnvAsInt("PLANNER_HORIZON_WEEKS", 12),
			HorizonMonths:      getEnvAsInt("PLANNER_HORIZON_MONTHS", 3),
			TopMedicines:       getEnvAsInt("PLANNER_TOP_MEDICINES", 10),
			FallbackSeasonDays: getEnvAsInt("PLANNER_FALLBACK_SEASON_DAYS", 90),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	// 設定ファイルによる上書き（任意）
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	// バリデーション
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定バリデーションに失敗しました: %w", err)
	}

	return cfg, nil
}

// mergeFile overlays YAML file values on top of the current configuration
// YAMLファイルの値を現在の設定に上書き
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}
	return nil
}

// Validate validates the configuration
// 設定をバリデーション
func (c *Config) Validate() error {
	// データベース設定チェック
	if c.Database.Host == "" {
		return fmt.Errorf("データベースホストが指定されていません")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("無効なデータベースポート: %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("データベースユーザーが指定されていません")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("データベース名が指定されていません")
	}

	// API設定チェック
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("無効なAPIポート: %d", c.API.Port)
	}

	// プランナー設定チェック
	if c.Planner.BufferFraction < 0 || c.Planner.BufferFraction > 1 {
		return fmt.Errorf("バッファ率は0〜1の範囲である必要があります: %f", c.Planner.BufferFraction)
	}
	if c.Planner.HorizonWeeks < 1 {
		return fmt.Errorf("週次予測期間は1以上である必要があります: %d", c.Planner.HorizonWeeks)
	}
	if c.Planner.HorizonMonths < 1 {
		return fmt.Errorf("月次予測期間は1以上である必要があります: %d", c.Planner.HorizonMonths)
	}
	if c.Planner.TopMedicines < 1 {
		return fmt.Errorf("予測対象件数は1以上である必要があります: %d", c.Planner.TopMedicines)
	}
	if c.Planner.FallbackSeasonDays < 1 {
		return fmt.Errorf("フォールバックシーズン日数は1以上である必要があります: %d", c.Planner.FallbackSeasonDays)
	}

	// ログ設定チェック
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("無効なログレベル: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("無効なログフォーマット: %s", c.Logging.Format)
	}

	return nil
}

// DSN generates PostgreSQL Data Source Name
// PostgreSQLデータソース名を生成
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// ヘルパー関数

// getEnv gets environment variable with default value
// デフォルト値付きで環境変数を取得
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer with default value
// デフォルト値付きで環境変数を整数として取得
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets environment variable as float with default value
// デフォルト値付きで環境変数を浮動小数として取得
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets environment variable as boolean with default value
// デフォルト値付きで環境変数をbooleanとして取得
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets environment variable as duration with default value
// デフォルト値付きで環境変数をdurationとして取得
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
