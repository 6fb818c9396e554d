package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"watergrid/pkg/domain"
)

const (
	envPrefix    = "WATERGRID_"
	configEnvVar = "CONFIG_PATH"
)

// Loader загружает конфигурацию из разных источников
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader создаёт новый загрузчик конфигурации
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/watergrid/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption - опция для конфигурации загрузчика
type LoaderOption func(*Loader)

// WithConfigPaths устанавливает пути поиска конфигурации
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix устанавливает префикс переменных окружения
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load загружает конфигурацию с приоритетом:
// 1. Defaults (самый низкий)
// 2. Config file (yaml)
// 3. Environment variables (самый высокий)
func (l *Loader) Load() (*Config, error) {
	// 1. Загружаем значения по умолчанию
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Загружаем из файла конфигурации
	if err := l.loadConfigFile(); err != nil {
		// Файл не обязателен, логируем warning
		fmt.Printf("Warning: %v\n", err)
	}

	// 3. Загружаем из переменных окружения (перезаписывают файл)
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	// 4. Распаковываем в структуру
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Валидируем
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults загружает значения по умолчанию
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "watergrid",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		// HTTP
		"http.port":             8080,
		"http.read_timeout":     30 * time.Second,
		"http.write_timeout":    60 * time.Second,
		"http.idle_timeout":     120 * time.Second,
		"http.shutdown_timeout": 30 * time.Second,
		"http.max_body_bytes":   int64(16 * 1024 * 1024),
		// CORS
		"http.cors.enabled":           true,
		"http.cors.allowed_origins":   []string{"*"},
		"http.cors.allowed_methods":   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		"http.cors.allowed_headers":   []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Requested-With"},
		"http.cors.exposed_headers":   []string{"X-Request-Id"},
		"http.cors.allow_credentials": false,
		"http.cors.max_age":           86400,

		// Log
		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Metrics
		"metrics.enabled":   true,
		"metrics.path":      "/metrics",
		"metrics.namespace": "watergrid",
		"metrics.subsystem": "",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "watergrid-network",
		"tracing.sample_rate":  0.1,

		// Database
		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "watergrid",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.auto_migrate":       true,

		// Cache
		"cache.enabled":     false,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 5 * time.Minute,
		"cache.max_entries": 10000,

		// Rate Limit
		"rate_limit.enabled":          true,
		"rate_limit.requests":         100,
		"rate_limit.window":           time.Minute,
		"rate_limit.strategy":         "sliding_window",
		"rate_limit.key_func":         "ip",
		"rate_limit.backend":          "memory",
		"rate_limit.burst_size":       10,
		"rate_limit.cleanup_interval": 5 * time.Minute,

		// Audit
		"audit.enabled":       true,
		"audit.backend":       "stdout",
		"audit.buffer_size":   1000,
		"audit.flush_period":  5 * time.Second,
		"audit.exclude_paths": []string{"/healthz", "/readyz", "/metrics"},

		// Swagger
		"swagger.enabled": true,
		"swagger.title":   "WaterGrid API",

		// Retry
		"retry.max_attempts":       3,
		"retry.initial_backoff":    100 * time.Millisecond,
		"retry.max_backoff":        10 * time.Second,
		"retry.backoff_multiplier": 2.0,

		// Network - параметры расчёта
		"network.connect_distance_m":       domain.DefaultConnectDistanceMeters,
		"network.valve_block_distance_m":   domain.DefaultValveBlockDistanceMeters,
		"network.valve_association_m":      domain.DefaultAssociationDistanceMeters,
		"network.capacity_utilization":     domain.DefaultCapacityUtilization,
		"network.household_flow_rate":      domain.DefaultHouseholdFlowRate,
		"network.fill_threshold_low_pct":   domain.FillThresholdLowPercent,
		"network.fill_threshold_high_pct":  domain.FillThresholdHighPercent,
		"network.compute_timeout":          30 * time.Second,
		"network.scenario_compute_timeout": 60 * time.Second,

		// Export
		"export.max_import_rows":      10000,
		"export.default_company_name": "WaterGrid Utility",

		// Export - PDF
		"export.pdf.page_size":           "A4",
		"export.pdf.orientation":         "portrait",
		"export.pdf.margin_top":          15.0,
		"export.pdf.margin_bottom":       15.0,
		"export.pdf.margin_left":         15.0,
		"export.pdf.margin_right":        15.0,
		"export.pdf.font_size":           10.0,
		"export.pdf.header_font_size":    14.0,
		"export.pdf.enable_page_numbers": true,
		"export.pdf.enable_watermark":    false,
		"export.pdf.watermark_text":      "DRAFT",
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile загружает конфигурацию из файла
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv загружает конфигурацию из переменных окружения
// Использует умную трансформацию ключей для полей с подчёркиванием
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, interface{}) {
		// Убираем префикс и приводим к нижнему регистру
		key := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))

		// Маппинг для полей с подчёркиванием в именах
		if mappedKey, ok := envKeyMappings[key]; ok {
			key = mappedKey
		} else {
			// По умолчанию заменяем все подчёркивания на точки
			key = strings.ReplaceAll(key, "_", ".")
		}

		// Для slice-полей разбиваем по запятой
		if isSliceField(key) {
			return key, splitAndTrim(value)
		}

		return key, value
	}), nil)
}

// envKeyMappings - маппинг переменных окружения на ключи конфига
// Необходим для полей, содержащих подчёркивания в именах
var envKeyMappings = map[string]string{
	// HTTP CORS
	"http_cors_enabled":           "http.cors.enabled",
	"http_cors_allowed_origins":   "http.cors.allowed_origins",
	"http_cors_allowed_methods":   "http.cors.allowed_methods",
	"http_cors_allowed_headers":   "http.cors.allowed_headers",
	"http_cors_exposed_headers":   "http.cors.exposed_headers",
	"http_cors_allow_credentials": "http.cors.allow_credentials",
	"http_cors_max_age":           "http.cors.max_age",

	// HTTP
	"http_port":             "http.port",
	"http_read_timeout":     "http.read_timeout",
	"http_write_timeout":    "http.write_timeout",
	"http_idle_timeout":     "http.idle_timeout",
	"http_shutdown_timeout": "http.shutdown_timeout",
	"http_max_body_bytes":   "http.max_body_bytes",

	// Database
	"database_host":               "database.host",
	"database_port":               "database.port",
	"database_database":           "database.database",
	"database_username":           "database.username",
	"database_password":           "database.password",
	"database_ssl_mode":           "database.ssl_mode",
	"database_max_open_conns":     "database.max_open_conns",
	"database_max_idle_conns":     "database.max_idle_conns",
	"database_conn_max_lifetime":  "database.conn_max_lifetime",
	"database_conn_max_idle_time": "database.conn_max_idle_time",
	"database_auto_migrate":       "database.auto_migrate",

	// Cache
	"cache_enabled":     "cache.enabled",
	"cache_driver":      "cache.driver",
	"cache_host":        "cache.host",
	"cache_port":        "cache.port",
	"cache_password":    "cache.password",
	"cache_db":          "cache.db",
	"cache_default_ttl": "cache.default_ttl",
	"cache_max_entries": "cache.max_entries",

	// Rate limit
	"rate_limit_enabled":          "rate_limit.enabled",
	"rate_limit_requests":         "rate_limit.requests",
	"rate_limit_window":           "rate_limit.window",
	"rate_limit_strategy":         "rate_limit.strategy",
	"rate_limit_key_func":         "rate_limit.key_func",
	"rate_limit_backend":          "rate_limit.backend",
	"rate_limit_burst_size":       "rate_limit.burst_size",
	"rate_limit_cleanup_interval": "rate_limit.cleanup_interval",
	"rate_limit_redis_addr":       "rate_limit.redis_addr",

	// Audit
	"audit_enabled":          "audit.enabled",
	"audit_backend":          "audit.backend",
	"audit_file_path":        "audit.file_path",
	"audit_buffer_size":      "audit.buffer_size",
	"audit_flush_period":     "audit.flush_period",
	"audit_exclude_paths":    "audit.exclude_paths",
	"audit_include_request":  "audit.include_request",
	"audit_include_response": "audit.include_response",

	// Log
	"log_level":       "log.level",
	"log_format":      "log.format",
	"log_output":      "log.output",
	"log_file_path":   "log.file_path",
	"log_max_size":    "log.max_size",
	"log_max_backups": "log.max_backups",
	"log_max_age":     "log.max_age",
	"log_compress":    "log.compress",

	// Metrics
	"metrics_enabled":   "metrics.enabled",
	"metrics_path":      "metrics.path",
	"metrics_namespace": "metrics.namespace",
	"metrics_subsystem": "metrics.subsystem",

	// Tracing
	"tracing_enabled":      "tracing.enabled",
	"tracing_endpoint":     "tracing.endpoint",
	"tracing_service_name": "tracing.service_name",
	"tracing_sample_rate":  "tracing.sample_rate",

	// Network
	"network_connect_distance_m":       "network.connect_distance_m",
	"network_valve_block_distance_m":   "network.valve_block_distance_m",
	"network_valve_association_m":      "network.valve_association_m",
	"network_capacity_utilization":     "network.capacity_utilization",
	"network_household_flow_rate":      "network.household_flow_rate",
	"network_fill_threshold_low_pct":   "network.fill_threshold_low_pct",
	"network_fill_threshold_high_pct":  "network.fill_threshold_high_pct",
	"network_compute_timeout":          "network.compute_timeout",
	"network_scenario_compute_timeout": "network.scenario_compute_timeout",

	// Export
	"export_max_import_rows":         "export.max_import_rows",
	"export_default_company_name":    "export.default_company_name",
	"export_pdf_page_size":           "export.pdf.page_size",
	"export_pdf_orientation":         "export.pdf.orientation",
	"export_pdf_enable_watermark":    "export.pdf.enable_watermark",
	"export_pdf_watermark_text":      "export.pdf.watermark_text",
	"export_pdf_enable_page_numbers": "export.pdf.enable_page_numbers",

	// Retry
	"retry_max_attempts":       "retry.max_attempts",
	"retry_initial_backoff":    "retry.initial_backoff",
	"retry_max_backoff":        "retry.max_backoff",
	"retry_backoff_multiplier": "retry.backoff_multiplier",
}

// sliceFields - поля, которые должны парситься как слайсы
var sliceFields = map[string]bool{
	"http.cors.allowed_origins": true,
	"http.cors.allowed_methods": true,
	"http.cors.allowed_headers": true,
	"http.cors.exposed_headers": true,
	"audit.exclude_paths":       true,
}

func isSliceField(key string) bool {
	return sliceFields[key]
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// MustLoad загружает конфигурацию или паникует
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load - удобная функция для загрузки с дефолтными настройками
func Load() (*Config, error) {
	return NewLoader().Load()
}
