// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"watergrid/pkg/domain"
)

// Config - главная структура конфигурации
type Config struct {
	App       AppConfig       `koanf:"app"`
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Audit     AuditConfig     `koanf:"audit"`
	Swagger   SwaggerConfig   `koanf:"swagger"`
	Retry     RetryConfig     `koanf:"retry"`
	Network   NetworkConfig   `koanf:"network"`
	Export    ExportConfig    `koanf:"export"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// HTTPConfig - настройки HTTP сервера
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	CORS            CORSConfig    `koanf:"cors"`
}

// CORSConfig - настройки CORS
type CORSConfig struct {
	Enabled          bool     `koanf:"enabled"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	ExposedHeaders   []string `koanf:"exposed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig - настройки базы данных
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN возвращает строку подключения
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// CacheConfig - настройки кэширования
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig конфигурация rate limiting
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	Strategy        string        `koanf:"strategy"`
	KeyFunc         string        `koanf:"key_func"`
	Backend         string        `koanf:"backend"`
	BurstSize       int           `koanf:"burst_size"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	RedisAddr       string        `koanf:"redis_addr"`
}

// AuditConfig конфигурация аудит лога
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Backend         string        `koanf:"backend"`
	FilePath        string        `koanf:"file_path"`
	BufferSize      int           `koanf:"buffer_size"`
	FlushPeriod     time.Duration `koanf:"flush_period"`
	ExcludePaths    []string      `koanf:"exclude_paths"`
	IncludeRequest  bool          `koanf:"include_request"`
	IncludeResponse bool          `koanf:"include_response"`
}

// SwaggerConfig конфигурация Swagger UI
type SwaggerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Title   string `koanf:"title"`
}

// RetryConfig конфигурация retry для исходящих клиентов
type RetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// NetworkConfig - настраиваемые параметры расчёта водопроводной сети
type NetworkConfig struct {
	ConnectDistanceM       float64       `koanf:"connect_distance_m"`       // радиус привязки точек к узлам
	ValveBlockDistanceM    float64       `koanf:"valve_block_distance_m"`   // радиус блокировки сегмента задвижкой
	ValveAssociationM      float64       `koanf:"valve_association_m"`      // радиус связи задвижки с трубопроводом
	CapacityUtilization    float64       `koanf:"capacity_utilization"`     // доля пропускной способности в расчёте потока
	HouseholdFlowRate      float64       `koanf:"household_flow_rate"`      // единиц потока на домохозяйство
	FillThresholdLowPct    float64       `koanf:"fill_threshold_low_pct"`   // ниже - статус low
	FillThresholdHighPct   float64       `koanf:"fill_threshold_high_pct"`  // не ниже - статус high
	ComputeTimeout         time.Duration `koanf:"compute_timeout"`          // предел на один расчёт
	ScenarioComputeTimeout time.Duration `koanf:"scenario_compute_timeout"` // предел на what-if расчёт
}

// FillThresholds возвращает настроенные пороги заполнения
func (n *NetworkConfig) FillThresholds() domain.FillThresholds {
	return domain.FillThresholds{
		LowPercent:  n.FillThresholdLowPct,
		HighPercent: n.FillThresholdHighPct,
	}
}

// ExportConfig конфигурация импорта и экспорта
type ExportConfig struct {
	MaxImportRows      int       `koanf:"max_import_rows"`
	DefaultCompanyName string    `koanf:"default_company_name"`
	PDF                PDFConfig `koanf:"pdf"`
}

// PDFConfig конфигурация PDF генератора
type PDFConfig struct {
	PageSize          string  `koanf:"page_size"`   // A4, Letter, Legal
	Orientation       string  `koanf:"orientation"` // portrait, landscape
	MarginTop         float64 `koanf:"margin_top"`  // mm
	MarginBottom      float64 `koanf:"margin_bottom"`
	MarginLeft        float64 `koanf:"margin_left"`
	MarginRight       float64 `koanf:"margin_right"`
	FontSize          float64 `koanf:"font_size"`        // pt
	HeaderFontSize    float64 `koanf:"header_font_size"` // pt
	EnablePageNumbers bool    `koanf:"enable_page_numbers"`
	EnableWatermark   bool    `koanf:"enable_watermark"`
	WatermarkText     string  `koanf:"watermark_text"`
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	// Валидация сетевых параметров
	if c.Network.ConnectDistanceM <= 0 {
		errs = append(errs, "network.connect_distance_m must be positive")
	}
	if c.Network.ValveBlockDistanceM < 0 {
		errs = append(errs, "network.valve_block_distance_m must be non-negative")
	}
	if c.Network.ValveAssociationM <= 0 {
		errs = append(errs, "network.valve_association_m must be positive")
	}
	if c.Network.CapacityUtilization <= 0 || c.Network.CapacityUtilization > 1 {
		errs = append(errs, fmt.Sprintf("network.capacity_utilization must be in (0, 1], got %v", c.Network.CapacityUtilization))
	}
	if c.Network.HouseholdFlowRate <= 0 {
		errs = append(errs, "network.household_flow_rate must be positive")
	}
	if c.Network.FillThresholdLowPct < 0 || c.Network.FillThresholdHighPct > 100 ||
		c.Network.FillThresholdLowPct >= c.Network.FillThresholdHighPct {
		errs = append(errs, fmt.Sprintf(
			"network fill thresholds must satisfy 0 <= low < high <= 100, got low=%v high=%v",
			c.Network.FillThresholdLowPct, c.Network.FillThresholdHighPct,
		))
	}

	validPageSizes := map[string]bool{"A4": true, "Letter": true, "Legal": true, "A3": true}
	if c.Export.PDF.PageSize != "" && !validPageSizes[c.Export.PDF.PageSize] {
		errs = append(errs, fmt.Sprintf("export.pdf.page_size must be one of: A4, Letter, Legal, A3, got %s", c.Export.PDF.PageSize))
	}

	validOrientations := map[string]bool{"portrait": true, "landscape": true}
	if c.Export.PDF.Orientation != "" && !validOrientations[c.Export.PDF.Orientation] {
		errs = append(errs, fmt.Sprintf("export.pdf.orientation must be one of: portrait, landscape, got %s", c.Export.PDF.Orientation))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
