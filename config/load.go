package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"quote-chart-go/infrastructure/logger"
	"quote-chart-go/stream"
)

// 数据源类型。
const (
	SourceHTTP = "http"
	SourceWS   = "ws"
	SourceSim  = "sim"
)

// 环境变量覆盖项。
const (
	EnvSourceBaseURL = "QC_SOURCE_BASE_URL"
	EnvSourceWSURL   = "QC_SOURCE_WS_URL"
	EnvHTTPAddr      = "QC_HTTP_ADDR"
	EnvLogLevel      = "QC_LOG_LEVEL"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env    string        `yaml:"env"`
	Stream StreamConfig  `yaml:"stream"`
	Source SourceConfig  `yaml:"source"`
	Graph  GraphConfig   `yaml:"graph"`
	HTTP   HTTPConfig    `yaml:"http"`
	Log    logger.Config `yaml:"log"`
}

// StreamConfig 轮询控制器参数。
type StreamConfig struct {
	PollIntervalMs int    `yaml:"pollIntervalMs"` // tick 周期（毫秒）
	MaxTicks       int    `yaml:"maxTicks"`       // tick 上限，达到后停止定时器
	FetchTimeoutMs int    `yaml:"fetchTimeoutMs"` // 单次抓取超时，0 时取默认值
	Overlap        string `yaml:"overlap"`        // allow 或 serialize
	AutoStart      bool   `yaml:"autoStart"`      // 启动后立即开始，无需 POST /start
}

// SourceConfig 外部记录源。
type SourceConfig struct {
	Kind              string    `yaml:"kind"` // http, ws, sim
	BaseURL           string    `yaml:"baseURL"`
	Path              string    `yaml:"path"`
	WSURL             string    `yaml:"wsURL"`
	RequestsPerSecond float64   `yaml:"requestsPerSecond"` // 0 表示不限速
	Sim               SimConfig `yaml:"sim"`
}

// SimConfig 内置模拟源。
type SimConfig struct {
	Stocks      []string `yaml:"stocks"`
	Seed        int64    `yaml:"seed"`
	BasePrice   float64  `yaml:"basePrice"`
	MissingProb float64  `yaml:"missingProb"`
}

// GraphConfig 列式表能力开关；runtime=false 时走运行时不可用路径。
type GraphConfig struct {
	Runtime *bool `yaml:"runtime"`
}

// RuntimeEnabled 未配置时默认可用。
func (g GraphConfig) RuntimeEnabled() bool {
	return g.Runtime == nil || *g.Runtime
}

// HTTPConfig 控制面监听地址。
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default 返回完整默认配置。
func Default() AppConfig {
	cfg := AppConfig{Env: "dev"}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	d := stream.DefaultConfig()
	if cfg.Stream.PollIntervalMs == 0 {
		cfg.Stream.PollIntervalMs = int(d.PollInterval / time.Millisecond)
	}
	if cfg.Stream.MaxTicks == 0 {
		cfg.Stream.MaxTicks = d.MaxTicks
	}
	if cfg.Stream.FetchTimeoutMs == 0 {
		cfg.Stream.FetchTimeoutMs = int(d.FetchTimeout / time.Millisecond)
	}
	if cfg.Stream.Overlap == "" {
		cfg.Stream.Overlap = string(d.Overlap)
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceHTTP
	}
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "http://localhost:8080"
	}
	if cfg.Source.Path == "" {
		cfg.Source.Path = "/query?id=1"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":9100"
	}
	ld := logger.DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = ld.Level
	}
	if len(cfg.Log.Outputs) == 0 {
		cfg.Log.Outputs = ld.Outputs
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = ld.Format
	}
}

// Runtime 转换为控制器参数。
func (s StreamConfig) Runtime() stream.Config {
	return stream.Config{
		PollInterval: time.Duration(s.PollIntervalMs) * time.Millisecond,
		MaxTicks:     s.MaxTicks,
		FetchTimeout: time.Duration(s.FetchTimeoutMs) * time.Millisecond,
		Overlap:      stream.Overlap(s.Overlap),
	}
}

// Parse 解析 YAML 内容，补默认值并校验。
func Parse(raw []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads YAML config from path and applies defaults and validation.
func Load(path string) (AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// LoadWithEnvOverrides loads config then overrides deployment fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg)
	return cfg, Validate(cfg)
}

// ApplyEnv 应用 QC_* 环境变量。
func ApplyEnv(cfg *AppConfig) {
	if v := os.Getenv(EnvSourceBaseURL); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv(EnvSourceWSURL); v != "" {
		cfg.Source.WSURL = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// Validate ensures fields are consistent.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Stream.PollIntervalMs < 0 {
		return errors.New("stream.pollIntervalMs must be >= 0")
	}
	if cfg.Stream.MaxTicks < 0 {
		return errors.New("stream.maxTicks must be >= 0")
	}
	if cfg.Stream.FetchTimeoutMs < 0 {
		return errors.New("stream.fetchTimeoutMs must be >= 0")
	}
	if err := cfg.Stream.Runtime().Validate(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	switch cfg.Source.Kind {
	case SourceHTTP:
		if !strings.HasPrefix(cfg.Source.BaseURL, "http://") && !strings.HasPrefix(cfg.Source.BaseURL, "https://") {
			return fmt.Errorf("source.baseURL must be an http(s) url, got %q", cfg.Source.BaseURL)
		}
	case SourceWS:
		if !strings.HasPrefix(cfg.Source.WSURL, "ws://") && !strings.HasPrefix(cfg.Source.WSURL, "wss://") {
			return fmt.Errorf("source.wsURL must be a ws(s) url, got %q", cfg.Source.WSURL)
		}
	case SourceSim:
	default:
		return fmt.Errorf("unknown source.kind %q", cfg.Source.Kind)
	}
	if cfg.Source.RequestsPerSecond < 0 {
		return errors.New("source.requestsPerSecond must be >= 0")
	}
	if p := cfg.Source.Sim.MissingProb; p < 0 || p > 1 {
		return fmt.Errorf("source.sim.missingProb must be within [0,1], got %v", p)
	}
	if cfg.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
