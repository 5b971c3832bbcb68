package logger

import (
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"quote-chart-go/monitor/logschema"
)

// Logger 封装zap日志器，提供结构化事件日志与运行时调级
type Logger struct {
	*zap.Logger
	config Config
	level  zap.AtomicLevel
	closer []func() error
}

// Config 日志配置
type Config struct {
	Level      string   `yaml:"level"`       // debug, info, warn, error
	Outputs    []string `yaml:"outputs"`     // stdout, file
	OutputFile string   `yaml:"output_file"` // 日志文件路径
	ErrorFile  string   `yaml:"error_file"`  // 错误日志单独文件
	Format     string   `yaml:"format"`      // json 或 console
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Outputs: []string{"stdout"},
		Format:  "json",
	}
}

// ParseLevel 解析日志级别。
func ParseLevel(s string) (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return level, fmt.Errorf("invalid log level %s: %w", s, err)
	}
	return level, nil
}

// New 创建新的Logger实例
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	atom := zap.NewAtomicLevelAt(level)

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var (
		cores  []zapcore.Core
		closer []func() error
	)

	if contains(cfg.Outputs, "stdout") {
		var encoder zapcore.Encoder
		if cfg.Format == "console" {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), atom))
	}

	if contains(cfg.Outputs, "file") && cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file failed: %w", err)
		}
		closer = append(closer, f.Close)
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), atom))
	}

	// 错误日志单独文件，只记录 error 及以上
	if cfg.ErrorFile != "" {
		f, err := os.OpenFile(cfg.ErrorFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open error log file failed: %w", err)
		}
		closer = append(closer, f.Close)
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.ErrorLevel))
	}

	core := zapcore.NewTee(cores...)
	return &Logger{
		Logger: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
		config: cfg,
		level:  atom,
		closer: closer,
	}, nil
}

// Wrap 包装现有 zap.Logger（测试中配合 zaptest/observer 使用）。
func Wrap(z *zap.Logger) *Logger {
	return &Logger{Logger: z, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

// Nop 丢弃所有输出。
func Nop() *Logger {
	return Wrap(zap.NewNop())
}

// SetLevel 运行时调整级别（配置热更新用）。
func (l *Logger) SetLevel(s string) error {
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.level.SetLevel(level)
	return nil
}

// Level 当前级别。
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// WithFields 添加字段返回新的logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.With(toFields(fields)...),
		config: l.config,
		level:  l.level,
	}
}

// LogEvent 按 logschema 登记的级别记录一个结构化事件；缺少必需字段时追加 schema_error。
func (l *Logger) LogEvent(event string, fields map[string]interface{}) {
	l.LogEventAt(logschema.LevelOf(event), event, fields)
}

// LogEventAt 以指定级别记录事件。
func (l *Logger) LogEventAt(level logschema.Level, event string, fields map[string]interface{}) {
	out := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	if err := logschema.Validate(event, fields); err != nil {
		out["schema_error"] = err.Error()
	}
	out["event"] = event
	zf := toFields(out)
	switch level {
	case logschema.LevelDebug:
		l.Debug(event, zf...)
	case logschema.LevelWarn:
		l.Warn(event, zf...)
	case logschema.LevelError:
		l.Error(event, zf...)
	default:
		l.Info(event, zf...)
	}
}

// Sink 返回可注入各组件的事件输出函数。
func (l *Logger) Sink() func(string, map[string]interface{}) {
	return l.LogEvent
}

// LogError 记录错误并附带上下文
func (l *Logger) LogError(err error, context map[string]interface{}) {
	out := make(map[string]interface{}, len(context)+2)
	for k, v := range context {
		out[k] = v
	}
	out["error"] = err.Error()
	out["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	l.Error("error_event", toFields(out)...)
}

// Close 刷新并关闭日志文件
func (l *Logger) Close() error {
	_ = l.Sync()
	var first error
	for _, c := range l.closer {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// toFields 按 key 排序，输出稳定。
func toFields(m map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, m[k]))
	}
	return out
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
