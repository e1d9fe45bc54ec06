// Package xconf 加载 xtask 的配置文件（YAML/JSON），基于 koanf。
//
// 未出现在文件中的键保留 Default() 的默认值，加载后统一校验：
//
//	cfg, err := xconf.Load("xtask.yaml")
//	if err != nil {
//		return err
//	}
//	pool, err := xpool.New(cfg.Pool.Workers, xpool.WithName(cfg.Pool.Name))
package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/xtask/pkg/observability/xlog"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// maxWorkers 与 xpool 的上限一致。
const maxWorkers = 1 << 16

// Config 是 xtask 的完整配置。
type Config struct {
	Pool    PoolConfig    `koanf:"pool"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Trace   TraceConfig   `koanf:"trace"`
}

// PoolConfig 对应 xpool.New 的参数。
type PoolConfig struct {
	// Workers worker 数量，默认 runtime.NumCPU()。
	Workers int    `koanf:"workers"`
	Name    string `koanf:"name"`
}

// LogConfig 对应 xlog.Builder 的参数。File 为空时输出到 stderr。
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
	// AddSource 为 true 时在日志中记录源码位置。
	AddSource bool `koanf:"add_source"`
}

// MetricsConfig Prometheus 指标暴露地址，为空时不启动。
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// TraceConfig 追踪输出配置。
type TraceConfig struct {
	// Stdout 为 true 时把任务跨度打印到 stdout。
	Stdout bool `koanf:"stdout"`
}

// Default 返回默认配置。
func Default() Config {
	return Config{
		Pool: PoolConfig{
			Workers: runtime.NumCPU(),
			Name:    "xtask",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate 校验配置取值。
func (c Config) Validate() error {
	if c.Pool.Workers < 1 || c.Pool.Workers > maxWorkers {
		return fmt.Errorf("%w: pool.workers=%d, must be in [1, %d]", ErrInvalidConfig, c.Pool.Workers, maxWorkers)
	}
	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format=%q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("%w: log rotation values must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Load 从文件加载配置，根据扩展名识别格式（.yaml/.yml/.json）。
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return LoadBytes(data, format)
}

// LoadBytes 从字节数据加载配置。空数据得到默认配置。
func LoadBytes(data []byte, format Format) (Config, error) {
	parser, err := parserFor(format)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if len(data) > 0 {
		k := koanf.New(".")
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
		if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
