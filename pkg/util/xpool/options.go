package xpool

import (
	"log/slog"

	"github.com/omeyang/xtask/pkg/observability/xmetrics"
)

// Option 定义 Pool 可选配置函数类型。
type Option func(*options)

type options struct {
	logger   *slog.Logger
	name     string
	observer xmetrics.Observer
}

func defaultOptions() options {
	return options{
		logger:   slog.Default(),
		observer: xmetrics.NoopObserver{},
	}
}

// WithLogger 设置日志记录器。默认使用 slog.Default()，nil 被忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 pool 名称，用于在多实例场景下区分日志和 trace 来源。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithObserver 设置任务执行的观测器，每个任务执行时开启一个跨度。
// 默认为 xmetrics.NoopObserver，nil 被忽略。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}
