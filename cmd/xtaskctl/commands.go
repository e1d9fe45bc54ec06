package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xtask/pkg/config/xconf"
	"github.com/omeyang/xtask/pkg/lifecycle/xrun"
	"github.com/omeyang/xtask/pkg/observability/xlog"
	"github.com/omeyang/xtask/pkg/observability/xmetrics"
	"github.com/omeyang/xtask/pkg/observability/xprom"
	"github.com/omeyang/xtask/pkg/util/xpool"
)

const (
	demoWorkers         = 4
	defaultBenchTasks   = 10000
	defaultSubmitters   = 10
	metricsShutdownWait = 5 * time.Second
)

var errCounterMismatch = errors.New("counter mismatch")

// benchSignals 触发压测提前结束的信号。
var benchSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// usageError 表示参数错误，对应退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// isCLIUsageError 识别 urfave/cli 自身产生的参数错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"flag provided but not defined",
		"invalid value",
		"flag needs an argument",
		"No help topic for",
	} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "demo",
			Usage: "提交 add/multiply 示例任务并打印结果（默认 4 个 worker）",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				env, err := newEnv(cmd)
				if err != nil {
					return err
				}
				defer env.close()
				workers := demoWorkers
				if cmd.IsSet("workers") {
					workers = env.cfg.Pool.Workers
				}
				return cmdDemo(ctx, env, workers)
			},
		},
		{
			Name:  "bench",
			Usage: "并发提交计数任务并校验结果",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "tasks",
					Usage: "任务总数",
					Value: defaultBenchTasks,
				},
				&cli.IntFlag{
					Name:  "submitters",
					Usage: "并发提交者数量",
					Value: defaultSubmitters,
				},
				&cli.StringFlag{
					Name:  "metrics-addr",
					Usage: "Prometheus /metrics 监听地址，覆盖配置文件",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				tasks, submitters := cmd.Int("tasks"), cmd.Int("submitters")
				if tasks < 1 {
					return &usageError{err: fmt.Errorf("--tasks must be positive, got %d", tasks)}
				}
				if submitters < 1 {
					return &usageError{err: fmt.Errorf("--submitters must be positive, got %d", submitters)}
				}
				env, err := newEnv(cmd)
				if err != nil {
					return err
				}
				defer env.close()
				if cmd.IsSet("metrics-addr") {
					env.cfg.Metrics.Addr = cmd.String("metrics-addr")
				}
				return cmdBench(ctx, env, tasks, submitters)
			},
		},
	}
}

// env 聚合命令运行所需的配置、日志与观测组件。
type env struct {
	cfg      xconf.Config
	out      io.Writer
	logger   *slog.Logger
	observer xmetrics.Observer
	closers  []func() error
}

// newEnv 加载配置、应用命令行覆盖，并构建 logger 与 observer。
func newEnv(cmd *cli.Command) (*env, error) {
	cfg := xconf.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := xconf.Load(path)
		if err != nil {
			return nil, &usageError{err: err}
		}
		cfg = loaded
	}
	if cmd.IsSet("workers") {
		cfg.Pool.Workers = cmd.Int("workers")
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := cmd.String("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v := cmd.String("log-file"); v != "" {
		cfg.Log.File = v
	}
	if cmd.Bool("trace") {
		cfg.Trace.Stdout = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, &usageError{err: err}
	}

	root := cmd.Root()
	e := &env{cfg: cfg, out: root.Writer, observer: xmetrics.NoopObserver{}}

	builder := xlog.New().
		SetOutput(root.ErrWriter).
		SetLevelString(cfg.Log.Level).
		SetFormat(cfg.Log.Format).
		SetAddSource(cfg.Log.AddSource).
		With(slog.String("app", root.Name))
	if cfg.Log.File != "" {
		builder.SetRotation(cfg.Log.File, xlog.RotateConfig{
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
	}
	logger, cleanup, err := builder.Build()
	if err != nil {
		return nil, &usageError{err: err}
	}
	e.logger = logger
	e.closers = append(e.closers, cleanup)

	if cfg.Trace.Stdout {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(e.out))
		if err != nil {
			e.close()
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		e.closers = append(e.closers, func() error {
			return tp.Shutdown(context.Background())
		})
		observer, err := xmetrics.NewOTelObserver(xmetrics.WithTracerProvider(tp))
		if err != nil {
			e.close()
			return nil, err
		}
		e.observer = observer
	}
	return e, nil
}

// close 按注册的逆序释放资源。
func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && e.logger != nil {
			e.logger.Warn("cleanup failed", slog.Any("error", err))
		}
	}
	e.closers = nil
}

func (e *env) newPool(workers int) (*xpool.Pool, error) {
	return xpool.New(workers,
		xpool.WithName(e.cfg.Pool.Name),
		xpool.WithLogger(e.logger),
		xpool.WithObserver(e.observer),
	)
}

func add(a, b int) (int, error)      { return a + b, nil }
func multiply(a, b int) (int, error) { return a * b, nil }

// cmdDemo 在 workers 个 worker 的池上运行 add/multiply 示例。
func cmdDemo(ctx context.Context, e *env, workers int) error {
	pool, err := e.newPool(workers)
	if err != nil {
		return err
	}
	defer pool.Close()

	type job struct {
		label string
		fn    func(a, b int) (int, error)
		a, b  int
	}
	jobs := []job{
		{"add", add, 10, 20},
		{"multiply", multiply, 30, 2},
		{"multiply", multiply, 30, 5},
		{"multiply", multiply, 40, 5},
	}

	futures := make([]*xpool.Future[int], 0, len(jobs))
	for _, j := range jobs {
		f, err := xpool.Call2(pool, j.fn, j.a, j.b)
		if err != nil {
			return err
		}
		futures = append(futures, f)
	}
	for i, f := range futures {
		v, err := f.GetContext(ctx)
		if err != nil {
			return fmt.Errorf("%s(%d, %d): %w", jobs[i].label, jobs[i].a, jobs[i].b, err)
		}
		fmt.Fprintf(e.out, "%s(%d, %d) = %d\n", jobs[i].label, jobs[i].a, jobs[i].b, v)
	}

	if err := pool.Shutdown(ctx); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "pool %s (%d workers) stopped\n", pool.Name(), pool.Workers())
	return nil
}

// cmdBench 让 submitters 个 goroutine 共提交 tasks 个自增任务，
// 配置了 metrics 地址时同时暴露 /metrics。
//
// 压测、pool 排空与 metrics 服务在同一个 xrun 生命周期中运行：
// 压测结束或收到信号都会触发 pool 排空和 metrics 服务关闭。
func cmdBench(ctx context.Context, e *env, tasks, submitters int) error {
	pool, err := e.newPool(e.cfg.Pool.Workers)
	if err != nil {
		return err
	}
	defer pool.Close()

	runCtx, finish := context.WithCancel(ctx)
	defer finish()

	services := []func(context.Context) error{xrun.Drain(pool, 0)}
	if addr := e.cfg.Metrics.Addr; addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(xprom.NewPoolCollector(pool))
		mux := http.NewServeMux()
		mux.Handle("/metrics", xprom.Handler(reg))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		e.logger.Info("serving metrics", slog.String("addr", addr))
		services = append(services, xrun.HTTPServer(srv, metricsShutdownWait))
	}

	var res benchResult
	services = append(services, func(ctx context.Context) error {
		r, err := runBench(ctx, pool, tasks, submitters)
		if err != nil {
			return err
		}
		res = r
		finish()
		return nil
	})

	err = xrun.RunWithOptions(runCtx, []xrun.Option{
		xrun.WithLogger(e.logger),
		xrun.WithName("bench"),
		xrun.WithSignals(benchSignals),
	}, services...)
	if errors.Is(err, xrun.ErrSignal) {
		e.logger.Info("bench interrupted", slog.Any("cause", err))
		fmt.Fprintf(e.out, "interrupted: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := pool.Stats()
	fmt.Fprintf(e.out, "tasks=%d submitters=%d workers=%d elapsed=%s\n",
		tasks, submitters, pool.Workers(), res.elapsed)
	fmt.Fprintf(e.out, "counter=%d submitted=%d completed=%d failed=%d\n",
		res.counter, s.Submitted, s.Completed, s.Failed)
	return nil
}

// benchResult 是一次压测的观测结果。
type benchResult struct {
	counter int64
	elapsed time.Duration
}

// runBench 提交自增任务并等待全部完成，返回计数器的最终值与耗时。
// 计数器与 tasks 不一致时返回 errCounterMismatch。
func runBench(ctx context.Context, pool *xpool.Pool, tasks, submitters int) (benchResult, error) {
	var counter atomic.Int64
	start := time.Now()

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range submitters {
		n := tasks / submitters
		if i < tasks%submitters {
			n++
		}
		eg.Go(func() error {
			futures := make([]*xpool.Future[struct{}], 0, n)
			for range n {
				if err := egCtx.Err(); err != nil {
					return err
				}
				f, err := xpool.Go(pool, func() error {
					counter.Add(1)
					return nil
				})
				if err != nil {
					return err
				}
				futures = append(futures, f)
			}
			for _, f := range futures {
				if _, err := f.Get(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return benchResult{}, err
	}

	res := benchResult{counter: counter.Load(), elapsed: time.Since(start)}
	if res.counter != int64(tasks) {
		return res, fmt.Errorf("%w: got %d, want %d", errCounterMismatch, res.counter, tasks)
	}
	return res, nil
}
