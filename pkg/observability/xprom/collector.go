// Package xprom 把 xpool 的计数器暴露为 Prometheus 指标。
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(xprom.NewPoolCollector(pool))
//	http.Handle("/metrics", xprom.Handler(reg))
package xprom

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omeyang/xtask/pkg/util/xpool"
)

const namespace = "xtask"

// StatsSource 是采集所需的 pool 方法子集，*xpool.Pool 满足此接口。
type StatsSource interface {
	Name() string
	Workers() int
	Stats() xpool.Stats
}

var _ StatsSource = (*xpool.Pool)(nil)

// PoolCollector 在每次采集时读取一次 Stats 快照。
type PoolCollector struct {
	source StatsSource

	workers   *prometheus.Desc
	submitted *prometheus.Desc
	completed *prometheus.Desc
	failed    *prometheus.Desc
	panicked  *prometheus.Desc
	running   *prometheus.Desc
	pending   *prometheus.Desc
}

var _ prometheus.Collector = (*PoolCollector)(nil)

// NewPoolCollector 创建采集器，指标带 pool=<Name()> 常量标签。
func NewPoolCollector(source StatsSource) *PoolCollector {
	labels := prometheus.Labels{"pool": source.Name()}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, nil, labels)
	}
	return &PoolCollector{
		source:    source,
		workers:   desc("workers", "Number of worker goroutines."),
		submitted: desc("tasks_submitted_total", "Tasks accepted into the queue."),
		completed: desc("tasks_completed_total", "Tasks that finished running, including failures."),
		failed:    desc("tasks_failed_total", "Tasks that returned an error or panicked."),
		panicked:  desc("tasks_panicked_total", "Tasks that panicked."),
		running:   desc("tasks_running", "Tasks currently running."),
		pending:   desc("tasks_pending", "Tasks waiting in the queue."),
	}
}

// Describe 实现 prometheus.Collector。
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workers
	ch <- c.submitted
	ch <- c.completed
	ch <- c.failed
	ch <- c.panicked
	ch <- c.running
	ch <- c.pending
}

// Collect 实现 prometheus.Collector。
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(c.source.Workers()))
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(s.Submitted))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(s.Completed))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed))
	ch <- prometheus.MustNewConstMetric(c.panicked, prometheus.CounterValue, float64(s.Panicked))
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, float64(s.Running))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.Pending))
}

// Handler 返回 registry 的 /metrics 处理器。
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
