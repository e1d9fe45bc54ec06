// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志构建器，基于 log/slog，支持 lumberjack 文件轮转
//   - xmetrics: 统一可观测性接口（追踪、指标），提供 OpenTelemetry 实现
//   - xprom: 把 xpool 计数器暴露为 Prometheus 指标
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 未配置时退化为 no-op，不影响业务路径
package observability
