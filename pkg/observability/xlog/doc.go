// Package xlog 基于 log/slog 构建日志实例，支持文件轮转。
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xtask.log", xlog.RotateConfig{MaxSizeMB: 100}).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// Build 返回 *slog.Logger，可直接交给 xpool.WithLogger、xrun.WithLogger。
package xlog
