// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xpool: 固定大小的泛型 Worker Pool，提交任务返回 Future，支持优雅关闭
package util
