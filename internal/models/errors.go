package models

import "errors"

// 错误类别：HTTP 层据此映射状态码（400 / 404）
// 检测器和聚合器对"没有事件"不报错，空列表是正常结果
var (
	// ErrValidation 输入校验失败（空标记、非法判定状态、不支持的文件类型等）
	ErrValidation = errors.New("validation error")
	// ErrNotFound 未知的 Job / 结果标识
	ErrNotFound = errors.New("not found")
)
