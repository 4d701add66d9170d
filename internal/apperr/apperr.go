// Package apperr 定义了全局错误类别。
// 调用方用 errors.Is 判断类别，handler 层据此映射 HTTP 状态码：
// 校验失败、目标不存在、存储故障三类必须可区分，不得折叠成同一个错误码。
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 请求本身不合法（表头格式错误、缺少必需参数、阈值无法解析、
	// 试图删除 Public 所有的记录等），整个操作被拒绝，不做任何部分写入。
	ErrValidation = errors.New("validation failed")

	// ErrNotFound 引用的记录不存在（例如相似度查询的目标基因集）。
	ErrNotFound = errors.New("not found")

	// ErrStorage 底层存储不可达，或在预期 upsert 路径之外报出索引/约束冲突。
	ErrStorage = errors.New("storage failure")
)

// Validationf 构造一个带 ErrValidation 类别的错误。
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// NotFoundf 构造一个带 ErrNotFound 类别的错误。
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

// Storagef 构造一个带 ErrStorage 类别的错误，并保留底层错误信息。
func Storagef(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s: %v", ErrStorage, msg, err)
}
