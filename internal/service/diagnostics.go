// Package service 实现了基因身份解析、基因集摄入与查询的业务逻辑。
package service

import "fmt"

// Diagnostics 收集一次批量操作中产生的非致命解析诊断。
// 它取代了把错误文本写入全局输出流再截获的做法：收集器作为显式的值
// 在摄入流水线中传递，批量结束后由调用方取走全部消息。
type Diagnostics struct {
	msgs []string
}

// Addf 追加一条格式化的诊断消息。
func (d *Diagnostics) Addf(format string, args ...interface{}) {
	d.msgs = append(d.msgs, fmt.Sprintf(format, args...))
}

// Messages 返回收集到的全部诊断消息，未收集到时返回空切片。
func (d *Diagnostics) Messages() []string {
	if d.msgs == nil {
		return []string{}
	}
	return d.msgs
}

// Empty 判断是否没有任何诊断。
func (d *Diagnostics) Empty() bool {
	return len(d.msgs) == 0
}
