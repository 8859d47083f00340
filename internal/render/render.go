package render

import (
	"context"
	"errors"
	"fmt"

	"edupresent/internal/document"
)

// 导出产物的 MIME 类型。
const (
	MIMEPDF  = "application/pdf"
	MIMEPPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEHTML = "text/html; charset=utf-8"
)

// ErrRender 表示渲染过程中协作方失败（例如无头浏览器不可用）。
// 单个图片解析失败不属于渲染错误：各格式按自己的降级策略处理，
// 绝不中断整个渲染。
var ErrRender = errors.New("render failed")

// FileResolver 是文件解析协作方：给定内容块里存的引用
// （对象键或路径），返回字节与 MIME 类型。引用不存在时返回
// ErrFileNotFound，由各投影器决定降级方式。
type FileResolver interface {
	Resolve(ctx context.Context, ref string) (data []byte, mimeType string, err error)
}

// ErrFileNotFound 表示引用的文件不存在。
var ErrFileNotFound = errors.New("file not found")

// Result 汇总一次渲染：产物字节、MIME 类型，以及被降级处理的
// 图片引用（调用方用它上报 ResourceMissing 告警）。
type Result struct {
	Data        []byte
	ContentType string
	MissingRefs []string
}

// slideLabel 生成各格式共用的页标签（序号按序列位置 1 基）。
func slideLabel(index int, s *document.Slide) string {
	return fmt.Sprintf("Slide %d: %s", index, s.SlideTitle())
}
