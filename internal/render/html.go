package render

import (
	"bytes"
	"fmt"
	"html/template"

	"edupresent/internal/document"
)

// htmlTemplateString 是自包含 HTML 预览的模板，样式全部内联。
// 文本块内容按约定不转义（调用方信任或已自行消毒）。
const htmlTemplateString = `<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; }
        .slide { margin-bottom: 40px; border: 1px solid #ddd; padding: 20px; }
        .slide-title { font-size: 24px; font-weight: bold; margin-bottom: 15px; }
        .content-block { margin-bottom: 15px; }
        .text-block { font-size: 16px; line-height: 1.6; }
        .image-block { max-width: 100%; height: auto; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <p>{{.Description}}</p>
{{range .Slides}}    <div class="slide">
        <div class="slide-title">{{.Label}}</div>
{{range .Blocks}}{{if eq .Type "text"}}        <div class="content-block text-block">{{.Content | safeHTML}}</div>
{{else if eq .Type "image"}}        <div class="content-block"><img class="image-block" src="{{.Content}}" alt="Image"></div>
{{end}}{{end}}    </div>
{{end}}</body>
</html>
`

var htmlTemplate = template.Must(template.New("preview").Funcs(template.FuncMap{
	// 文本块存的是富文本 HTML，按原样输出。
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
}).Parse(htmlTemplateString))

type htmlSlideView struct {
	Label  string
	Blocks []*document.Block
}

type htmlDocView struct {
	Title       string
	Description string
	Slides      []htmlSlideView
}

// HTMLProjector 把 Document 投影成单个自包含的 HTML 文档。
// 页按 order_index 顺序输出，块按绘制顺序输出；未识别的块类型
// 静默跳过（浏览器端本来也不会显示任何东西）。
type HTMLProjector struct{}

// Project 渲染 HTML 预览。同一棵树的输出内容确定。
func (HTMLProjector) Project(doc *document.Document) (Result, error) {
	view := htmlDocView{
		Title:       doc.Title,
		Description: doc.Description,
	}
	for i, slide := range doc.Slides {
		view.Slides = append(view.Slides, htmlSlideView{
			Label:  slideLabel(i+1, slide),
			Blocks: slide.BlocksByPaintOrder(),
		})
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return Result{}, fmt.Errorf("execute preview template: %w", err)
	}

	return Result{
		Data:        buf.Bytes(),
		ContentType: MIMEHTML,
	}, nil
}
