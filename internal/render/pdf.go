package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"edupresent/internal/document"
)

var pdfTemplate = template.Must(template.New("print").Funcs(template.FuncMap{
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
}).Parse(pdfTemplateString))

type pdfItem struct {
	Kind     string // text / image / placeholder / spacer
	Content  string
	ImageSrc template.URL
}

type pdfSlideView struct {
	Label string
	Items []pdfItem
}

type pdfDocView struct {
	Title       string
	Description string
	Slides      []pdfSlideView
}

// PDFProjector 把 Document 投影成 PDF：先生成流式排版的打印 HTML，
// 再交给无头浏览器打印。图片通过 Resolver 解析并以 data URI 内嵌；
// 解析失败的图片降级为斜体占位行 "[Image: …]"，计入 MissingRefs，
// 不会让整次渲染失败。
type PDFProjector struct {
	Resolver FileResolver
	Logger   *slog.Logger
}

// Project 渲染 PDF。浏览器协作方失败时返回包装了 ErrRender 的错误。
func (p *PDFProjector) Project(ctx context.Context, doc *document.Document) (Result, error) {
	html, missing := p.buildPrintHTML(ctx, doc)

	data, err := printToPDF(html)
	if err != nil {
		return Result{}, fmt.Errorf("print presentation %d: %w: %v", doc.ID, ErrRender, err)
	}

	return Result{
		Data:        data,
		ContentType: MIMEPDF,
		MissingRefs: missing,
	}, nil
}

// buildPrintHTML 生成打印页 HTML。单独拆出来便于测试：占位与
// 排序行为在这一层就已确定，不依赖浏览器。
func (p *PDFProjector) buildPrintHTML(ctx context.Context, doc *document.Document) (string, []string) {
	var missing []string

	view := pdfDocView{
		Title:       doc.Title,
		Description: doc.Description,
	}

	for i, slide := range doc.Slides {
		sv := pdfSlideView{Label: slideLabel(i+1, slide)}

		for _, block := range slide.BlocksByPaintOrder() {
			switch block.Type {
			case document.BlockText:
				sv.Items = append(sv.Items, pdfItem{Kind: "text", Content: block.Content})
			case document.BlockImage:
				src, err := p.resolveImage(ctx, block.Content)
				if err != nil {
					// 可恢复的块级失败：占位行顶替，继续渲染。
					if p.Logger != nil {
						p.Logger.Warn("pdf image unresolvable, using placeholder",
							slog.String("ref", block.Content),
							slog.Any("error", err),
						)
					}
					missing = append(missing, block.Content)
					sv.Items = append(sv.Items, pdfItem{
						Kind:    "placeholder",
						Content: imagePlaceholder(block.Content),
					})
					break
				}
				sv.Items = append(sv.Items, pdfItem{Kind: "image", ImageSrc: src})
			default:
				// 未识别类型只保留块间距，维持排版节奏。
				sv.Items = append(sv.Items, pdfItem{Kind: "spacer"})
			}
		}

		view.Slides = append(view.Slides, sv)
	}

	var buf bytes.Buffer
	if err := pdfTemplate.Execute(&buf, view); err != nil {
		// 模板是编译期常量，执行失败意味着视图构造有 bug。
		panic(fmt.Sprintf("execute print template: %v", err))
	}
	return buf.String(), missing
}

func (p *PDFProjector) resolveImage(ctx context.Context, ref string) (template.URL, error) {
	if ref == "" {
		return "", ErrFileNotFound
	}
	if p.Resolver == nil {
		return "", ErrFileNotFound
	}
	data, mimeType, err := p.Resolver.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return template.URL("data:" + mimeType + ";base64," + encoded), nil
}

// imagePlaceholder 生成图片缺失时的占位文本。
func imagePlaceholder(content string) string {
	if content == "" {
		content = "Image"
	}
	return fmt.Sprintf("[Image: %s]", content)
}

// printToPDF 在无头浏览器中渲染 HTML 并返回 PDF 字节。
func printToPDF(htmlContent string) ([]byte, error) {
	launch := launcher.New().
		Headless(true).
		NoSandbox(true)

	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Timeout(30 * time.Second).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(30 * time.Second)
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}

	return data, nil
}
