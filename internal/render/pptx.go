package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"edupresent/internal/document"
)

// EMU（English Metric Unit）换算：914400 EMU = 1 英寸。
const emuPerInch = 914400

// 幻灯片画布 4:3（10in x 7.5in），与 python 生态的默认模板一致。
const (
	pptxSlideWidth  = 10 * emuPerInch
	pptxSlideHeight = 15 * emuPerInch / 2
)

// 内容块的固定排版参数（单位 EMU）。块从 contentTop 起自上而下
// 堆叠，文本与图片各有固定的宽高与左边距，块间距 0.2 英寸。
const (
	pptxContentTop  = 2 * emuPerInch
	pptxTextLeft    = 1 * emuPerInch
	pptxTextWidth   = 8 * emuPerInch
	pptxTextHeight  = 1 * emuPerInch
	pptxImageLeft   = 2 * emuPerInch
	pptxImageWidth  = 6 * emuPerInch
	pptxImageHeight = 4 * emuPerInch
	pptxBlockGap    = emuPerInch / 5
)

// PPTXProjector 把 Document 投影成 OOXML 幻灯片包。
// 没有可用的纯 Go PPTX 库，包结构在这里手工拼装（最小部件集 +
// 逐页生成）。图片解析失败时该形状被静默跳过，排版游标不前进，
// 与 PDF 的占位行为刻意不同：幻灯片省掉一个形状不会破坏版面。
type PPTXProjector struct {
	Resolver FileResolver
	Logger   *slog.Logger
}

type pptxMedia struct {
	name string // ppt/media/ 下的文件名
	data []byte
}

type pptxSlide struct {
	xml   string
	rels  []pptxRel
	media []pptxMedia
}

type pptxRel struct {
	id     string
	relTyp string
	target string
}

// Project 渲染 PPTX。同一棵树产出字节一致（zip 头不含时间戳）。
func (p *PPTXProjector) Project(ctx context.Context, doc *document.Document) (Result, error) {
	var (
		slides   []pptxSlide
		missing  []string
		mediaSeq int
	)

	slides = append(slides, p.buildTitleSlide(doc))

	for i, slide := range doc.Slides {
		built, skipped := p.buildContentSlide(ctx, slide, i, &mediaSeq)
		missing = append(missing, skipped...)
		slides = append(slides, built)
	}

	data, err := writePackage(slides)
	if err != nil {
		return Result{}, fmt.Errorf("write pptx package for presentation %d: %w: %v", doc.ID, ErrRender, err)
	}

	return Result{
		Data:        data,
		ContentType: MIMEPPTX,
		MissingRefs: missing,
	}, nil
}

// buildTitleSlide 生成首页：演示文稿标题加可选描述。
func (p *PPTXProjector) buildTitleSlide(doc *document.Document) pptxSlide {
	var sb strings.Builder
	sb.WriteString(pptxSlideHead)

	shapeID := 2
	sb.WriteString(textShape(shapeID, "Title",
		emuPerInch/2, 2*emuPerInch+emuPerInch/5, 9*emuPerInch, 3*emuPerInch/2,
		doc.Title, 4400, true))
	shapeID++

	if doc.Description != "" {
		sb.WriteString(textShape(shapeID, "Subtitle",
			1*emuPerInch, 4*emuPerInch, 8*emuPerInch, 1*emuPerInch,
			doc.Description, 2000, true))
	}

	sb.WriteString(pptxSlideTail)
	return pptxSlide{xml: sb.String()}
}

// buildContentSlide 生成一页内容：标题占位框加自上而下堆叠的块。
func (p *PPTXProjector) buildContentSlide(ctx context.Context, slide *document.Slide, index int, mediaSeq *int) (pptxSlide, []string) {
	var (
		sb      strings.Builder
		out     pptxSlide
		missing []string
	)
	sb.WriteString(pptxSlideHead)

	title := slide.Title
	if title == "" {
		title = "Untitled Slide"
	}

	shapeID := 2
	sb.WriteString(textShape(shapeID, "Title",
		emuPerInch/2, emuPerInch/4, 9*emuPerInch, emuPerInch,
		title, 3200, false))
	shapeID++

	cursor := pptxContentTop
	relSeq := 0

	for _, block := range slide.BlocksByPaintOrder() {
		switch block.Type {
		case document.BlockText:
			sb.WriteString(textShape(shapeID, fmt.Sprintf("TextBox %d", shapeID),
				pptxTextLeft, cursor, pptxTextWidth, pptxTextHeight,
				block.Content, 1800, false))
			shapeID++
			cursor += pptxTextHeight + pptxBlockGap

		case document.BlockImage:
			data, mimeType, err := p.resolve(ctx, block.Content)
			if err != nil {
				// 静默跳过：不加形状、不推进游标、不报错。
				if p.Logger != nil {
					p.Logger.Warn("pptx image unresolvable, shape skipped",
						slog.String("ref", block.Content),
						slog.Int("slide_index", index),
						slog.Any("error", err),
					)
				}
				missing = append(missing, block.Content)
				continue
			}

			*mediaSeq++
			relSeq++
			relID := fmt.Sprintf("rId%d", relSeq)
			name := fmt.Sprintf("image%d.%s", *mediaSeq, mediaExt(mimeType))

			out.media = append(out.media, pptxMedia{name: name, data: data})
			out.rels = append(out.rels, pptxRel{
				id:     relID,
				relTyp: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image",
				target: "../media/" + name,
			})

			sb.WriteString(pictureShape(shapeID, relID,
				pptxImageLeft, cursor, pptxImageWidth, pptxImageHeight))
			shapeID++
			cursor += pptxImageHeight + pptxBlockGap

		default:
			// 其它类型在幻灯片里没有对应形状，直接略过。
		}
	}

	sb.WriteString(pptxSlideTail)
	out.xml = sb.String()
	return out, missing
}

func (p *PPTXProjector) resolve(ctx context.Context, ref string) ([]byte, string, error) {
	if ref == "" || p.Resolver == nil {
		return nil, "", ErrFileNotFound
	}
	return p.Resolver.Resolve(ctx, ref)
}

func mediaExt(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/gif":
		return "gif"
	default:
		// 未知类型按 png 申报；内容类型清单里有 png 的 Default。
		return "png"
	}
}

func textShape(id int, name string, x, y, cx, cy int, text string, sizeHundredths int, centered bool) string {
	align := ""
	if centered {
		align = ` algn="ctr"`
	}
	return fmt.Sprintf(`<p:sp>
<p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>
<p:txBody><a:bodyPr wrap="square"/><a:lstStyle/><a:p><a:pPr%s/><a:r><a:rPr lang="en-US" sz="%d"/><a:t>%s</a:t></a:r></a:p></p:txBody>
</p:sp>
`, id, escapeXML(name), x, y, cx, cy, align, sizeHundredths, escapeXML(text))
}

func pictureShape(id int, relID string, x, y, cx, cy int) string {
	return fmt.Sprintf(`<p:pic>
<p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>
<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>
<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>
</p:pic>
`, id, id, relID, x, y, cx, cy)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return ""
	}
	return buf.String()
}

// writePackage 把所有部件按固定顺序写进 zip。zip 头不带时间戳，
// 保证同一输入字节级一致。
func writePackage(slides []pptxSlide) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	var types strings.Builder
	types.WriteString(pptxContentTypesHead)
	for i := range slides {
		fmt.Fprintf(&types,
			"<Override PartName=\"/ppt/slides/slide%d.xml\" ContentType=\"application/vnd.openxmlformats-officedocument.presentationml.slide+xml\"/>\n",
			i+1)
	}
	types.WriteString("</Types>\n")
	if err := write("[Content_Types].xml", []byte(types.String())); err != nil {
		return nil, err
	}

	if err := write("_rels/.rels", []byte(pptxRootRels)); err != nil {
		return nil, err
	}

	var pres strings.Builder
	pres.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>
<p:sldIdLst>
`)
	for i := range slides {
		fmt.Fprintf(&pres, "<p:sldId id=\"%d\" r:id=\"rId%d\"/>\n", 256+i, i+2)
	}
	fmt.Fprintf(&pres, `</p:sldIdLst>
<p:sldSz cx="%d" cy="%d" type="screen4x3"/>
<p:notesSz cx="%d" cy="%d"/>
</p:presentation>
`, pptxSlideWidth, pptxSlideHeight, pptxSlideHeight, pptxSlideWidth)
	if err := write("ppt/presentation.xml", []byte(pres.String())); err != nil {
		return nil, err
	}

	var presRels strings.Builder
	presRels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>
`)
	for i := range slides {
		fmt.Fprintf(&presRels,
			"<Relationship Id=\"rId%d\" Type=\"http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide\" Target=\"slides/slide%d.xml\"/>\n",
			i+2, i+1)
	}
	presRels.WriteString("</Relationships>\n")
	if err := write("ppt/_rels/presentation.xml.rels", []byte(presRels.String())); err != nil {
		return nil, err
	}

	if err := write("ppt/slideMasters/slideMaster1.xml", []byte(pptxSlideMaster)); err != nil {
		return nil, err
	}
	if err := write("ppt/slideMasters/_rels/slideMaster1.xml.rels", []byte(pptxSlideMasterRels)); err != nil {
		return nil, err
	}
	if err := write("ppt/slideLayouts/slideLayout1.xml", []byte(pptxSlideLayout)); err != nil {
		return nil, err
	}
	if err := write("ppt/slideLayouts/_rels/slideLayout1.xml.rels", []byte(pptxSlideLayoutRels)); err != nil {
		return nil, err
	}
	if err := write("ppt/theme/theme1.xml", []byte(pptxTheme)); err != nil {
		return nil, err
	}

	for i, slide := range slides {
		name := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		if err := write(name, []byte(slide.xml)); err != nil {
			return nil, err
		}

		var rels strings.Builder
		rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
`)
		for _, rel := range slide.rels {
			fmt.Fprintf(&rels, "<Relationship Id=\"%s\" Type=\"%s\" Target=\"%s\"/>\n",
				rel.id, rel.relTyp, rel.target)
		}
		rels.WriteString("</Relationships>\n")
		relName := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1)
		if err := write(relName, []byte(rels.String())); err != nil {
			return nil, err
		}

		for _, m := range slide.media {
			if err := write("ppt/media/"+m.name, m.data); err != nil {
				return nil, err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close package: %w", err)
	}
	return buf.Bytes(), nil
}
