package render

// pdfTemplateString 是 PDF 打印页的 Go HTML 模板。
// 流式排版：分页交给浏览器的打印引擎（@page A4），不手工分页。
// 标题页居中，之后每页一个标题行加顺序排列的内容块。
const pdfTemplateString = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        @page { size: A4; margin: 2cm; }
        body {
            margin: 0;
            font-family: Helvetica, Arial, sans-serif;
            font-size: 11pt;
            line-height: 1.4;
        }
        .doc-title {
            font-size: 24pt;
            text-align: center;
            margin-bottom: 30pt;
        }
        .doc-description { margin-bottom: 0; }
        .title-gap { height: 0.5in; }
        .slide-heading {
            font-size: 16pt;
            font-weight: bold;
            margin: 0 0 6pt 0;
        }
        .block-text { margin: 0; }
        .block-image { width: 4in; height: 3in; object-fit: contain; display: block; }
        .block-placeholder { font-style: italic; margin: 0; }
        .block-gap { height: 12pt; }
        .slide-gap { height: 0.3in; }
    </style>
</head>
<body>
    <div class="doc-title">{{.Title}}</div>
{{if .Description}}    <p class="doc-description">{{.Description}}</p>
{{end}}    <div class="title-gap"></div>
{{range .Slides}}    <h1 class="slide-heading">{{.Label}}</h1>
{{range .Items}}{{if eq .Kind "text"}}    <p class="block-text">{{.Content | safeHTML}}</p>
{{else if eq .Kind "image"}}    <img class="block-image" src="{{.ImageSrc}}">
{{else if eq .Kind "placeholder"}}    <p class="block-placeholder">{{.Content}}</p>
{{end}}    <div class="block-gap"></div>
{{end}}    <div class="slide-gap"></div>
{{end}}</body>
</html>
`
