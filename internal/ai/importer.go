package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"edupresent/internal/document"
)

// ErrImport 表示 AI 草稿无法转换成合法的 Document
// （标题缺失、slides 不是序列、JSON 根本解析不了）。
var ErrImport = errors.New("import draft failed")

// Draft 是 AI 生成的演示文稿草稿：只有标题、描述和平铺的页列表，
// 还没有经过校验与默认值填充。
type Draft struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Slides      []DraftSlide `json:"slides"`
}

// DraftSlide 是草稿里的一页。
type DraftSlide struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Layout        string `json:"layout"`
	SpeakingNotes string `json:"speaking_notes,omitempty"`
}

// ParseDraft 解析协作方输出的 JSON 草稿。模型偶尔会包一层
// Markdown 代码栅栏，先剥掉再解析；slides 字段必须是数组。
func ParseDraft(raw string) (Draft, error) {
	var draft Draft

	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return draft, fmt.Errorf("empty draft payload: %w", ErrImport)
	}

	// 先拿 RawMessage 验证 slides 的形状，区分"缺失"与"不是序列"。
	var probe struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Slides      json.RawMessage `json:"slides"`
	}
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return draft, fmt.Errorf("decode draft: %v: %w", err, ErrImport)
	}

	draft.Title = probe.Title
	draft.Description = probe.Description

	if len(probe.Slides) > 0 {
		if err := json.Unmarshal(probe.Slides, &draft.Slides); err != nil {
			return draft, fmt.Errorf("draft slides is not a sequence: %w", ErrImport)
		}
	}

	return draft, nil
}

// ImportDraft 把草稿转换成合法的 Document。
// 每页生成一个 text 内容块承载 content，块使用默认几何
// （100x100、原点），z_index 等于该块在页内的序号。
// 标题缺失或为空返回 ErrImport。
func ImportDraft(draft Draft) (*document.Document, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, fmt.Errorf("draft title is required: %w", ErrImport)
	}

	doc := document.New(draft.Title)
	doc.Description = draft.Description

	for _, ds := range draft.Slides {
		layout := ds.Layout
		if layout == "" {
			layout = "default"
		}

		slide := &document.Slide{
			Title:      ds.Title,
			Layout:     layout,
			Background: map[string]any{},
			Animations: map[string]any{},
		}

		block := document.NewBlock(document.BlockText, ds.Content)
		block.ZIndex = 0 // 草稿每页只有一个块
		slide.AppendBlock(block)

		doc.AppendSlide(slide)
	}

	return doc, nil
}

// stripCodeFence 去掉 ```json ... ``` 一类的代码栅栏。
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
