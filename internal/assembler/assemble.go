package assembler

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gorm.io/datatypes"

	"edupresent/internal/database"
	"edupresent/internal/document"
)

// ErrAssembly 表示存储行无法组装成合法的树（典型情况：外键指向
// 不存在的父节点）。调用方用 errors.Is 识别。
var ErrAssembly = errors.New("assembly failed")

// Assemble 把平面的存储行组装成嵌套的 Document。
// 排序是确定性的：Slide 按 order_index 升序；同一页内的内容块按
// z_index 升序、id 升序（数据库查询顺序本身没有保证，必须在这里
// 显式排序）。任何行引用了不存在的父 id 时返回 ErrAssembly。
func Assemble(pres database.Presentation, slides []database.Slide, blocks []database.ContentBlock) (*document.Document, error) {
	doc := &document.Document{
		ID:          pres.ID,
		Title:       pres.Title,
		Description: pres.Description,
		Theme:       pres.Theme,
		Settings:    jsonToMap(pres.Settings),
		CreatedAt:   pres.CreatedAt,
		UpdatedAt:   pres.UpdatedAt,
	}
	if doc.Theme == "" {
		doc.Theme = document.DefaultTheme
	}

	slideNodes := make(map[uint]*document.Slide, len(slides))
	for _, row := range slides {
		if row.PresentationID != pres.ID {
			return nil, fmt.Errorf("slide %d references presentation %d, want %d: %w",
				row.ID, row.PresentationID, pres.ID, ErrAssembly)
		}
		node := &document.Slide{
			ID:         row.ID,
			OrderIndex: row.OrderIndex,
			Title:      row.Title,
			Layout:     row.Layout,
			Background: jsonToMap(row.Background),
			Animations: jsonToMap(row.Animations),
		}
		slideNodes[row.ID] = node
		doc.Slides = append(doc.Slides, node)
	}

	sort.SliceStable(doc.Slides, func(i, j int) bool {
		return doc.Slides[i].OrderIndex < doc.Slides[j].OrderIndex
	})

	// 先按 (z_index, id) 排好再挂到父节点，保证同页内顺序稳定。
	ordered := make([]database.ContentBlock, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ZIndex != ordered[j].ZIndex {
			return ordered[i].ZIndex < ordered[j].ZIndex
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, row := range ordered {
		parent, ok := slideNodes[row.SlideID]
		if !ok {
			return nil, fmt.Errorf("content block %d references missing slide %d: %w",
				row.ID, row.SlideID, ErrAssembly)
		}
		parent.Blocks = append(parent.Blocks, &document.Block{
			ID:        row.ID,
			Type:      row.Type,
			Content:   row.Content,
			Metadata:  jsonToMap(row.Metadata),
			PositionX: row.PositionX,
			PositionY: row.PositionY,
			Width:     row.Width,
			Height:    row.Height,
			ZIndex:    row.ZIndex,
			Styles:    jsonToMap(row.Styles),
		})
	}

	return doc, nil
}

func jsonToMap(raw datatypes.JSON) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func mapToJSON(m map[string]any) datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON([]byte(`{}`))
	}
	data, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(data)
}
