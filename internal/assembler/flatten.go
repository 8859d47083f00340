package assembler

import (
	"fmt"

	"edupresent/internal/database"
	"edupresent/internal/document"
)

// Snapshot 记录落库前的旧状态：已持久化的 Slide id 及其下属
// 内容块 id。Flatten 用它计算删除集。
type Snapshot struct {
	SlideIDs map[uint]struct{}
	// BlockIDs 以父 Slide 分组；整页被删除时其块 id 不会单独
	// 进入删除集（级联约束负责清理）。
	BlockIDs map[uint]map[uint]struct{}
}

// NewSnapshot 从存储行构建 Snapshot。
func NewSnapshot(slides []database.Slide, blocks []database.ContentBlock) *Snapshot {
	snap := &Snapshot{
		SlideIDs: make(map[uint]struct{}, len(slides)),
		BlockIDs: make(map[uint]map[uint]struct{}, len(slides)),
	}
	for _, s := range slides {
		snap.SlideIDs[s.ID] = struct{}{}
		snap.BlockIDs[s.ID] = map[uint]struct{}{}
	}
	for _, b := range blocks {
		if group, ok := snap.BlockIDs[b.SlideID]; ok {
			group[b.ID] = struct{}{}
		}
	}
	return snap
}

// RowSet 是 Flatten 的输出：一次保存要执行的全部行级变更。
// SlideInserts 内嵌各自的新块，交由 gorm 关联级联插入，
// 避免拿不到新父 id 的问题。
type RowSet struct {
	Presentation database.Presentation
	SlideInserts []database.Slide
	SlideUpdates []database.Slide
	SlideDeletes []uint
	BlockInserts []database.ContentBlock
	BlockUpdates []database.ContentBlock
	BlockDeletes []uint
}

// Flatten 把嵌套的 Document 拆成平面行。
//
// Slide 的 order_index 一律按它在序列中的位置重新赋值（稠密
// 0..n-1，丢弃过期的存量值）；内容块的 z_index 原样写回（由作者
// 控制，不重排）。没有 id 的节点进入插入集；prior 中存在而新树里
// 缺席的 id 进入删除集。删除是级联感知的：整页删除不单独列出它的
// 块。prior 传 nil 表示全新文档，没有删除集。
//
// 带 id 的节点必须出现在 prior 里：更新只允许指向本演示文稿名下
// 已存在的行。陈旧或他人名下的 id 返回包裹 ErrAssembly 的错误，
// 防止一次保存改写别的演示文稿的行。
func Flatten(doc *document.Document, prior *Snapshot) (RowSet, error) {
	rs := RowSet{
		Presentation: database.Presentation{
			Title:       doc.Title,
			Description: doc.Description,
			Theme:       doc.Theme,
			Settings:    mapToJSON(doc.Settings),
		},
	}
	rs.Presentation.ID = doc.ID

	liveSlides := make(map[uint]struct{}, len(doc.Slides))
	liveBlocks := make(map[uint]map[uint]struct{}, len(doc.Slides))

	for pos, slide := range doc.Slides {
		row := database.Slide{
			PresentationID: doc.ID,
			OrderIndex:     pos,
			Title:          slide.Title,
			Layout:         slide.Layout,
			Background:     mapToJSON(slide.Background),
			Animations:     mapToJSON(slide.Animations),
		}

		if !slide.Persisted() {
			// 新页连同它的所有块一次插入。
			for _, block := range slide.Blocks {
				row.Blocks = append(row.Blocks, blockRow(block, 0))
			}
			rs.SlideInserts = append(rs.SlideInserts, row)
			continue
		}

		if !prior.ownsSlide(slide.ID) {
			return RowSet{}, fmt.Errorf("slide %d is not owned by presentation %d: %w",
				slide.ID, doc.ID, ErrAssembly)
		}
		row.ID = slide.ID
		rs.SlideUpdates = append(rs.SlideUpdates, row)
		liveSlides[slide.ID] = struct{}{}
		liveBlocks[slide.ID] = map[uint]struct{}{}

		for _, block := range slide.Blocks {
			brow := blockRow(block, slide.ID)
			if !block.Persisted() {
				rs.BlockInserts = append(rs.BlockInserts, brow)
				continue
			}
			if !prior.ownsBlock(slide.ID, block.ID) {
				return RowSet{}, fmt.Errorf("block %d is not owned by slide %d: %w",
					block.ID, slide.ID, ErrAssembly)
			}
			brow.ID = block.ID
			rs.BlockUpdates = append(rs.BlockUpdates, brow)
			liveBlocks[slide.ID][block.ID] = struct{}{}
		}
	}

	if prior == nil {
		return rs, nil
	}

	for id := range prior.SlideIDs {
		if _, ok := liveSlides[id]; !ok {
			rs.SlideDeletes = append(rs.SlideDeletes, id)
		}
	}
	for slideID, ids := range prior.BlockIDs {
		live, slideSurvives := liveBlocks[slideID]
		if !slideSurvives {
			continue // 整页删除，块行走级联
		}
		for id := range ids {
			if _, ok := live[id]; !ok {
				rs.BlockDeletes = append(rs.BlockDeletes, id)
			}
		}
	}

	return rs, nil
}

func (s *Snapshot) ownsSlide(id uint) bool {
	if s == nil {
		return false
	}
	_, ok := s.SlideIDs[id]
	return ok
}

func (s *Snapshot) ownsBlock(slideID, id uint) bool {
	if s == nil {
		return false
	}
	_, ok := s.BlockIDs[slideID][id]
	return ok
}

func blockRow(b *document.Block, slideID uint) database.ContentBlock {
	return database.ContentBlock{
		SlideID:   slideID,
		Type:      b.Type,
		Content:   b.Content,
		Metadata:  mapToJSON(b.Metadata),
		PositionX: b.PositionX,
		PositionY: b.PositionY,
		Width:     b.Width,
		Height:    b.Height,
		ZIndex:    b.ZIndex,
		Styles:    mapToJSON(b.Styles),
	}
}
