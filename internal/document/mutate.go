package document

import "sort"

// 树的修改操作。所有操作维持三条不变量：
//  1. 兄弟 Slide 的 OrderIndex 在 Normalize 之后稠密且唯一；
//  2. Block 的绘制顺序由 ZIndex 决定，相同 ZIndex 按插入顺序；
//  3. 节点随时只有一个父节点，移除必须显式进行。

// AppendSlide 在末尾追加一页并赋予下一个 OrderIndex。
func (d *Document) AppendSlide(s *Slide) {
	s.OrderIndex = len(d.Slides)
	d.Slides = append(d.Slides, s)
}

// InsertSlideAt 在 pos（0 基）处插入一页，越界时收敛到两端。
// 插入后重排 OrderIndex。
func (d *Document) InsertSlideAt(pos int, s *Slide) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(d.Slides) {
		pos = len(d.Slides)
	}
	d.Slides = append(d.Slides, nil)
	copy(d.Slides[pos+1:], d.Slides[pos:])
	d.Slides[pos] = s
	d.Normalize()
}

// RemoveSlideAt 移除 pos 处的一页并返回它；越界返回 nil。
// 被移除的页脱离本树，其子块随之一起脱离。
func (d *Document) RemoveSlideAt(pos int) *Slide {
	if pos < 0 || pos >= len(d.Slides) {
		return nil
	}
	removed := d.Slides[pos]
	d.Slides = append(d.Slides[:pos], d.Slides[pos+1:]...)
	d.Normalize()
	return removed
}

// MoveSlide 将 from 处的页移动到 to 处并重排 OrderIndex。
func (d *Document) MoveSlide(from, to int) {
	if from < 0 || from >= len(d.Slides) || from == to {
		return
	}
	if to < 0 {
		to = 0
	}
	if to >= len(d.Slides) {
		to = len(d.Slides) - 1
	}
	s := d.Slides[from]
	d.Slides = append(d.Slides[:from], d.Slides[from+1:]...)
	d.Slides = append(d.Slides, nil)
	copy(d.Slides[to+1:], d.Slides[to:])
	d.Slides[to] = s
	d.Normalize()
}

// Normalize 把 Slide 的 OrderIndex 重排为 0..n-1。
// 存量的 OrderIndex 允许出现空洞（例如中间页被删除后），
// 但任何归一化操作之后必须稠密。
func (d *Document) Normalize() {
	for i, s := range d.Slides {
		s.OrderIndex = i
	}
}

// AppendBlock 追加一个内容块。不改写块的 ZIndex：ZIndex 由作者
// 控制，追加位置只影响同 ZIndex 的平局顺序。
func (s *Slide) AppendBlock(b *Block) {
	s.Blocks = append(s.Blocks, b)
}

// RemoveBlockAt 移除 pos 处的内容块并返回它；越界返回 nil。
func (s *Slide) RemoveBlockAt(pos int) *Block {
	if pos < 0 || pos >= len(s.Blocks) {
		return nil
	}
	removed := s.Blocks[pos]
	s.Blocks = append(s.Blocks[:pos], s.Blocks[pos+1:]...)
	return removed
}

// SetGeometry 调整内容块的位置与尺寸。
func (b *Block) SetGeometry(x, y, w, h float64) {
	b.PositionX = x
	b.PositionY = y
	b.Width = w
	b.Height = h
}

// BlocksByPaintOrder 返回按绘制顺序（ZIndex 升序，相同 ZIndex 保持
// 插入顺序）排列的内容块。返回新切片，不改动原有顺序。
func (s *Slide) BlocksByPaintOrder() []*Block {
	ordered := make([]*Block, len(s.Blocks))
	copy(ordered, s.Blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ZIndex < ordered[j].ZIndex
	})
	return ordered
}
