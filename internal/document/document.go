package document

import "time"

// 内容块类型。保持为开放集合：渲染端遇到未知类型会按各自的
// 降级策略处理，而不是报错。
const (
	BlockText  = "text"
	BlockImage = "image"
	BlockVideo = "video"
)

// 几何默认值：新块为 100x100，放在原点。
const (
	DefaultBlockWidth  = 100.0
	DefaultBlockHeight = 100.0
)

// DefaultTheme 是未指定主题时的回退值。
const DefaultTheme = "default"

// Document 是内存中的演示文稿树（Presentation → Slide → ContentBlock）。
// 一个 Document 实例由单个调用方独占，内部不做并发保护。
type Document struct {
	ID          uint
	Title       string
	Description string
	Theme       string
	Settings    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Slides      []*Slide
}

// Slide 是演示文稿中的一页。OrderIndex 决定其在序列中的位置；
// 经过 Normalize 后保证在兄弟节点间稠密且唯一（0..n-1）。
type Slide struct {
	ID         uint
	OrderIndex int
	Title      string
	Layout     string
	Background map[string]any
	Animations map[string]any
	Blocks     []*Block
}

// Block 是页内的内容块。ZIndex 决定绘制顺序；相同 ZIndex 时
// 以插入顺序为准（稳定排序保证）。
type Block struct {
	ID        uint
	Type      string
	Content   string
	Metadata  map[string]any
	PositionX float64
	PositionY float64
	Width     float64
	Height    float64
	ZIndex    int
	Styles    map[string]any
}

// New 创建一个空的演示文稿树并填充默认主题。
func New(title string) *Document {
	return &Document{
		Title:    title,
		Theme:    DefaultTheme,
		Settings: map[string]any{},
	}
}

// NewBlock 创建一个带默认几何的内容块。
func NewBlock(blockType, content string) *Block {
	return &Block{
		Type:    blockType,
		Content: content,
		Width:   DefaultBlockWidth,
		Height:  DefaultBlockHeight,
	}
}

// SlideTitle 返回页标题，空标题回退为 "Untitled"（渲染端共用）。
func (s *Slide) SlideTitle() string {
	if s.Title == "" {
		return "Untitled"
	}
	return s.Title
}

// Persisted 判断节点是否已经落库（瞬态节点没有 ID）。
func (s *Slide) Persisted() bool { return s.ID != 0 }

// Persisted 同 Slide.Persisted。
func (b *Block) Persisted() bool { return b.ID != 0 }
