package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Presentation 是演示文稿的存储行。Slides 上的级联约束保证
// 删除演示文稿时其所有页与内容块一并删除，不留孤儿行。
// PdfObjectKey/PptxObjectKey 记录最近一次导出产物的对象键。
type Presentation struct {
	gorm.Model
	Title         string         `gorm:"size:255;not null"`
	Description   string         `gorm:"type:text"`
	Theme         string         `gorm:"size:50;default:default"`
	Settings      datatypes.JSON `gorm:"type:jsonb"`
	Status        string         `gorm:"size:32"`
	PdfObjectKey  string         `gorm:"size:512"`
	PptxObjectKey string         `gorm:"size:512"`
	Slides        []Slide        `gorm:"constraint:OnDelete:CASCADE"`
}

// Slide 是页的存储行。OrderIndex 决定它在演示文稿内的位置。
type Slide struct {
	gorm.Model
	PresentationID uint           `gorm:"index;not null"`
	OrderIndex     int            `gorm:"not null"`
	Title          string         `gorm:"size:255"`
	Layout         string         `gorm:"size:50"`
	Background     datatypes.JSON `gorm:"type:jsonb"`
	Animations     datatypes.JSON `gorm:"type:jsonb"`
	Blocks         []ContentBlock `gorm:"constraint:OnDelete:CASCADE"`
}

// ContentBlock 是内容块的存储行。Metadata/Styles 为无模式 JSONB，
// 语义由 Type 决定，本层不做校验。
type ContentBlock struct {
	gorm.Model
	SlideID   uint           `gorm:"index;not null"`
	Type      string         `gorm:"size:50;not null"`
	Content   string         `gorm:"type:text"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	PositionX float64
	PositionY float64
	Width     float64
	Height    float64
	ZIndex    int
	Styles    datatypes.JSON `gorm:"type:jsonb"`
}

// Media 记录上传媒体的元数据。对象本体存放在 MinIO，
// 内容块通过 ObjectKey 引用；导出核心不改写媒体内容。
type Media struct {
	gorm.Model
	Filename         string `gorm:"size:255;not null"`
	OriginalFilename string `gorm:"size:255;not null"`
	ObjectKey        string `gorm:"size:512;not null;uniqueIndex"`
	FileSize         int64  `gorm:"not null"`
	MimeType         string `gorm:"size:100;not null"`
	Width            int
	Height           int
}
