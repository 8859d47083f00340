package assembler

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"edupresent/internal/database"
	"edupresent/internal/document"
)

// Store 是行存储与 Document 树之间唯一的翻译层。
// 所有写入走单个事务：失败的保存不会留下任何已应用的行变更。
type Store struct {
	db *gorm.DB
}

// NewStore 构造 Store。
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Load 读取演示文稿的全部行并组装成 Document。
// 演示文稿不存在时原样返回 gorm.ErrRecordNotFound。
func (s *Store) Load(ctx context.Context, id uint) (*document.Document, error) {
	var pres database.Presentation
	if err := s.db.WithContext(ctx).First(&pres, id).Error; err != nil {
		return nil, err
	}

	slides, blocks, err := s.loadRows(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	return Assemble(pres, slides, blocks)
}

// Save 把 Document 落库。doc.ID 为 0 时新建演示文稿；否则按
// Flatten 的差集执行插入/更新/删除，全部变更在一个事务内完成。
// 返回演示文稿 id。
func (s *Store) Save(ctx context.Context, doc *document.Document) (uint, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior *Snapshot

		if doc.ID == 0 {
			row := database.Presentation{
				Title:       doc.Title,
				Description: doc.Description,
				Theme:       doc.Theme,
				Settings:    mapToJSON(doc.Settings),
			}
			if err := tx.Omit("Slides").Create(&row).Error; err != nil {
				return fmt.Errorf("create presentation: %w", err)
			}
			doc.ID = row.ID
		} else {
			var pres database.Presentation
			if err := tx.First(&pres, doc.ID).Error; err != nil {
				return err
			}
			slides, blocks, err := s.loadRows(ctx, tx, doc.ID)
			if err != nil {
				return err
			}
			prior = NewSnapshot(slides, blocks)
		}

		rs, err := Flatten(doc, prior)
		if err != nil {
			return err
		}

		if err := tx.Model(&database.Presentation{}).
			Where("id = ?", doc.ID).
			Select("title", "description", "theme", "settings").
			Updates(rs.Presentation).Error; err != nil {
			return fmt.Errorf("update presentation %d: %w", doc.ID, err)
		}

		// 删除先行：整页删除时显式清理它的块行，不依赖数据库端
		// 的级联配置（sqlite 测试默认不开外键）。
		if len(rs.SlideDeletes) > 0 {
			if err := tx.Where("slide_id IN ?", rs.SlideDeletes).
				Delete(&database.ContentBlock{}).Error; err != nil {
				return fmt.Errorf("delete blocks of removed slides: %w", err)
			}
			if err := tx.Delete(&database.Slide{}, rs.SlideDeletes).Error; err != nil {
				return fmt.Errorf("delete slides: %w", err)
			}
		}
		if len(rs.BlockDeletes) > 0 {
			if err := tx.Delete(&database.ContentBlock{}, rs.BlockDeletes).Error; err != nil {
				return fmt.Errorf("delete blocks: %w", err)
			}
		}

		for _, row := range rs.SlideUpdates {
			if err := tx.Model(&database.Slide{}).
				Where("id = ?", row.ID).
				Select("order_index", "title", "layout", "background", "animations").
				Updates(row).Error; err != nil {
				return fmt.Errorf("update slide %d: %w", row.ID, err)
			}
		}
		for i := range rs.SlideInserts {
			rs.SlideInserts[i].PresentationID = doc.ID
			if err := tx.Create(&rs.SlideInserts[i]).Error; err != nil {
				return fmt.Errorf("insert slide: %w", err)
			}
		}
		for _, row := range rs.BlockUpdates {
			if err := tx.Model(&database.ContentBlock{}).
				Where("id = ?", row.ID).
				Select("type", "content", "metadata", "position_x", "position_y",
					"width", "height", "z_index", "styles").
				Updates(row).Error; err != nil {
				return fmt.Errorf("update block %d: %w", row.ID, err)
			}
		}
		for i := range rs.BlockInserts {
			if err := tx.Create(&rs.BlockInserts[i]).Error; err != nil {
				return fmt.Errorf("insert block: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return doc.ID, nil
}

// Delete 删除演示文稿及其全部页与内容块（级联，一个事务）。
func (s *Store) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pres database.Presentation
		if err := tx.First(&pres, id).Error; err != nil {
			return err
		}

		var slideIDs []uint
		if err := tx.Model(&database.Slide{}).
			Where("presentation_id = ?", id).
			Pluck("id", &slideIDs).Error; err != nil {
			return fmt.Errorf("list slides of presentation %d: %w", id, err)
		}
		if len(slideIDs) > 0 {
			if err := tx.Where("slide_id IN ?", slideIDs).
				Delete(&database.ContentBlock{}).Error; err != nil {
				return fmt.Errorf("delete blocks: %w", err)
			}
			if err := tx.Delete(&database.Slide{}, slideIDs).Error; err != nil {
				return fmt.Errorf("delete slides: %w", err)
			}
		}
		if err := tx.Delete(&database.Presentation{}, id).Error; err != nil {
			return fmt.Errorf("delete presentation %d: %w", id, err)
		}
		return nil
	})
}

func (s *Store) loadRows(ctx context.Context, tx *gorm.DB, presentationID uint) ([]database.Slide, []database.ContentBlock, error) {
	var slides []database.Slide
	if err := tx.WithContext(ctx).
		Where("presentation_id = ?", presentationID).
		Find(&slides).Error; err != nil {
		return nil, nil, fmt.Errorf("load slides of presentation %d: %w", presentationID, err)
	}

	if len(slides) == 0 {
		return slides, nil, nil
	}

	slideIDs := make([]uint, 0, len(slides))
	for _, row := range slides {
		slideIDs = append(slideIDs, row.ID)
	}

	var blocks []database.ContentBlock
	if err := tx.WithContext(ctx).
		Where("slide_id IN ?", slideIDs).
		Find(&blocks).Error; err != nil {
		return nil, nil, fmt.Errorf("load blocks of presentation %d: %w", presentationID, err)
	}

	return slides, blocks, nil
}
