package assembler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"edupresent/internal/database"
	"edupresent/internal/document"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&database.Presentation{},
		&database.Slide{},
		&database.ContentBlock{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func buildSampleDocument() *document.Document {
	doc := document.New("Photosynthesis")
	doc.Description = "How plants convert light."

	intro := &document.Slide{Title: "Intro", Layout: "default"}
	blk := document.NewBlock(document.BlockText, "Plants convert light.")
	intro.AppendBlock(blk)
	doc.AppendSlide(intro)

	detail := &document.Slide{Title: "Detail", Layout: "two-column"}
	low := document.NewBlock(document.BlockText, "low")
	low.ZIndex = 0
	high := document.NewBlock(document.BlockImage, "media/leaf.png")
	high.ZIndex = 3
	detail.AppendBlock(high)
	detail.AppendBlock(low)
	doc.AppendSlide(detail)

	return doc
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	id, err := store.Save(ctx, buildSampleDocument())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == 0 {
		t.Fatal("Save returned zero id")
	}

	got, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.Title != "Photosynthesis" {
		t.Fatalf("title = %q", got.Title)
	}
	if len(got.Slides) != 2 {
		t.Fatalf("len(slides) = %d, want 2", len(got.Slides))
	}
	if got.Slides[0].Title != "Intro" || got.Slides[1].Title != "Detail" {
		t.Fatalf("slide order wrong: %q, %q", got.Slides[0].Title, got.Slides[1].Title)
	}
	for i, s := range got.Slides {
		if s.OrderIndex != i {
			t.Fatalf("slide %d: order_index = %d", i, s.OrderIndex)
		}
	}

	// 组装时块按 z_index 排序：low (0) 在 high (3) 前面。
	detail := got.Slides[1]
	if len(detail.Blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(detail.Blocks))
	}
	if detail.Blocks[0].Content != "low" || detail.Blocks[1].Content != "media/leaf.png" {
		t.Fatalf("block order wrong: %q, %q", detail.Blocks[0].Content, detail.Blocks[1].Content)
	}
}

func TestStoreSaveRemovedSlideRenumbersAndDeletes(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	doc := document.New("t")
	for _, title := range []string{"a", "b", "c"} {
		doc.AppendSlide(&document.Slide{Title: title})
	}
	id, err := store.Save(ctx, doc)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	loaded.RemoveSlideAt(1)

	if _, err := store.Save(ctx, loaded); err != nil {
		t.Fatalf("Save after remove: %v", err)
	}

	again, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Slides) != 2 {
		t.Fatalf("len(slides) = %d, want 2", len(again.Slides))
	}
	for i, want := range []string{"a", "c"} {
		if again.Slides[i].Title != want {
			t.Fatalf("slide %d: title = %q, want %q", i, again.Slides[i].Title, want)
		}
		if again.Slides[i].OrderIndex != i {
			t.Fatalf("slide %d: order_index = %d, want %d", i, again.Slides[i].OrderIndex, i)
		}
	}

	var rows int64
	if err := db.Model(&database.Slide{}).Where("presentation_id = ?", id).Count(&rows).Error; err != nil {
		t.Fatalf("count slides: %v", err)
	}
	if rows != 2 {
		t.Fatalf("slide rows = %d, want 2 (removed slide must be deleted)", rows)
	}
}

func TestStoreSaveRemovedBlockDeletesRow(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	doc := document.New("t")
	s := &document.Slide{Title: "s"}
	s.AppendBlock(document.NewBlock(document.BlockText, "keep"))
	s.AppendBlock(document.NewBlock(document.BlockText, "drop"))
	doc.AppendSlide(s)

	id, err := store.Save(ctx, doc)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	blocks := loaded.Slides[0].Blocks
	for i, b := range blocks {
		if b.Content == "drop" {
			loaded.Slides[0].RemoveBlockAt(i)
			break
		}
	}

	if _, err := store.Save(ctx, loaded); err != nil {
		t.Fatalf("Save after remove: %v", err)
	}

	again, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Slides[0].Blocks) != 1 || again.Slides[0].Blocks[0].Content != "keep" {
		t.Fatalf("blocks after save = %+v", again.Slides[0].Blocks)
	}
}

func TestStoreDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	id, err := store.Save(ctx, buildSampleDocument())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.Load(ctx, id); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Load after delete: err = %v, want gorm.ErrRecordNotFound", err)
	}

	var blockRows int64
	if err := db.Model(&database.ContentBlock{}).Count(&blockRows).Error; err != nil {
		t.Fatalf("count blocks: %v", err)
	}
	if blockRows != 0 {
		t.Fatalf("block rows = %d, want 0", blockRows)
	}

	if err := store.Delete(ctx, id); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("second Delete: err = %v, want gorm.ErrRecordNotFound", err)
	}
}

func TestStoreSaveRejectsSlideOwnedByOtherPresentation(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	first := document.New("a-original")
	first.AppendSlide(&document.Slide{Title: "a-slide"})
	firstID, err := store.Save(ctx, first)
	if err != nil {
		t.Fatalf("Save first: %v", err)
	}
	loadedFirst, err := store.Load(ctx, firstID)
	if err != nil {
		t.Fatalf("Load first: %v", err)
	}
	foreignSlideID := loadedFirst.Slides[0].ID

	second := document.New("b")
	secondID, err := store.Save(ctx, second)
	if err != nil {
		t.Fatalf("Save second: %v", err)
	}

	// 第二份演示文稿的保存 payload 里混进了第一份名下的页 id。
	hijack, err := store.Load(ctx, secondID)
	if err != nil {
		t.Fatalf("Load second: %v", err)
	}
	hijack.AppendSlide(&document.Slide{ID: foreignSlideID, Title: "hijacked"})

	if _, err := store.Save(ctx, hijack); !errors.Is(err, ErrAssembly) {
		t.Fatalf("Save with foreign slide id: err = %v, want ErrAssembly", err)
	}

	// 第一份演示文稿必须毫发无损。
	again, err := store.Load(ctx, firstID)
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if len(again.Slides) != 1 || again.Slides[0].Title != "a-slide" {
		t.Fatalf("first presentation mutated: %+v", again.Slides)
	}
}

func TestStoreSaveRejectsStaleBlockID(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	doc := document.New("t")
	doc.AppendSlide(&document.Slide{Title: "s"})
	id, err := store.Save(ctx, doc)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	stale := document.NewBlock(document.BlockText, "ghost")
	stale.ID = 9999 // 数据库里不存在的块 id
	loaded.Slides[0].AppendBlock(stale)

	if _, err := store.Save(ctx, loaded); !errors.Is(err, ErrAssembly) {
		t.Fatalf("Save with stale block id: err = %v, want ErrAssembly", err)
	}
}

func TestStoreSaveUpdatesExistingPresentation(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	id, err := store.Save(ctx, buildSampleDocument())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	loaded.Title = "Photosynthesis (revised)"
	loaded.Slides[0].Title = "Overview"

	if _, err := store.Save(ctx, loaded); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	again, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Title != "Photosynthesis (revised)" {
		t.Fatalf("title = %q", again.Title)
	}
	if again.Slides[0].Title != "Overview" {
		t.Fatalf("slide title = %q", again.Slides[0].Title)
	}
}
