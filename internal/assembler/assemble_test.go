package assembler

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"edupresent/internal/database"
)

func presRow(id uint, title string) database.Presentation {
	p := database.Presentation{Title: title, Theme: "default"}
	p.ID = id
	return p
}

func slideRow(id, presID uint, order int, title string) database.Slide {
	s := database.Slide{PresentationID: presID, OrderIndex: order, Title: title}
	s.ID = id
	return s
}

func blockRowFixture(id, slideID uint, z int, content string) database.ContentBlock {
	b := database.ContentBlock{SlideID: slideID, Type: "text", Content: content, ZIndex: z}
	b.ID = id
	return b
}

func TestAssembleOrdersSlidesByOrderIndex(t *testing.T) {
	pres := presRow(1, "t")
	slides := []database.Slide{
		slideRow(11, 1, 2, "third"),
		slideRow(12, 1, 0, "first"),
		slideRow(13, 1, 1, "second"),
	}

	doc, err := Assemble(pres, slides, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	want := []string{"first", "second", "third"}
	for i, w := range want {
		if doc.Slides[i].Title != w {
			t.Fatalf("slide %d: title = %q, want %q", i, doc.Slides[i].Title, w)
		}
	}
}

func TestAssembleOrdersBlocksByZIndexThenID(t *testing.T) {
	pres := presRow(1, "t")
	slides := []database.Slide{slideRow(11, 1, 0, "s")}
	blocks := []database.ContentBlock{
		blockRowFixture(23, 11, 1, "z1-late"),
		blockRowFixture(21, 11, 5, "z5"),
		blockRowFixture(22, 11, 1, "z1-early"),
		blockRowFixture(24, 11, 0, "z0"),
	}

	doc, err := Assemble(pres, slides, blocks)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	got := doc.Slides[0].Blocks
	want := []string{"z0", "z1-early", "z1-late", "z5"}
	for i, w := range want {
		if got[i].Content != w {
			t.Fatalf("block %d: content = %q, want %q", i, got[i].Content, w)
		}
	}
}

func TestAssembleRejectsOrphanBlock(t *testing.T) {
	pres := presRow(1, "t")
	slides := []database.Slide{slideRow(11, 1, 0, "s")}
	blocks := []database.ContentBlock{blockRowFixture(21, 999, 0, "orphan")}

	_, err := Assemble(pres, slides, blocks)
	if !errors.Is(err, ErrAssembly) {
		t.Fatalf("err = %v, want ErrAssembly", err)
	}
}

func TestAssembleRejectsForeignSlide(t *testing.T) {
	pres := presRow(1, "t")
	slides := []database.Slide{slideRow(11, 2, 0, "belongs elsewhere")}

	_, err := Assemble(pres, slides, nil)
	if !errors.Is(err, ErrAssembly) {
		t.Fatalf("err = %v, want ErrAssembly", err)
	}
}

func TestAssembleDecodesJSONColumns(t *testing.T) {
	pres := presRow(1, "t")
	pres.Settings = datatypes.JSON([]byte(`{"aspect":"16:9"}`))
	slides := []database.Slide{slideRow(11, 1, 0, "s")}

	doc, err := Assemble(pres, slides, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if doc.Settings["aspect"] != "16:9" {
		t.Fatalf("settings = %v, want aspect 16:9", doc.Settings)
	}
	// 空 JSON 列解码为非 nil 空 map。
	if doc.Slides[0].Background == nil {
		t.Fatal("background map is nil")
	}
}

// 确认 gorm 的 NotFound 语义被原样透传，不会包成自定义错误。
func TestStoreLoadMissingReturnsRecordNotFound(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	_, err := store.Load(context.Background(), 12345)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want gorm.ErrRecordNotFound", err)
	}
}
