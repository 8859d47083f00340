package assembler

import (
	"errors"
	"reflect"
	"testing"

	"edupresent/internal/database"
	"edupresent/internal/document"
)

func persistedSlide(id uint, title string) *document.Slide {
	return &document.Slide{ID: id, Title: title}
}

// snapshotOf 构建只含 id 归属关系的 Snapshot，blocks 以
// slideID -> blockIDs 给出。
func snapshotOf(slideIDs []uint, blocks map[uint][]uint) *Snapshot {
	snap := &Snapshot{
		SlideIDs: make(map[uint]struct{}, len(slideIDs)),
		BlockIDs: make(map[uint]map[uint]struct{}, len(slideIDs)),
	}
	for _, id := range slideIDs {
		snap.SlideIDs[id] = struct{}{}
		snap.BlockIDs[id] = map[uint]struct{}{}
	}
	for slideID, ids := range blocks {
		for _, id := range ids {
			snap.BlockIDs[slideID][id] = struct{}{}
		}
	}
	return snap
}

func TestFlattenRenumbersOrderIndexDense(t *testing.T) {
	doc := document.New("t")
	doc.ID = 1
	// 存量 OrderIndex 带空洞（比如 0、5、9），落库时必须重排。
	a := persistedSlide(11, "a")
	a.OrderIndex = 0
	b := persistedSlide(12, "b")
	b.OrderIndex = 5
	c := persistedSlide(13, "c")
	c.OrderIndex = 9
	doc.Slides = []*document.Slide{a, b, c}

	rs, err := Flatten(doc, snapshotOf([]uint{11, 12, 13}, nil))
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if len(rs.SlideUpdates) != 3 {
		t.Fatalf("len(SlideUpdates) = %d, want 3", len(rs.SlideUpdates))
	}
	for i, row := range rs.SlideUpdates {
		if row.OrderIndex != i {
			t.Fatalf("slide %d: order_index = %d, want %d", row.ID, row.OrderIndex, i)
		}
	}
}

func TestFlattenPreservesZIndexVerbatim(t *testing.T) {
	doc := document.New("t")
	doc.ID = 1
	s := persistedSlide(11, "s")
	blk := document.NewBlock(document.BlockText, "x")
	blk.ID = 21
	blk.ZIndex = 42
	s.AppendBlock(blk)
	doc.AppendSlide(s)

	rs, err := Flatten(doc, snapshotOf([]uint{11}, map[uint][]uint{11: {21}}))
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if len(rs.BlockUpdates) != 1 {
		t.Fatalf("len(BlockUpdates) = %d, want 1", len(rs.BlockUpdates))
	}
	if rs.BlockUpdates[0].ZIndex != 42 {
		t.Fatalf("z_index = %d, want 42", rs.BlockUpdates[0].ZIndex)
	}
}

func TestFlattenComputesDeletesFromSnapshot(t *testing.T) {
	keptSlide := database.Slide{PresentationID: 1, OrderIndex: 0}
	keptSlide.ID = 11
	goneSlide := database.Slide{PresentationID: 1, OrderIndex: 1}
	goneSlide.ID = 12

	keptBlock := database.ContentBlock{SlideID: 11}
	keptBlock.ID = 21
	goneBlock := database.ContentBlock{SlideID: 11}
	goneBlock.ID = 22
	orphanByCascade := database.ContentBlock{SlideID: 12}
	orphanByCascade.ID = 23

	prior := NewSnapshot(
		[]database.Slide{keptSlide, goneSlide},
		[]database.ContentBlock{keptBlock, goneBlock, orphanByCascade},
	)

	doc := document.New("t")
	doc.ID = 1
	s := persistedSlide(11, "kept")
	blk := document.NewBlock(document.BlockText, "kept")
	blk.ID = 21
	s.AppendBlock(blk)
	doc.AppendSlide(s)

	rs, err := Flatten(doc, prior)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if len(rs.SlideDeletes) != 1 || rs.SlideDeletes[0] != 12 {
		t.Fatalf("SlideDeletes = %v, want [12]", rs.SlideDeletes)
	}
	// 整页删除时它的块不单独进删除集。
	if len(rs.BlockDeletes) != 1 || rs.BlockDeletes[0] != 22 {
		t.Fatalf("BlockDeletes = %v, want [22]", rs.BlockDeletes)
	}
}

func TestFlattenNestsBlocksUnderNewSlides(t *testing.T) {
	doc := document.New("t")
	doc.ID = 1
	s := &document.Slide{Title: "new"}
	s.AppendBlock(document.NewBlock(document.BlockText, "inside"))
	doc.AppendSlide(s)

	rs, err := Flatten(doc, nil)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if len(rs.SlideInserts) != 1 {
		t.Fatalf("len(SlideInserts) = %d, want 1", len(rs.SlideInserts))
	}
	if len(rs.SlideInserts[0].Blocks) != 1 {
		t.Fatalf("nested blocks = %d, want 1", len(rs.SlideInserts[0].Blocks))
	}
	if len(rs.BlockInserts) != 0 {
		t.Fatalf("BlockInserts = %d, want 0 (blocks of new slides ride along)", len(rs.BlockInserts))
	}
}

func TestFlattenNilPriorHasNoDeletes(t *testing.T) {
	doc := document.New("t")
	doc.AppendSlide(&document.Slide{Title: "only"})

	rs, err := Flatten(doc, nil)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if len(rs.SlideDeletes) != 0 || len(rs.BlockDeletes) != 0 {
		t.Fatalf("deletes = %v/%v, want none", rs.SlideDeletes, rs.BlockDeletes)
	}
}

func TestFlattenRejectsSlideIDNotInSnapshot(t *testing.T) {
	doc := document.New("t")
	doc.ID = 2
	// id 77 属于别的演示文稿（或根本不存在），快照里没有它。
	doc.AppendSlide(persistedSlide(77, "hijacked"))

	_, err := Flatten(doc, snapshotOf([]uint{11}, nil))
	if !errors.Is(err, ErrAssembly) {
		t.Fatalf("err = %v, want ErrAssembly", err)
	}

	// prior 为 nil（全新文档）时任何带 id 的页同样非法。
	if _, err := Flatten(doc, nil); !errors.Is(err, ErrAssembly) {
		t.Fatalf("nil prior: err = %v, want ErrAssembly", err)
	}
}

func TestFlattenRejectsBlockIDNotUnderItsSlide(t *testing.T) {
	doc := document.New("t")
	doc.ID = 1
	s := persistedSlide(11, "s")
	blk := document.NewBlock(document.BlockText, "x")
	blk.ID = 99 // 快照里 11 号页名下没有这个块
	s.AppendBlock(blk)
	doc.AppendSlide(s)

	_, err := Flatten(doc, snapshotOf([]uint{11, 12}, map[uint][]uint{12: {99}}))
	if !errors.Is(err, ErrAssembly) {
		t.Fatalf("err = %v, want ErrAssembly", err)
	}
}

// Flatten 的幂等律：第一遍的输出行再组装、再拆平，得到逐字段相同的行集。
func TestFlattenIdempotentAfterReassemble(t *testing.T) {
	pres := database.Presentation{Title: "t", Theme: "default"}
	pres.ID = 1
	s1 := database.Slide{PresentationID: 1, OrderIndex: 3, Title: "a", Layout: "default"}
	s1.ID = 11
	s2 := database.Slide{PresentationID: 1, OrderIndex: 7, Title: "b", Layout: "default"}
	s2.ID = 12
	b1 := database.ContentBlock{SlideID: 11, Type: document.BlockText, Content: "x", ZIndex: 5, Width: 100, Height: 100}
	b1.ID = 21

	slides := []database.Slide{s1, s2}
	blocks := []database.ContentBlock{b1}

	doc, err := Assemble(pres, slides, blocks)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	first, err := Flatten(doc, NewSnapshot(slides, blocks))
	if err != nil {
		t.Fatalf("first Flatten: %v", err)
	}

	// 用第一遍的更新行重建存储行，再走一轮 assemble/flatten。
	again := make([]database.Slide, len(first.SlideUpdates))
	copy(again, first.SlideUpdates)
	for i := range again {
		again[i].PresentationID = pres.ID
	}
	doc2, err := Assemble(pres, again, first.BlockUpdates)
	if err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	second, err := Flatten(doc2, NewSnapshot(again, first.BlockUpdates))
	if err != nil {
		t.Fatalf("second Flatten: %v", err)
	}

	if !reflect.DeepEqual(first.SlideUpdates, second.SlideUpdates) {
		t.Fatalf("slide rows differ:\nfirst  = %+v\nsecond = %+v", first.SlideUpdates, second.SlideUpdates)
	}
	if !reflect.DeepEqual(first.BlockUpdates, second.BlockUpdates) {
		t.Fatalf("block rows differ:\nfirst  = %+v\nsecond = %+v", first.BlockUpdates, second.BlockUpdates)
	}
}
