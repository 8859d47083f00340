package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"edupresent/internal/database"
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

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	presentationHandler := NewPresentationHandler(db, nil, nil)
	exportHandler := NewExportHandler(db, nil, nil)

	router := gin.New()
	v1 := router.Group("/v1")
	presGroup := v1.Group("/presentations")
	presGroup.POST("", presentationHandler.CreatePresentation)
	presGroup.GET("", presentationHandler.ListPresentations)
	presGroup.GET("/:id", presentationHandler.GetPresentation)
	presGroup.PUT("/:id", presentationHandler.UpdatePresentation)
	presGroup.DELETE("/:id", presentationHandler.DeletePresentation)
	presGroup.GET("/:id/preview", exportHandler.PreviewPresentation)
	presGroup.GET("/:id/exports", exportHandler.ListExports)

	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createSamplePresentation(t *testing.T, router *gin.Engine) presentationResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/v1/presentations", gin.H{
		"title":       "Photosynthesis",
		"description": "How plants eat light.",
		"slides": []gin.H{
			{
				"title":  "Intro",
				"layout": "title-content",
				"blocks": []gin.H{
					{"type": "text", "content": "Plants convert light.", "z_index": 0},
				},
			},
			{"title": "Detail"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d body=%s", w.Code, w.Body.String())
	}
	var resp presentationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp
}

func TestCreateAndGetPresentation(t *testing.T) {
	router, _ := newTestRouter(t)

	created := createSamplePresentation(t, router)
	if created.ID == 0 {
		t.Fatal("create returned zero id")
	}
	if len(created.Slides) != 2 {
		t.Fatalf("len(slides) = %d, want 2", len(created.Slides))
	}
	for i, s := range created.Slides {
		if s.OrderIndex != i {
			t.Fatalf("slide %d: order_index = %d", i, s.OrderIndex)
		}
	}
	if len(created.Slides[0].Blocks) != 1 {
		t.Fatalf("blocks = %+v", created.Slides[0].Blocks)
	}

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/presentations/%d", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d body=%s", w.Code, w.Body.String())
	}
	var got presentationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if got.Title != "Photosynthesis" || len(got.Slides) != 2 {
		t.Fatalf("got = %+v", got)
	}
}

func TestCreatePresentationRequiresTitle(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/presentations", gin.H{"description": "no title"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpdatePresentationRemovesAbsentSlides(t *testing.T) {
	router, db := newTestRouter(t)
	created := createSamplePresentation(t, router)

	// 只保留第二页：第一页（含它的块）应被删除，存活页重新编号为 0。
	update := gin.H{
		"title": "Photosynthesis",
		"slides": []gin.H{
			{"id": created.Slides[1].ID, "title": "Detail"},
		},
	}
	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/v1/presentations/%d", created.ID), update)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d body=%s", w.Code, w.Body.String())
	}
	var got presentationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if len(got.Slides) != 1 || got.Slides[0].Title != "Detail" || got.Slides[0].OrderIndex != 0 {
		t.Fatalf("slides after update = %+v", got.Slides)
	}

	var blockRows int64
	if err := db.Model(&database.ContentBlock{}).Count(&blockRows).Error; err != nil {
		t.Fatalf("count blocks: %v", err)
	}
	if blockRows != 0 {
		t.Fatalf("block rows = %d, want 0 (removed slide cascades)", blockRows)
	}
}

func TestUpdatePresentationRejectsForeignSlideID(t *testing.T) {
	router, _ := newTestRouter(t)

	victim := createSamplePresentation(t, router)
	attacker := createSamplePresentation(t, router)

	// 更新 attacker 时带上 victim 名下的页 id：保存必须失败，
	// victim 的页不能被改写。
	update := gin.H{
		"title": "attacker",
		"slides": []gin.H{
			{"id": victim.Slides[0].ID, "title": "hijacked"},
		},
	}
	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/v1/presentations/%d", attacker.ID), update)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body=%s, want 422", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/presentations/%d", victim.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get victim: status = %d", w.Code)
	}
	var got presentationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode victim: %v", err)
	}
	if got.Slides[0].Title != "Intro" {
		t.Fatalf("victim slide title = %q, want untouched \"Intro\"", got.Slides[0].Title)
	}
}

func TestCreatePresentationRejectsPersistedIDs(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/presentations", gin.H{
		"title": "t",
		"slides": []gin.H{
			{"id": 123, "title": "smuggled"},
		},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body=%s, want 422", w.Code, w.Body.String())
	}
}

func TestListExportsInvalidIDReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/presentations/abc/exports", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpdateMissingPresentationReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPut, "/v1/presentations/9999", gin.H{"title": "x"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDeletePresentation(t *testing.T) {
	router, _ := newTestRouter(t)
	created := createSamplePresentation(t, router)

	w := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/v1/presentations/%d", created.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/presentations/%d", created.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d, want 404", w.Code)
	}
}

func TestInvalidPresentationIDReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/v1/presentations/abc", "/v1/presentations/0"} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", path, w.Code)
		}
	}
}

func TestPreviewPresentationReturnsHTML(t *testing.T) {
	router, _ := newTestRouter(t)
	created := createSamplePresentation(t, router)

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/presentations/%d/preview", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview: status = %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Slide 1: Intro") || !strings.Contains(body, "Plants convert light.") {
		t.Fatalf("preview body missing expected content:\n%s", body)
	}
}
