package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"edupresent/internal/ai"
)

type scriptedGenerator struct {
	reply string
	err   error
	calls int
}

func (g *scriptedGenerator) Generate(_ context.Context, _, _ string, _ ai.ModelConfig) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func newAITestRouter(t *testing.T, gen ai.Generator) (*gin.Engine, *AIHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ai.NewService(gen, ai.ModelConfig{Model: "test-model", MaxTokens: 2000, Temperature: 0.7}, logger)
	handler := NewAIHandler(svc, db, nil, logger)

	router := gin.New()
	aiGroup := router.Group("/v1/ai")
	aiGroup.POST("/generate-presentation", handler.GeneratePresentation)
	aiGroup.POST("/enhance-content", handler.EnhanceContent)
	aiGroup.POST("/suggest-images", handler.SuggestImages)
	return router, handler
}

func TestGeneratePresentationPersistsDraft(t *testing.T) {
	gen := &scriptedGenerator{
		reply: `{"title":"Photosynthesis","description":"d","slides":[{"title":"Intro","content":"Plants convert light.","layout":"title-content"}]}`,
	}
	router, handler := newAITestRouter(t, gen)

	w := doJSON(t, router, http.MethodPost, "/v1/ai/generate-presentation", gin.H{
		"prompt":     "photosynthesis",
		"num_slides": 1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		ID         uint   `json:"id"`
		Title      string `json:"title"`
		SlideCount int    `json:"slide_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == 0 || resp.Title != "Photosynthesis" || resp.SlideCount != 1 {
		t.Fatalf("resp = %+v", resp)
	}

	doc, err := handler.store.Load(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("load persisted presentation: %v", err)
	}
	if len(doc.Slides) != 1 || doc.Slides[0].Blocks[0].Content != "Plants convert light." {
		t.Fatalf("persisted doc = %+v", doc)
	}
}

func TestGeneratePresentationUnparseableDraftReturns422(t *testing.T) {
	gen := &scriptedGenerator{reply: "I refuse to emit JSON"}
	router, _ := newAITestRouter(t, gen)

	w := doJSON(t, router, http.MethodPost, "/v1/ai/generate-presentation", gin.H{"prompt": "x"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestEnhanceContentUnsupportedModeReturns400(t *testing.T) {
	gen := &scriptedGenerator{reply: "should not run"}
	router, _ := newAITestRouter(t, gen)

	w := doJSON(t, router, http.MethodPost, "/v1/ai/enhance-content", gin.H{
		"content": "cells divide",
		"mode":    "translate",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times, want 0", gen.calls)
	}
}

func TestEnhanceContentSuccess(t *testing.T) {
	gen := &scriptedGenerator{reply: "much better text"}
	router, _ := newAITestRouter(t, gen)

	w := doJSON(t, router, http.MethodPost, "/v1/ai/enhance-content", gin.H{
		"content": "cells divide",
		"mode":    "improve",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Original string `json:"original"`
		Enhanced string `json:"enhanced"`
		Mode     string `json:"mode"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Enhanced != "much better text" || resp.Original != "cells divide" || resp.Mode != "improve" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSuggestImages(t *testing.T) {
	router, _ := newAITestRouter(t, &scriptedGenerator{})

	w := doJSON(t, router, http.MethodPost, "/v1/ai/suggest-images", gin.H{"prompt": "volcanoes"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Suggestions) != 4 {
		t.Fatalf("suggestions = %v", resp.Suggestions)
	}
}
