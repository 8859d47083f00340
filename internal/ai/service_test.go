package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestService(gen Generator) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(gen, ModelConfig{Model: "test-model", MaxTokens: 2000, Temperature: 0.7}, logger)
}

func TestGeneratePresentationBuildsUserPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: `{"title":"T","slides":[]}`}
	svc := newTestService(gen)

	if _, err := svc.GeneratePresentation(context.Background(), "volcanoes", 3); err != nil {
		t.Fatalf("GeneratePresentation: %v", err)
	}

	if gen.lastUser != "Create a 3-slide educational presentation about: volcanoes" {
		t.Fatalf("user prompt = %q", gen.lastUser)
	}
	if !strings.Contains(gen.lastSystem, "expert educational content creator") {
		t.Fatalf("system prompt = %q", gen.lastSystem)
	}
	if gen.lastModelID != "test-model" {
		t.Fatalf("model = %q", gen.lastModelID)
	}
}

func TestGeneratePresentationDefaultsToFiveSlides(t *testing.T) {
	gen := &fakeGenerator{reply: `{"title":"T","slides":[]}`}
	svc := newTestService(gen)

	if _, err := svc.GeneratePresentation(context.Background(), "cells", 0); err != nil {
		t.Fatalf("GeneratePresentation: %v", err)
	}
	if !strings.HasPrefix(gen.lastUser, "Create a 5-slide") {
		t.Fatalf("user prompt = %q", gen.lastUser)
	}
}

func TestGeneratePresentationRejectsUnparseableDraft(t *testing.T) {
	gen := &fakeGenerator{reply: "sorry, I can't do JSON today"}
	svc := newTestService(gen)

	_, err := svc.GeneratePresentation(context.Background(), "cells", 5)
	if !errors.Is(err, ErrImport) {
		t.Fatalf("err = %v, want ErrImport", err)
	}
}

func TestSuggestImagesStaticTemplates(t *testing.T) {
	svc := newTestService(&fakeGenerator{})

	got := svc.SuggestImages("the water cycle")
	want := []string{
		"Educational illustration for the water cycle",
		"Infographic about the water cycle",
		"Diagram explaining the water cycle",
		"Visual representation of the water cycle",
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("suggestion %d = %q, want %q", i, got[i], want[i])
		}
	}
}
