package ai

import (
	"context"
	"fmt"
	"log/slog"
)

// generateSystemPrompt 要求模型以固定 JSON 结构返回演示文稿草稿。
const generateSystemPrompt = `You are an expert educational content creator. Generate structured presentation content in JSON format.
Return a JSON object with:
- title: presentation title
- description: brief description
- slides: array of slide objects with title, content, and layout suggestions

Each slide should have:
- title: slide title
- content: main content (can be bullet points, paragraphs, or structured text)
- layout: suggested layout (title-content, two-column, image-text, etc.)
- speaking_notes: optional presenter notes`

// Service 封装文本生成协作方与默认模型参数。
type Service struct {
	gen    Generator
	cfg    ModelConfig
	logger *slog.Logger
}

// NewService 构造 Service。
func NewService(gen Generator, cfg ModelConfig, logger *slog.Logger) *Service {
	return &Service{gen: gen, cfg: cfg, logger: logger}
}

// GeneratePresentation 根据主题生成完整的草稿并校验其结构。
// 协作方输出不是合法草稿时返回 ErrImport。
func (s *Service) GeneratePresentation(ctx context.Context, prompt string, numSlides int) (Draft, error) {
	if numSlides <= 0 {
		numSlides = 5
	}

	userPrompt := fmt.Sprintf("Create a %d-slide educational presentation about: %s", numSlides, prompt)

	raw, err := s.gen.Generate(ctx, generateSystemPrompt, userPrompt, s.cfg)
	if err != nil {
		return Draft{}, fmt.Errorf("generate presentation: %w", err)
	}

	draft, err := ParseDraft(raw)
	if err != nil {
		s.logger.Warn("ai draft unparseable",
			slog.Int("raw_len", len(raw)),
			slog.Any("error", err),
		)
		return Draft{}, err
	}
	return draft, nil
}

// EnhanceContent 见 Enhance。
func (s *Service) EnhanceContent(ctx context.Context, content, mode string) (string, error) {
	return Enhance(ctx, s.gen, content, mode, s.cfg)
}

// SuggestImages 返回围绕主题的配图提示词（静态模板，不走模型）。
func (s *Service) SuggestImages(prompt string) []string {
	return []string{
		fmt.Sprintf("Educational illustration for %s", prompt),
		fmt.Sprintf("Infographic about %s", prompt),
		fmt.Sprintf("Diagram explaining %s", prompt),
		fmt.Sprintf("Visual representation of %s", prompt),
	}
}
