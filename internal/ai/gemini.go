package ai

import (
	"context"
	"errors"
	"fmt"

	genai "google.golang.org/genai"
)

// Gemini 是基于 google genai SDK 的 Generator 实现。
type Gemini struct {
	client *genai.Client
}

// NewGemini 创建 Gemini 客户端。
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing AI api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return &Gemini{client: c}, nil
}

// Generate 调一次文本生成。cfg.Model 为空时由调用方在上层填默认值。
func (g *Gemini) Generate(ctx context.Context, systemPrompt, userPrompt string, cfg ModelConfig) (string, error) {
	genCfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(cfg.MaxTokens)
	}
	if cfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(float32(cfg.Temperature))
	}

	res, err := g.client.Models.GenerateContent(ctx, cfg.Model, []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}, genCfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return res.Text(), nil
}
