package ai

import "context"

// ModelConfig 是传给文本生成协作方的模型参数。
type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Generator 是文本生成协作方的抽象。核心不重试、不做超时控制，
// 协作方失败原样向上传播。
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, cfg ModelConfig) (string, error)
}
