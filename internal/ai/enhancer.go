package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedMode 表示增强模式不在支持的集合内。
// 校验发生在调用协作方之前，不会浪费一次生成请求。
var ErrUnsupportedMode = errors.New("unsupported enhancement mode")

// 各增强模式对应的指令前缀。集合是封闭的：新模式必须在这里登记。
var enhancePrompts = map[string]string{
	"improve":   "Improve and enhance this educational content while maintaining its core message:",
	"summarize": "Summarize this content into key points:",
	"expand":    "Expand this content with more details and examples:",
	"simplify":  "Simplify this content for easier understanding:",
}

// Enhance 对一段内容做指定模式的文本增强。纯文本进、纯文本出，
// 不接触文档树。协作方失败原样向上传播。
func Enhance(ctx context.Context, gen Generator, content, mode string, cfg ModelConfig) (string, error) {
	prefix, ok := enhancePrompts[mode]
	if !ok {
		return "", fmt.Errorf("mode %q: %w", mode, ErrUnsupportedMode)
	}

	out, err := gen.Generate(ctx, "", prefix+" "+content, cfg)
	if err != nil {
		return "", fmt.Errorf("enhance content (mode %s): %w", mode, err)
	}
	return out, nil
}
