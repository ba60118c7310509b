package generator

import (
	"context"
	"errors"
)

// ErrProviderUnavailable 表示补全服务调用失败或超时；不做本地重试，直接上抛。
var ErrProviderUnavailable = errors.New("completion provider unavailable")

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
	ProviderMock     = "mock"
)

// 所有 provider 共用的采样温度，提案文本需要稳定输出。
const temperature = 0.2
