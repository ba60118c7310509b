package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	appendixFallback1 = "- SOURCE 1: (문서 인용)"
	appendixFallback2 = "- SOURCE 2: (문서 인용)"
)

// Agent 负责调用模型撰写提案叙述或整篇草稿。
type Agent struct {
	llm LLMClient
}

func NewAgent(llm LLMClient) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm}, nil
}

// Sections 让模型只写叙述章节；附录缺少 SOURCE 1 时补上占位引用。
func (a *Agent) Sections(ctx context.Context, b Brief) (Narratives, error) {
	var n Narratives
	if err := CompleteStructured(ctx, a.llm, BuildSectionsPrompt(b), &n); err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			return Narratives{}, err
		}
		return Narratives{}, fmt.Errorf("%w: sections: %v", ErrProviderUnavailable, err)
	}
	if !strings.Contains(n.AppendixSources, "SOURCE 1") {
		n.AppendixSources = strings.TrimSpace(strings.TrimSpace(n.AppendixSources) + "\n" + appendixFallback1 + "\n" + appendixFallback2)
	}
	return n, nil
}

// Draft 生成整篇自由稿，结构交给规范化步骤修复。
func (a *Agent) Draft(ctx context.Context, b Brief) (Draft, error) {
	raw, err := a.llm.Complete(ctx, BuildDraftPrompt(b))
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			return Draft{}, err
		}
		return Draft{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	d, err := PostProcess(raw)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: draft: %v", ErrProviderUnavailable, err)
	}
	return d, nil
}
