package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	json "github.com/goccy/go-json"
	hjson "github.com/hjson/hjson-go/v4"
)

// ErrMalformedOutput 表示模型输出无法解析为目标结构。
var ErrMalformedOutput = errors.New("malformed model output")

// DecodeStructured parses model output into target, trying strict JSON, then
// json-repair, then Hjson. Surrounding code fences and chatter are dropped.
func DecodeStructured(raw string, target any) error {
	body := extractObject(raw)
	if body == "" {
		return fmt.Errorf("%w: no JSON object found", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(body), target); err == nil {
		return nil
	}
	if repaired, err := jsonrepair.RepairJSON(body); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return nil
		}
	}
	if err := hjson.Unmarshal([]byte(body), target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// CompleteStructured asks llm for a JSON object and decodes it into target.
func CompleteStructured(ctx context.Context, llm LLMClient, prompt Prompt, target any) error {
	prompt.JSON = true
	raw, err := llm.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return DecodeStructured(raw, target)
}

// extractObject 截取第一个 '{' 到最后一个 '}' 之间的内容。
func extractObject(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 {
		return ""
	}
	if end < start {
		// 截断的输出交给 json-repair 补全
		return s[start:]
	}
	return s[start : end+1]
}
