package generator

import (
	"errors"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
)

var titleRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// CleanMarkdown 去掉模型常见的外层代码块包裹，并用 goldmark 确认可解析。
func CleanMarkdown(raw string) (string, error) {
	md := strings.TrimSpace(raw)
	if strings.HasPrefix(md, "```") && strings.HasSuffix(md, "```") && len(md) >= 6 {
		md = strings.TrimSuffix(md, "```")
		md = strings.TrimPrefix(md, "```")
		// 去掉语言标注（```markdown / ```md）
		if nl := strings.Index(md, "\n"); nl >= 0 && !strings.ContainsAny(md[:nl], " #|") {
			md = md[nl+1:]
		}
		md = strings.TrimSpace(md)
	}
	if md == "" {
		return "", errors.New("model returned empty markdown")
	}
	doc := goldmark.DefaultParser().Parse(text.NewReader([]byte(md)))
	if doc == nil || !doc.HasChildren() {
		return "", errors.New("model returned unparsable markdown")
	}
	return md, nil
}

// PostProcess 校验模型稿件并补全 Draft 基础字段。
func PostProcess(raw string) (Draft, error) {
	md, err := CleanMarkdown(raw)
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		Title:    extractTitle(md),
		Digest:   Digest(md),
		Markdown: md,
	}, nil
}

func extractTitle(md string) string {
	if m := titleRe.FindStringSubmatch(md); len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

const digestRunes = 120

// Digest 取首个非标题、非表格段落作摘要；没有时取全文前 120 字。
func Digest(md string) string {
	if d := firstParagraph(md); d != "" {
		return d
	}
	return defaultDigest(md, digestRunes)
}

func firstParagraph(md string) string {
	for _, line := range strings.Split(md, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "|") {
			continue
		}
		return t
	}
	return ""
}

func defaultDigest(md string, limit int) string {
	joined := strings.Join(strings.Fields(md), " ")
	if r := []rune(joined); len(r) > limit {
		return string(r[:limit])
	}
	return joined
}
