package retrieval

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ChunkSize is the soft upper bound, in runes, of one indexed passage.
const ChunkSize = 800

// DirIndex is an in-memory keyword index over .md, .txt and .html files.
type DirIndex struct {
	chunks []Evidence
}

// LoadDir indexes every supported file under dir. A missing directory yields
// an empty index.
func LoadDir(dir string) (*DirIndex, error) {
	idx := &DirIndex{}
	now := time.Now()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		extract, ok := extractors[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		body, err := extract(data)
		if err != nil {
			return err
		}
		meta := InferMetadata(d.Name(), now)
		for _, c := range chunkParagraphs(body, ChunkSize) {
			idx.chunks = append(idx.chunks, Evidence{Text: c, Metadata: copyMeta(meta)})
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Len returns the number of indexed passages.
func (x *DirIndex) Len() int { return len(x.chunks) }

// Chunks returns a copy of every indexed passage in load order.
func (x *DirIndex) Chunks() []Evidence {
	return append([]Evidence(nil), x.chunks...)
}

// Search ranks passages by query-term hits. Passages without hits still fill
// the result after every hit, in load order.
func (x *DirIndex) Search(_ context.Context, query string, k int, filters map[string]string) ([]Evidence, error) {
	if k <= 0 {
		return []Evidence{}, nil
	}
	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		ev    Evidence
		score int
	}
	var cands []scored
	for _, c := range x.chunks {
		if !matchFilters(c.Metadata, filters) {
			continue
		}
		low := strings.ToLower(c.Text)
		score := 0
		for _, t := range terms {
			score += strings.Count(low, t)
		}
		cands = append(cands, scored{ev: c, score: score})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	if len(cands) > k {
		cands = cands[:k]
	}
	out := make([]Evidence, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.ev)
	}
	return out, nil
}

var extractors = map[string]func([]byte) (string, error){
	".md":       markdownText,
	".markdown": markdownText,
	".txt":      func(b []byte) (string, error) { return string(b), nil },
	".html":     htmlText,
	".htm":      htmlText,
}

// markdownText 用 goldmark 解析后按块收集纯文本，块之间空行分隔。
func markdownText(src []byte) (string, error) {
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))
	var blocks []string
	var sb strings.Builder
	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			blocks = append(blocks, s)
		}
		sb.Reset()
	}
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(n.Segment.Value(src))
				if n.SoftLineBreak() || n.HardLineBreak() {
					sb.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(n.Value)
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(src))
				}
				flush()
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				flush()
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	flush()
	return strings.Join(blocks, "\n\n"), nil
}

// htmlText 取块级元素文本；没有块级元素时退回 body 全文。
func htmlText(src []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(src))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, nav").Remove()
	var blocks []string
	doc.Find("h1, h2, h3, h4, p, li, blockquote, pre, td").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		return strings.TrimSpace(doc.Find("body").Text()), nil
	}
	return strings.Join(blocks, "\n\n"), nil
}

// chunkParagraphs 按空行切段，再把相邻短段合并到 size 以内；超长段落按 rune 硬切。
func chunkParagraphs(body string, size int) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var out []string
	var cur []rune
	push := func() {
		if s := strings.TrimSpace(string(cur)); s != "" {
			out = append(out, s)
		}
		cur = cur[:0]
	}
	for _, p := range strings.Split(body, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		r := []rune(p)
		if len(cur) > 0 && len(cur)+2+len(r) > size {
			push()
		}
		for len(r) > size {
			push()
			cur = append(cur, r[:size]...)
			push()
			r = r[size:]
		}
		if len(cur) > 0 {
			cur = append(cur, '\n', '\n')
		}
		cur = append(cur, r...)
	}
	push()
	return out
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
