// Package publisher turns a finished proposal into a print-ready document.
//
// Output is a self-contained HTML page: cover, table of contents, one page per
// H2 section, running header/footer. Printing it yields the PDF.
package publisher

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"artbiz_proposal/store"
)

// Meta describes the document around the markdown body.
type Meta struct {
	Title    string
	Sponsor  string
	Campaign string
	// Summary 显示在封面，可为空。
	Summary string
	Date    time.Time
}

// Renderer writes a rendered document to outputPath.
type Renderer interface {
	Render(markdown, outputPath string, meta Meta) error
}

// HTMLRenderer renders markdown through goldmark (GFM tables) and lays the
// page out with goquery.
type HTMLRenderer struct {
	md      goldmark.Markdown
	verbose bool
	logger  *log.Logger
}

func NewHTMLRenderer(verbose bool, logger *log.Logger) *HTMLRenderer {
	if logger == nil {
		logger = log.Default()
	}
	return &HTMLRenderer{
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		verbose: verbose,
		logger:  logger,
	}
}

func (r *HTMLRenderer) infof(format string, args ...interface{}) {
	if !r.verbose {
		return
	}
	r.logger.Printf("[INFO] "+format, args...)
}

// Render writes the page. Failures wrap store.ErrPersistence.
func (r *HTMLRenderer) Render(markdown, outputPath string, meta Meta) error {
	if outputPath == "" {
		return fmt.Errorf("%w: output path is required", store.ErrPersistence)
	}
	page, err := r.HTML(markdown, meta)
	if err != nil {
		return fmt.Errorf("%w: render: %v", store.ErrPersistence, err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	if err := os.WriteFile(outputPath, []byte(page), 0o644); err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	r.infof("Rendered %s (%d bytes)", outputPath, len(page))
	return nil
}

// HTML returns the full page without touching the filesystem.
func (r *HTMLRenderer) HTML(markdown string, meta Meta) (string, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &body); err != nil {
		return "", err
	}
	if meta.Title == "" {
		meta.Title = extractTitle(markdown)
	}
	if meta.Date.IsZero() {
		meta.Date = time.Now()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageShell(meta, body.String())))
	if err != nil {
		return "", err
	}
	content := doc.Find("main")

	// 正文里的 H1 已经由封面承担。
	content.Find("h1").First().Remove()

	toc := doc.Find("nav.toc ol")
	content.Find("h2").Each(func(i int, s *goquery.Selection) {
		id := fmt.Sprintf("sec-%d", i+1)
		s.SetAttr("id", id)
		if i > 0 {
			s.AddClass("page-break")
		}
		toc.AppendHtml(fmt.Sprintf(`<li><a href="#%s">%s</a></li>`, id, html.EscapeString(s.Text())))
	})
	if toc.Children().Length() == 0 {
		doc.Find("nav.toc").Remove()
	}

	superscriptFootnotes(content)

	doc.Find("header.running").SetText(meta.Campaign)
	doc.Find("footer.running .sponsor").SetText(meta.Sponsor)
	doc.Find("footer.running .date").SetText(meta.Date.Format("2006-01-02"))

	out, err := doc.Html()
	if err != nil {
		return "", err
	}
	return out, nil
}

var footnoteRe = regexp.MustCompile(`\[(\d+)\]`)

// superscriptFootnotes turns [n] markers in text nodes into <sup>; code is left alone.
func superscriptFootnotes(root *goquery.Selection) {
	var texts []*goquery.Selection
	root.Find("*").Not("code, pre").Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" && footnoteRe.MatchString(c.Text()) {
			texts = append(texts, c)
		}
	})
	for _, c := range texts {
		escaped := html.EscapeString(c.Text())
		c.ReplaceWithHtml(footnoteRe.ReplaceAllString(escaped, `<sup class="fn">[$1]</sup>`))
	}
}

func extractTitle(md string) string {
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return "후원 제안서"
}

const pageStyle = `
@page { size: A4; margin: 16mm 18mm; }
body { font-family: "Noto Sans KR", "Malgun Gothic", sans-serif; font-size: 10.5pt; line-height: 1.6; color: #222; }
header.running, footer.running { position: fixed; left: 0; right: 0; font-size: 9pt; color: #666; }
header.running { top: 0; }
footer.running { bottom: 0; display: flex; justify-content: space-between; }
section.cover { page-break-after: always; padding-top: 40mm; }
nav.toc { page-break-after: always; }
h2 { color: #1f3a5f; border-bottom: 1px solid #ccd; padding-bottom: 4px; }
h2.page-break { page-break-before: always; }
table { border-collapse: collapse; width: 100%; margin: 8px 0; }
th, td { border: 1px solid #bbb; padding: 4px 6px; font-size: 9.5pt; }
th { background: #eef2f7; }
sup.fn { font-size: 0.7em; color: #1f3a5f; }
p.summary { margin-top: 12mm; color: #444; }
`

func pageShell(meta Meta, body string) string {
	e := html.EscapeString
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"ko\"><head><meta charset=\"utf-8\">")
	b.WriteString("<title>" + e(meta.Title) + "</title><style>" + pageStyle + "</style></head><body>")
	b.WriteString(`<header class="running"></header>`)
	b.WriteString(`<section class="cover"><h1>` + e(meta.Title) + `</h1>`)
	if meta.Campaign != "" {
		b.WriteString(`<p><b>캠페인</b>: ` + e(meta.Campaign) + `</p>`)
	}
	if meta.Sponsor != "" {
		b.WriteString(`<p><b>후원사</b>: ` + e(meta.Sponsor) + `</p>`)
	}
	b.WriteString(`<p><b>작성일</b>: ` + meta.Date.Format("2006-01-02") + `</p>`)
	if meta.Summary != "" {
		b.WriteString(`<p class="summary">` + e(meta.Summary) + `</p>`)
	}
	b.WriteString(`</section>`)
	b.WriteString(`<nav class="toc"><h1>목차</h1><ol></ol></nav>`)
	b.WriteString("<main>" + body + "</main>")
	b.WriteString(`<footer class="running"><span class="sponsor"></span><span class="date"></span></footer>`)
	b.WriteString("</body></html>")
	return b.String()
}

// ErrUnsupportedFormat is returned by WantsDocument for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// WantsDocument reports whether a save with this format also renders the
// document. Markdown is always kept.
func WantsDocument(format string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "both", "pdf", "html":
		return true, nil
	case "md", "markdown":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
