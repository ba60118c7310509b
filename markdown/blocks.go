// Package markdown is a small line-oriented tokenizer for proposal documents.
// It only knows what the compliance passes need: an H1 title, H2 section
// headings, pipe-table rows and everything else as text.
package markdown

import (
	"regexp"
	"strings"
)

type Kind int

const (
	Text Kind = iota
	Blank
	Title
	Heading
	TableRow
	TableDivider
)

// Block is one source line with its classification.
type Block struct {
	Kind Kind
	// Line is the raw source line.
	Line string
	// Text is the heading text for Title/Heading blocks.
	Text string
}

var (
	headingRe = regexp.MustCompile(`^##\s+(.*)$`)
	dividerRe = regexp.MustCompile(`^\|?[\s:|-]*-[\s:|-]*$`)
)

// Tokenize classifies every line of md.
func Tokenize(md string) []Block {
	lines := SplitLines(md)
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, classify(line))
	}
	return blocks
}

func classify(line string) Block {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return Block{Kind: Blank, Line: line}
	case strings.HasPrefix(line, "# "):
		return Block{Kind: Title, Line: line, Text: strings.TrimSpace(line[2:])}
	}
	if m := headingRe.FindStringSubmatch(trimmed); m != nil {
		return Block{Kind: Heading, Line: line, Text: strings.TrimSpace(m[1])}
	}
	if strings.HasPrefix(trimmed, "|") {
		if dividerRe.MatchString(trimmed) {
			return Block{Kind: TableDivider, Line: line}
		}
		return Block{Kind: TableRow, Line: line}
	}
	return Block{Kind: Text, Line: line}
}

// SplitLines splits on "\n" after normalising CRLF. A trailing newline does
// not produce an extra empty line.
func SplitLines(md string) []string {
	if md == "" {
		return nil
	}
	md = strings.ReplaceAll(md, "\r\n", "\n")
	md = strings.TrimSuffix(md, "\n")
	return strings.Split(md, "\n")
}

// Cells splits a pipe-table row into trimmed cells without the outer pipes.
func Cells(row string) []string {
	s := strings.TrimSpace(row)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Headings returns H2 heading texts in document order.
func Headings(md string) []string {
	var out []string
	for _, b := range Tokenize(md) {
		if b.Kind == Heading {
			out = append(out, b.Text)
		}
	}
	return out
}
