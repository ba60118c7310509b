package markdown

import "strings"

// Part is one H2 section: heading text plus the raw lines below it.
type Part struct {
	Title string
	Lines []string
}

// Body joins the section lines.
func (p Part) Body() string {
	return strings.Join(p.Lines, "\n")
}

// Doc is a document split at H2 headings.
type Doc struct {
	// Header is the first H1 line ("# ..."), empty when the source has none.
	Header string
	// Preamble holds non-title lines before the first H2.
	Preamble []string
	Sections []Part
}

// Split parses md into a Doc. Lines are kept verbatim.
func Split(md string) Doc {
	var d Doc
	var cur *Part
	for _, b := range Tokenize(md) {
		if b.Kind == Title && d.Header == "" && cur == nil {
			d.Header = strings.TrimSpace(b.Line)
			continue
		}
		if b.Kind == Heading {
			d.Sections = append(d.Sections, Part{Title: b.Text})
			cur = &d.Sections[len(d.Sections)-1]
			continue
		}
		if cur == nil {
			d.Preamble = append(d.Preamble, b.Line)
			continue
		}
		cur.Lines = append(cur.Lines, b.Line)
	}
	return d
}

// Index returns the position of the section with the exact title, or -1.
func (d Doc) Index(title string) int {
	for i, s := range d.Sections {
		if s.Title == title {
			return i
		}
	}
	return -1
}

// Join renders the Doc back to markdown. Every section is followed by a
// blank line and the result ends with exactly one newline.
func (d Doc) Join() string {
	var lines []string
	if d.Header != "" {
		lines = append(lines, d.Header, "")
	}
	if pre := strings.TrimSpace(strings.Join(d.Preamble, "\n")); pre != "" {
		lines = append(lines, pre, "")
	}
	for _, s := range d.Sections {
		lines = append(lines, "## "+s.Title)
		lines = append(lines, s.Lines...)
		if strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}
