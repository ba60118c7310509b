package markdown

import (
	"reflect"
	"testing"
)

func TestTokenizeKinds(t *testing.T) {
	src := "# 제목\n\n## 1. 요약\n본문\n| 항목 | 금액(KRW) |\n|---|---:|\n| 유료광고 | 1,000 |\n### 소제목\n"
	want := []Kind{Title, Blank, Heading, Text, TableRow, TableDivider, TableRow, Text}
	blocks := Tokenize(src)
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d", len(want), len(blocks))
	}
	for i, k := range want {
		if blocks[i].Kind != k {
			t.Fatalf("block %d (%q): expected kind %d, got %d", i, blocks[i].Line, k, blocks[i].Kind)
		}
	}
	if blocks[2].Text != "1. 요약" {
		t.Fatalf("unexpected heading text %q", blocks[2].Text)
	}
}

func TestCells(t *testing.T) {
	got := Cells("| PLATINUM | 15,000,000 | 로고 | KPI |")
	want := []string{"PLATINUM", "15,000,000", "로고", "KPI"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Cells = %v, want %v", got, want)
	}
}

func TestSplitAndJoin(t *testing.T) {
	src := "# 제안서\n\n메모\n\n## A\n내용 A\n\n## B\n내용 B\n"
	d := Split(src)
	if d.Header != "# 제안서" {
		t.Fatalf("unexpected header %q", d.Header)
	}
	if len(d.Sections) != 2 || d.Sections[0].Title != "A" || d.Sections[1].Title != "B" {
		t.Fatalf("unexpected sections: %+v", d.Sections)
	}
	if d.Index("B") != 1 || d.Index("C") != -1 {
		t.Fatalf("unexpected Index results")
	}
	if got := d.Join(); got != src {
		t.Fatalf("round trip mismatch:\n%q\n%q", got, src)
	}
}

func TestSplitKeepsLaterTitleInSection(t *testing.T) {
	d := Split("## A\n# not a header\n")
	if d.Header != "" {
		t.Fatalf("expected no header, got %q", d.Header)
	}
	if len(d.Sections[0].Lines) != 1 || d.Sections[0].Lines[0] != "# not a header" {
		t.Fatalf("unexpected lines %v", d.Sections[0].Lines)
	}
}

func TestHeadings(t *testing.T) {
	got := Headings("# T\n## A\ntext\n  ## B  \n### C\n")
	want := []string{"A", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Headings = %v, want %v", got, want)
	}
}
