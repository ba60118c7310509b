package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"artbiz_proposal/proposal"
	"artbiz_proposal/template"
	"artbiz_proposal/tools"
)

type fakeLLM struct {
	out    string
	err    error
	prompt Prompt
}

func (f *fakeLLM) Complete(_ context.Context, p Prompt) (string, error) {
	f.prompt = p
	return f.out, f.err
}

func testBrief(t *testing.T) Brief {
	t.Helper()
	bs, err := tools.ComputeBudgetSplit(30_000_000, tools.DefaultRatios())
	if err != nil {
		t.Fatalf("budget: %v", err)
	}
	td := tools.ToolData{BudgetSplit: &bs}
	return Brief{
		Sponsor:  "한빛은행",
		Campaign: "봄 축제",
		ToolData: td,
		Tables:   proposal.RenderTables(td),
		Evidence: []string{"첫 번째 근거", "두 번째 근거", "세 번째 근거"},
	}
}

func TestDecodeStructured(t *testing.T) {
	cases := map[string]string{
		"strict":    `{"executive_summary": "요약"}`,
		"fenced":    "```json\n{\"executive_summary\": \"요약\"}\n```",
		"chatter":   "다음은 결과입니다:\n{\"executive_summary\": \"요약\"}\n감사합니다.",
		"trailing":  `{"executive_summary": "요약",}`,
		"truncated": `{"executive_summary": "요약"`,
	}
	for name, raw := range cases {
		var n Narratives
		if err := DecodeStructured(raw, &n); err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if n.ExecutiveSummary != "요약" {
			t.Fatalf("%s: unexpected value %q", name, n.ExecutiveSummary)
		}
	}
}

func TestDecodeStructuredRejectsNonObject(t *testing.T) {
	var n Narratives
	err := DecodeStructured("죄송합니다. 작성할 수 없습니다.", &n)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestSectionsWithMock(t *testing.T) {
	agent, err := NewAgent(MockLLM{})
	if err != nil {
		t.Fatalf("agent: %v", err)
	}
	n, err := agent.Sections(context.Background(), testBrief(t))
	if err != nil {
		t.Fatalf("sections: %v", err)
	}
	for key, body := range n.Map() {
		if !strings.Contains(body, "SOURCE") {
			t.Fatalf("section %s lacks an evidence marker: %q", key, body)
		}
	}
	if !strings.Contains(n.ExecutiveSummary, "한빛은행") || !strings.Contains(n.ExecutiveSummary, "봄 축제") {
		t.Fatalf("mock should echo sponsor and campaign: %q", n.ExecutiveSummary)
	}
	if _, ok := n.Map()[template.KeySponsorshipPackage]; ok {
		t.Fatal("table sections are not narratives")
	}
}

func TestSectionsAddsAppendixFallback(t *testing.T) {
	llm := &fakeLLM{out: `{"executive_summary": "요약 (SOURCE 1)", "appendix_sources": "- 참고 자료"}`}
	agent, _ := NewAgent(llm)
	n, err := agent.Sections(context.Background(), testBrief(t))
	if err != nil {
		t.Fatalf("sections: %v", err)
	}
	want := "- 참고 자료\n" + appendixFallback1 + "\n" + appendixFallback2
	if n.AppendixSources != want {
		t.Fatalf("appendix = %q, want %q", n.AppendixSources, want)
	}
	if !llm.prompt.JSON {
		t.Fatal("sections prompt must request JSON")
	}
}

func TestProviderErrorsAreWrapped(t *testing.T) {
	agent, _ := NewAgent(&fakeLLM{err: errors.New("connection refused")})
	if _, err := agent.Sections(context.Background(), testBrief(t)); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("sections: expected ErrProviderUnavailable, got %v", err)
	}
	if _, err := agent.Draft(context.Background(), testBrief(t)); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("draft: expected ErrProviderUnavailable, got %v", err)
	}
	agent, _ = NewAgent(&fakeLLM{out: "형식 없는 답변"})
	if _, err := agent.Sections(context.Background(), testBrief(t)); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("malformed output: expected ErrProviderUnavailable, got %v", err)
	}
}

func TestDraftWithMock(t *testing.T) {
	agent, _ := NewAgent(MockLLM{})
	d, err := agent.Draft(context.Background(), testBrief(t))
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if d.Title != "봄 축제 후원 제안서" {
		t.Fatalf("unexpected title %q", d.Title)
	}
	if !strings.HasPrefix(d.Digest, "한빛은행") {
		t.Fatalf("unexpected digest %q", d.Digest)
	}
}

func TestDigest(t *testing.T) {
	if got := Digest("# 제목\n\n| a | b |\n첫 문단입니다.\n둘째"); got != "첫 문단입니다." {
		t.Fatalf("unexpected digest %q", got)
	}
	long := "# " + strings.Repeat("가", 200)
	if got := Digest(long); len([]rune(got)) != digestRunes {
		t.Fatalf("fallback digest should be cut to %d runes, got %d", digestRunes, len([]rune(got)))
	}
}

func TestCleanMarkdown(t *testing.T) {
	got, err := CleanMarkdown("```markdown\n# 제목\n\n본문\n```")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if got != "# 제목\n\n본문" {
		t.Fatalf("unexpected cleaned markdown %q", got)
	}
	if _, err := CleanMarkdown("   "); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestSectionsPromptCarriesToolDataAndTwoSnippets(t *testing.T) {
	p := BuildSectionsPrompt(testBrief(t))
	if !strings.Contains(p.User, `"budget_split"`) || !strings.Contains(p.User, "SPONSOR=한빛은행") {
		t.Fatalf("prompt misses tool data or sponsor:\n%s", p.User)
	}
	if !strings.Contains(p.User, "두 번째 근거") || strings.Contains(p.User, "세 번째 근거") {
		t.Fatal("prompt should carry exactly the first two snippets")
	}
	d := BuildDraftPrompt(testBrief(t))
	if !strings.Contains(d.User, "SOURCE 3: 세 번째 근거") || d.JSON {
		t.Fatalf("draft prompt should number every context item:\n%s", d.User)
	}
}

func TestOpenAIParamsRequestJSONObject(t *testing.T) {
	llm, err := NewOpenAILLMFromConfig(&LLMSettings{Provider: ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "k"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p := llm.params(BuildSectionsPrompt(testBrief(t))); p.ResponseFormat.OfJSONObject == nil {
		t.Fatal("sections prompt should request a JSON object")
	}
	if p := llm.params(BuildDraftPrompt(testBrief(t))); p.ResponseFormat.OfJSONObject != nil {
		t.Fatal("draft prompt must stay free text")
	}
}
