package pipeline

import (
	json "github.com/goccy/go-json"

	"artbiz_proposal/approval"
	"artbiz_proposal/retrieval"
	"artbiz_proposal/store"
)

func usedDocs(ev []retrieval.Evidence) []store.UsedDoc {
	out := make([]store.UsedDoc, 0, len(ev))
	for _, e := range ev {
		meta := e.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		out = append(out, store.UsedDoc{Meta: meta, Preview: e.Preview(previewRunes)})
	}
	return out
}

func texts(ev []retrieval.Evidence) []string {
	out := make([]string, 0, len(ev))
	for _, e := range ev {
		out = append(out, e.Text)
	}
	return out
}

// previews 按排名顺序给出 [1]、[2] 的脚注正文。
func previews(docs []store.UsedDoc) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Preview)
	}
	return out
}

func decodePayload(a approval.Action, v any) error {
	return json.Unmarshal(a.Payload, v)
}
