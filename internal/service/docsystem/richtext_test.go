package docsystem

import (
	"errors"
	"strings"
	"testing"

	"blockdocs/internal/domain"
)

func TestTipTapValidator_Validate(t *testing.T) {
	v := NewTipTapValidator()

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "empty string", content: "", wantErr: false},
		{name: "whitespace", content: "  \n", wantErr: false},
		{name: "empty doc", content: `{"type":"doc"}`, wantErr: false},
		{name: "doc with empty content", content: `{"type":"doc","content":[]}`, wantErr: false},
		{
			name:    "paragraph with text",
			content: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi","marks":[{"type":"bold"}]}]}]}`,
			wantErr: false,
		},
		{
			name:    "nested list",
			content: `{"type":"doc","content":[{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"paragraph"}]}]}]}`,
			wantErr: false,
		},
		{name: "not json", content: `{"type":"doc"`, wantErr: true},
		{name: "array root", content: `[{"type":"doc"}]`, wantErr: true},
		{name: "plain string", content: `"hello"`, wantErr: true},
		{name: "wrong root type", content: `{"type":"paragraph"}`, wantErr: true},
		{name: "missing root type", content: `{"content":[]}`, wantErr: true},
		{name: "content not array", content: `{"type":"doc","content":{"type":"paragraph"}}`, wantErr: true},
		{name: "node without type", content: `{"type":"doc","content":[{"text":"x"}]}`, wantErr: true},
		{name: "node with numeric type", content: `{"type":"doc","content":[{"type":1}]}`, wantErr: true},
		{name: "node not object", content: `{"type":"doc","content":["x"]}`, wantErr: true},
		{name: "text node without text", content: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text"}]}]}`, wantErr: true},
		{name: "bad grandchild", content: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":""}]}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidFormat) {
				t.Errorf("Validate() error = %v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestTipTapValidator_DepthLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"type":"doc","content":[`)
	for i := 0; i < maxNodeDepth+2; i++ {
		b.WriteString(`{"type":"blockquote","content":[`)
	}
	b.WriteString(`{"type":"paragraph"}`)
	for i := 0; i < maxNodeDepth+2; i++ {
		b.WriteString(`]}`)
	}
	b.WriteString(`]}`)

	err := NewTipTapValidator().Validate(b.String())
	if !errors.Is(err, domain.ErrInvalidFormat) {
		t.Fatalf("Validate() error = %v, want ErrInvalidFormat", err)
	}
}
