package docsystem

import (
	"fmt"
	"strings"

	"blockdocs/internal/domain"
	docsysSvc "blockdocs/internal/domain/services/docsystem"

	"github.com/tidwall/gjson"
)

// maxNodeDepth bounds TipTap nesting (lists in quotes in lists...)
const maxNodeDepth = 64

// tipTapValidator checks the structural shape of TipTap JSON.
// It does not know individual node schemas; the editor owns those.
type tipTapValidator struct{}

// NewTipTapValidator creates the rich text validator used for document and block content
func NewTipTapValidator() docsysSvc.RichTextValidator {
	return &tipTapValidator{}
}

// Validate accepts "" as an empty document. Anything else must be
// {"type":"doc","content":[...]} where every node is an object with a string type.
func (v *tipTapValidator) Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if !gjson.Valid(content) {
		return fmt.Errorf("%w: content is not valid JSON", domain.ErrInvalidFormat)
	}

	root := gjson.Parse(content)
	if !root.IsObject() {
		return fmt.Errorf("%w: content must be a JSON object", domain.ErrInvalidFormat)
	}
	if t := root.Get("type"); t.Type != gjson.String || t.Str != "doc" {
		return fmt.Errorf("%w: root node type must be \"doc\"", domain.ErrInvalidFormat)
	}

	return validateChildren(root, "content", 1)
}

func validateChildren(node gjson.Result, path string, depth int) error {
	children := node.Get("content")
	if !children.Exists() {
		return nil
	}
	if !children.IsArray() {
		return fmt.Errorf("%w: %s must be an array", domain.ErrInvalidFormat, path)
	}
	if depth > maxNodeDepth {
		return fmt.Errorf("%w: nodes nested deeper than %d", domain.ErrInvalidFormat, maxNodeDepth)
	}

	var err error
	i := 0
	children.ForEach(func(_, child gjson.Result) bool {
		err = validateNode(child, fmt.Sprintf("%s[%d]", path, i), depth)
		i++
		return err == nil
	})
	return err
}

func validateNode(node gjson.Result, path string, depth int) error {
	if !node.IsObject() {
		return fmt.Errorf("%w: %s must be an object", domain.ErrInvalidFormat, path)
	}

	t := node.Get("type")
	if t.Type != gjson.String || t.Str == "" {
		return fmt.Errorf("%w: %s.type must be a non-empty string", domain.ErrInvalidFormat, path)
	}
	if t.Str == "text" {
		if text := node.Get("text"); text.Type != gjson.String {
			return fmt.Errorf("%w: %s.text must be a string", domain.ErrInvalidFormat, path)
		}
	}

	return validateChildren(node, path+".content", depth+1)
}
