package docsystem

// RichTextValidator checks rich text payloads before they are persisted.
// Implementations return an error wrapping domain.ErrInvalidFormat.
type RichTextValidator interface {
	Validate(content string) error
}
