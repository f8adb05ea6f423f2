package blocktypes

import (
	"blockdocs/internal/domain/models/docsystem"
)

// BlockTypeSpec describes how the engine treats one block type
type BlockTypeSpec struct {
	// Type identifier (set from the YAML map key)
	Type docsystem.BlockType `yaml:"-" json:"type"`

	DisplayName string `yaml:"display_name" json:"display_name"`

	// RichText marks payloads that are TipTap documents
	RichText bool `yaml:"rich_text" json:"rich_text"`

	// FileKey names the payload field holding an object storage key ("" = none)
	FileKey string `yaml:"file_key" json:"file_key,omitempty"`
}

// HoldsFile reports whether blocks of this type reference an uploaded object
func (s *BlockTypeSpec) HoldsFile() bool {
	return s.FileKey != ""
}

type registryFile struct {
	BlockTypes map[string]BlockTypeSpec `yaml:"block_types"`
}
