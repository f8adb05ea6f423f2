package blocktypes

import (
	"embed"
	"fmt"
	"sort"

	"blockdocs/internal/domain/models/docsystem"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry holds the known block types. It is read-only after construction.
type Registry struct {
	types map[docsystem.BlockType]*BlockTypeSpec
}

// NewRegistry creates a registry from the embedded block type file
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/block_types.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read block types: %w", err)
	}
	return NewRegistryFromYAML(data)
}

// NewRegistryFromYAML creates a registry from raw YAML
func NewRegistryFromYAML(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block types: %w", err)
	}
	if len(file.BlockTypes) == 0 {
		return nil, fmt.Errorf("no block types defined")
	}

	r := &Registry{types: make(map[docsystem.BlockType]*BlockTypeSpec, len(file.BlockTypes))}
	for name, spec := range file.BlockTypes {
		spec := spec
		spec.Type = docsystem.BlockType(name)
		r.types[spec.Type] = &spec
	}
	return r, nil
}

// Get returns the spec for a block type
func (r *Registry) Get(t docsystem.BlockType) (*BlockTypeSpec, bool) {
	spec, ok := r.types[t]
	return spec, ok
}

// IsKnown reports whether t is a registered block type
func (r *Registry) IsKnown(t docsystem.BlockType) bool {
	_, ok := r.types[t]
	return ok
}

// IsRichText reports whether blocks of type t carry TipTap content
func (r *Registry) IsRichText(t docsystem.BlockType) bool {
	spec, ok := r.types[t]
	return ok && spec.RichText
}

// Types returns all registered types, sorted
func (r *Registry) Types() []docsystem.BlockType {
	types := make([]docsystem.BlockType, 0, len(r.types))
	for t := range r.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// FileTypes returns the types whose payload references an uploaded object
func (r *Registry) FileTypes() []docsystem.BlockType {
	var types []docsystem.BlockType
	for _, t := range r.Types() {
		if r.types[t].HoldsFile() {
			types = append(types, t)
		}
	}
	return types
}

// FileKeys extracts object storage keys from blocks, skipping blocks without one
func (r *Registry) FileKeys(blocks []docsystem.Block) []string {
	keys := []string{}
	for _, b := range blocks {
		spec, ok := r.types[b.Type]
		if !ok || !spec.HoldsFile() {
			continue
		}
		key := gjson.GetBytes(b.Content, spec.FileKey)
		if key.Type == gjson.String && key.Str != "" {
			keys = append(keys, key.Str)
		}
	}
	return keys
}
