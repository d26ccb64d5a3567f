package rsdoc

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// Rust implements the Language interface for Rust source code.
type Rust struct{}

func init() {
	Register(&Rust{})
}

func (r *Rust) Name() string {
	return "rust"
}

func (r *Rust) Extensions() []string {
	return []string{".rs"}
}

func (r *Rust) TreeSitterLang() *sitter.Language {
	return rust.GetLanguage()
}

var rustNodeKinds = map[string]NodeKind{
	"source_file":             NodeRoot,
	"mod_item":                NodeModule,
	"struct_item":             NodeStruct,
	"union_item":              NodeUnion,
	"enum_item":               NodeEnum,
	"trait_item":              NodeTrait,
	"function_item":           NodeFunction,
	"function_signature_item": NodeFunction,
	"field_declaration":       NodeField,
	"enum_variant":            NodeVariant,
	"impl_item":               NodeImpl,
	"foreign_mod_item":        NodeForeign,
	"const_item":              NodeConst,
	"static_item":             NodeStatic,
	"type_item":               NodeTypeAlias,
	"associated_type":         NodeTypeAlias,
	"macro_definition":        NodeMacro,
	"attribute_item":          NodeAttribute,
	"visibility_modifier":     NodeVisibility,
	"function_modifiers":      NodeModifiers,
}

func (r *Rust) NodeKind(grammarType string) NodeKind {
	if k, ok := rustNodeKinds[grammarType]; ok {
		return k
	}
	return NodeOther
}

func (r *Rust) Atomic(grammarType string) bool {
	switch grammarType {
	case "line_comment", "block_comment", "string_literal", "raw_string_literal", "char_literal":
		return true
	}
	return false
}

func (r *Rust) Comment(grammarType string) bool {
	return grammarType == "line_comment" || grammarType == "block_comment"
}
