// Package types defines shared data types for rsdoc.
package types

import "strings"

// Position represents a location in a source file.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Range represents a span in a source file.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Span is a half-open byte interval [Start, End) in the original source.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// ItemKind identifies what kind of Rust item a documentable item is.
type ItemKind string

const (
	KindModule    ItemKind = "module"
	KindStruct    ItemKind = "struct"
	KindUnion     ItemKind = "union"
	KindEnum      ItemKind = "enum"
	KindTrait     ItemKind = "trait"
	KindFunction  ItemKind = "function"
	KindField     ItemKind = "field"
	KindVariant   ItemKind = "variant"
	KindConst     ItemKind = "const"
	KindStatic    ItemKind = "static"
	KindTypeAlias ItemKind = "type_alias"
	KindMacro     ItemKind = "macro"
)

// IsType reports whether items of this kind own fields or variants.
func (k ItemKind) IsType() bool {
	switch k {
	case KindStruct, KindUnion, KindEnum, KindVariant:
		return true
	}
	return false
}

// Item is a semantic view over one documentable syntax node.
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Kind        ItemKind `json:"kind" yaml:"kind"`
	Name        string   `json:"name" yaml:"name"`
	Parent      string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	ParentName  string   `json:"-" yaml:"-"`
	Public      bool     `json:"is_public" yaml:"is_public"`
	DocEligible bool     `json:"doc_eligible" yaml:"doc_eligible"`
	Ineligible  string   `json:"ineligible_reason,omitempty" yaml:"ineligible_reason,omitempty"`
	Signature   string   `json:"signature" yaml:"signature"`
	FieldNames  []string `json:"field_names,omitempty" yaml:"field_names,omitempty"`
	Unsafe      bool     `json:"is_unsafe,omitempty" yaml:"is_unsafe,omitempty"`
	ExistingDoc string   `json:"existing_doc,omitempty" yaml:"existing_doc,omitempty"`
	DocAttr     bool     `json:"doc_attr,omitempty" yaml:"doc_attr,omitempty"`
	Inline      bool     `json:"inline,omitempty" yaml:"inline,omitempty"`
	Range       Range    `json:"range" yaml:"range"`

	// Anchor is the byte offset of the start of the line holding the
	// item's first token (its first attribute when it has any).
	Anchor int    `json:"anchor" yaml:"anchor"`
	Indent string `json:"-" yaml:"-"`

	// DocHead and DocTail are the line starts before the first and after the
	// last existing doc comment line, or -1 when lines cannot go there.
	DocHead int `json:"-" yaml:"-"`
	DocTail int `json:"-" yaml:"-"`
}

// Descriptor returns the language-neutral projection handed to inference.
func (it Item) Descriptor() Descriptor {
	return Descriptor{
		Kind:       it.Kind,
		Name:       it.Name,
		Parent:     it.ParentName,
		Signature:  it.Signature,
		FieldNames: append([]string{}, it.FieldNames...),
		Unsafe:     it.Unsafe,
		Public:     it.Public,
	}
}

// Descriptor is the request sent to a documentation inference adapter.
type Descriptor struct {
	Kind       ItemKind `json:"item_kind" msgpack:"item_kind"`
	Name       string   `json:"name" msgpack:"name"`
	Parent     string   `json:"parent_name,omitempty" msgpack:"parent_name"`
	Signature  string   `json:"signature_text" msgpack:"signature_text"`
	FieldNames []string `json:"field_names" msgpack:"field_names"`
	Unsafe     bool     `json:"is_unsafe" msgpack:"is_unsafe"`
	Public     bool     `json:"is_public" msgpack:"is_public"`
}

// Section is one headed part of a doc block, e.g. "Errors".
type Section struct {
	Heading string   `json:"heading" yaml:"heading" msgpack:"heading"`
	Lines   []string `json:"lines" yaml:"lines" msgpack:"lines"`
}

// DocBlock is synthesized documentation for one item.
type DocBlock struct {
	ItemID   string    `json:"item_id,omitempty" yaml:"item_id,omitempty" msgpack:"item_id"`
	Summary  []string  `json:"summary" yaml:"summary" msgpack:"summary"`
	Sections []Section `json:"sections,omitempty" yaml:"sections,omitempty" msgpack:"sections"`
}

// Empty reports whether the block carries no text at all.
func (b DocBlock) Empty() bool {
	for _, l := range b.Summary {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	for _, s := range b.Sections {
		for _, l := range s.Lines {
			if strings.TrimSpace(l) != "" {
				return false
			}
		}
	}
	return true
}

// Lines renders the block as doc lines without comment markers.
// Sections are separated by blank lines and introduced by a "# Heading" line.
func (b DocBlock) Lines() []string {
	lines := append([]string{}, b.Summary...)
	for _, s := range b.Sections {
		lines = append(lines, SectionLines(s)...)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return lines
}

// SectionLines renders one section preceded by its blank separator line.
func SectionLines(s Section) []string {
	lines := []string{"", "# " + s.Heading, ""}
	return append(lines, s.Lines...)
}

// FileJob represents a file to be processed.
type FileJob struct {
	AbsPath     string
	DisplayPath string
}
