package rsdoc

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Language defines the interface for a supported source language.
type Language interface {
	// Name returns the language identifier (e.g., "rust").
	Name() string

	// Extensions returns file extensions for this language (e.g., [".rs"]).
	Extensions() []string

	// TreeSitterLang returns the tree-sitter language grammar.
	TreeSitterLang() *sitter.Language

	// NodeKind maps a grammar node type onto a CST node kind.
	NodeKind(grammarType string) NodeKind

	// Atomic reports whether a grammar node is kept as a single token even
	// though the grammar gives it children (comments, string literals).
	Atomic(grammarType string) bool

	// Comment reports whether a grammar node type is a comment.
	Comment(grammarType string) bool
}

// registry holds all registered languages.
var registry = make(map[string]Language)

// Register adds a language to the registry.
// This is typically called from init() functions in language implementation files.
func Register(lang Language) {
	registry[lang.Name()] = lang
}

// Get returns a language by name, or nil if not found.
func Get(name string) Language {
	return registry[name]
}

// List returns all registered language names.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// lookup resolves a language name, defaulting to Rust.
func lookup(name string) (Language, error) {
	if name == "" {
		name = "rust"
	}
	if lang := Get(name); lang != nil {
		return lang, nil
	}
	names := List()
	sort.Strings(names)
	return nil, fmt.Errorf("%s language not registered (available: %s)", name, strings.Join(names, ", "))
}
