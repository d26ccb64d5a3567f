package rsdoc

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/arjunmahishi/rsdoc/types"
)

// TokenKind classifies a lexical unit.
type TokenKind uint8

const (
	TokenIdent TokenKind = iota
	TokenKeyword
	TokenPunct
	TokenLiteral
	TokenWhitespace
	TokenComment
	TokenDocComment
	TokenInnerDocComment
	TokenUnknown
)

var tokenKindNames = [...]string{
	TokenIdent:           "ident",
	TokenKeyword:         "keyword",
	TokenPunct:           "punct",
	TokenLiteral:         "literal",
	TokenWhitespace:      "whitespace",
	TokenComment:         "comment",
	TokenDocComment:      "doc_comment",
	TokenInnerDocComment: "inner_doc_comment",
	TokenUnknown:         "unknown",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("token(%d)", k)
}

// IsTrivia reports whether tokens of this kind carry no syntax.
func (k TokenKind) IsTrivia() bool {
	switch k {
	case TokenWhitespace, TokenComment, TokenDocComment, TokenInnerDocComment:
		return true
	}
	return false
}

// Token is an atomic lexical unit. Whitespace runs are split so that every
// token ends at or before a newline, which makes every line start a token
// boundary.
type Token struct {
	Kind TokenKind
	Text string
	Span types.Span
}

// NodeKind classifies CST nodes the extractor cares about.
type NodeKind uint8

const (
	NodeOther NodeKind = iota
	NodeRoot
	NodeModule
	NodeStruct
	NodeUnion
	NodeEnum
	NodeTrait
	NodeFunction
	NodeField
	NodeVariant
	NodeImpl
	NodeForeign
	NodeConst
	NodeStatic
	NodeTypeAlias
	NodeMacro
	NodeAttribute
	NodeVisibility
	NodeModifiers
)

// SyntaxNode is a node of the concrete syntax tree. Tokens are not copied
// into nodes; a node owns the token index range [First, Last) of Tree.Tokens.
type SyntaxNode struct {
	Kind     NodeKind
	Type     string
	Field    string
	Span     types.Span
	First    int
	Last     int
	Children []*SyntaxNode
}

// ChildByField returns the first child stored under the given grammar field.
func (n *SyntaxNode) ChildByField(field string) *SyntaxNode {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// ChildOfKind returns the first child of the given kind.
func (n *SyntaxNode) ChildOfKind(kind NodeKind) *SyntaxNode {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Tree is the lossless parse of one source file.
type Tree struct {
	Source     []byte
	Tokens     []Token
	Root       *SyntaxNode
	LineEnding string
	lineStarts []int
}

// Text concatenates every token in document order. For any tree produced by
// Parse it equals the source text.
func (t *Tree) Text() string {
	var sb strings.Builder
	sb.Grow(len(t.Source))
	for _, tok := range t.Tokens {
		sb.WriteString(tok.Text)
	}
	return sb.String()
}

// NodeText returns the source text covered by n.
func (t *Tree) NodeText(n *SyntaxNode) string {
	return string(t.Source[n.Span.Start:n.Span.End])
}

// LeadingTrivia returns the trivia tokens attached to token i: the run of
// whitespace and comments between the previous significant token and i.
func (t *Tree) LeadingTrivia(i int) []Token {
	j := i
	for j > 0 && t.Tokens[j-1].Kind.IsTrivia() {
		j--
	}
	return t.Tokens[j:i]
}

// TokenAt returns the index of the token starting exactly at offset.
func (t *Tree) TokenAt(offset int) (int, bool) {
	i := sort.Search(len(t.Tokens), func(i int) bool {
		return t.Tokens[i].Span.Start >= offset
	})
	if i < len(t.Tokens) && t.Tokens[i].Span.Start == offset {
		return i, true
	}
	return i, false
}

// Position converts a byte offset to a 1-based line and column.
func (t *Tree) Position(offset int) types.Position {
	line := sort.Search(len(t.lineStarts), func(i int) bool {
		return t.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	return types.Position{Line: line + 1, Column: offset - t.lineStarts[line] + 1}
}

// LineStart returns the offset of the first byte of the line holding offset.
func (t *Tree) LineStart(offset int) int {
	return t.lineStarts[t.Position(offset).Line-1]
}

// Parse parses source into a lossless tree. Sources that the grammar can
// only recover from with ERROR or MISSING nodes are rejected with a
// *ParseError, since they cannot be rewritten safely.
func Parse(ctx context.Context, language Language, source []byte) (*Tree, error) {
	p := newParser(language)
	defer p.close()

	ts, err := p.parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer ts.Close()

	t := &Tree{
		Source:     source,
		LineEnding: detectLineEnding(source),
		lineStarts: lineStarts(source),
	}

	root := ts.RootNode()
	if bad := firstError(root); bad != nil {
		return nil, t.parseError(bad)
	}

	b := &cstBuilder{src: source, lang: language}
	t.Root, err = b.build(root, "")
	if err != nil {
		return nil, err
	}
	b.gap(len(source))
	t.Tokens = b.tokens
	return t, nil
}

// parser wraps a tree-sitter parser for a specific language.
type parser struct {
	parser *sitter.Parser
	lang   Language
}

// newParser creates a new parser for the given language.
func newParser(language Language) *parser {
	p := sitter.NewParser()
	p.SetLanguage(language.TreeSitterLang())
	return &parser{
		parser: p,
		lang:   language,
	}
}

// parse parses source code and returns the syntax tree.
func (p *parser) parse(ctx context.Context, source []byte) (*sitter.Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return tree, nil
}

func (p *parser) close() {
	p.parser.Close()
}

// readSource reads a file for parsing.
func readSource(path string) ([]byte, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return source, nil
}

// cstBuilder converts a tree-sitter tree into tokens and SyntaxNodes,
// filling the gaps between grammar leaves with whitespace tokens.
type cstBuilder struct {
	src    []byte
	lang   Language
	tokens []Token
	cursor int
}

// fieldNames lists the grammar fields the extractor reads.
var fieldNames = []string{"name", "body", "type", "trait", "parameters", "return_type", "value"}

func (b *cstBuilder) build(n *sitter.Node, field string) (*SyntaxNode, error) {
	span, err := nodeSpan(n)
	if err != nil {
		return nil, err
	}

	typ := n.Type()
	sn := &SyntaxNode{
		Kind:  b.lang.NodeKind(typ),
		Type:  typ,
		Field: field,
		Span:  span,
	}

	b.gap(span.Start)
	sn.First = len(b.tokens)

	count := int(n.ChildCount())
	if count == 0 || b.lang.Atomic(typ) {
		b.emit(leafKind(b.lang, n, b.src[span.Start:span.End]), span)
		sn.Last = len(b.tokens)
		return sn, nil
	}

	fields := childFields(n, count)
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		cspan, err := nodeSpan(c)
		if err != nil {
			return nil, err
		}
		if cspan.Len() == 0 {
			continue
		}
		if b.lang.Comment(c.Type()) {
			b.gap(cspan.Start)
			b.emit(commentKind(string(b.src[cspan.Start:cspan.End])), cspan)
			continue
		}
		child, err := b.build(c, fields[i])
		if err != nil {
			return nil, err
		}
		sn.Children = append(sn.Children, child)
	}

	b.gap(span.End)
	sn.Last = len(b.tokens)
	return sn, nil
}

func (b *cstBuilder) emit(kind TokenKind, span types.Span) {
	if span.Start < b.cursor {
		span.Start = b.cursor
	}
	if span.End <= span.Start {
		return
	}
	b.tokens = append(b.tokens, Token{
		Kind: kind,
		Text: string(b.src[span.Start:span.End]),
		Span: span,
	})
	b.cursor = span.End
}

// gap emits trivia for the bytes between the cursor and upto. Whitespace
// runs end after each newline.
func (b *cstBuilder) gap(upto int) {
	for b.cursor < upto {
		start := b.cursor
		i := start
		if isSpace(b.src[i]) {
			for i < upto && isSpace(b.src[i]) && b.src[i] != '\n' {
				i++
			}
			if i < upto && b.src[i] == '\n' {
				i++
			}
			b.emit(TokenWhitespace, types.Span{Start: start, End: i})
			continue
		}
		for i < upto && !isSpace(b.src[i]) {
			i++
		}
		b.emit(TokenUnknown, types.Span{Start: start, End: i})
	}
}

func childFields(n *sitter.Node, count int) []string {
	fields := make([]string, count)
	for _, f := range fieldNames {
		fc := n.ChildByFieldName(f)
		if fc == nil {
			continue
		}
		for i := 0; i < count; i++ {
			c := n.Child(i)
			if c == nil || fields[i] != "" {
				continue
			}
			if c.StartByte() == fc.StartByte() && c.EndByte() == fc.EndByte() && c.Type() == fc.Type() {
				fields[i] = f
				break
			}
		}
	}
	return fields
}

func nodeSpan(n *sitter.Node) (types.Span, error) {
	start, err := safecast.Conv[int](n.StartByte())
	if err != nil {
		return types.Span{}, fmt.Errorf("node start: %w", err)
	}
	end, err := safecast.Conv[int](n.EndByte())
	if err != nil {
		return types.Span{}, fmt.Errorf("node end: %w", err)
	}
	return types.Span{Start: start, End: end}, nil
}

func leafKind(lang Language, n *sitter.Node, text []byte) TokenKind {
	typ := n.Type()
	switch {
	case lang.Comment(typ):
		return commentKind(string(text))
	case strings.HasSuffix(typ, "_literal"):
		return TokenLiteral
	case n.IsNamed() && (strings.HasSuffix(typ, "identifier") || typ == "primitive_type" ||
		typ == "self" || typ == "super" || typ == "crate" || typ == "metavariable"):
		return TokenIdent
	case isWord(text):
		return TokenKeyword
	}
	return TokenPunct
}

// commentKind tells doc comments from ordinary ones. Four slashes or
// three stars are ordinary comments in Rust.
func commentKind(text string) TokenKind {
	switch {
	case strings.HasPrefix(text, "///") && !strings.HasPrefix(text, "////"):
		return TokenDocComment
	case strings.HasPrefix(text, "//!"):
		return TokenInnerDocComment
	case strings.HasPrefix(text, "/**") && !strings.HasPrefix(text, "/***") && text != "/**/":
		return TokenDocComment
	case strings.HasPrefix(text, "/*!"):
		return TokenInnerDocComment
	}
	return TokenComment
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsMissing() || n.Type() == "ERROR" {
		return n
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if c.IsMissing() || c.HasError() {
			if bad := firstError(c); bad != nil {
				return bad
			}
		}
	}
	return nil
}

func (t *Tree) parseError(n *sitter.Node) *ParseError {
	span, err := nodeSpan(n)
	if err != nil {
		return &ParseError{Expected: "addressable node", Found: err.Error()}
	}
	pe := &ParseError{Offset: span.Start}
	pos := t.Position(span.Start)
	pe.Line, pe.Column = pos.Line, pos.Column

	if n.IsMissing() {
		pe.Expected = fmt.Sprintf("%q", n.Type())
		pe.Found = excerpt(t.Source[span.Start:])
		return pe
	}
	pe.Expected = "valid syntax"
	if parent := n.Parent(); parent != nil {
		pe.Expected = "valid " + parent.Type()
	}
	pe.Found = excerpt(t.Source[span.Start:span.End])
	return pe
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > 32 {
		s = string(r[:32])
	}
	if s == "" {
		return "end of input"
	}
	return s
}

func detectLineEnding(src []byte) string {
	for i, c := range src {
		if c == '\n' {
			if i > 0 && src[i-1] == '\r' {
				return "\r\n"
			}
			return "\n"
		}
	}
	return "\n"
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isWord(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
