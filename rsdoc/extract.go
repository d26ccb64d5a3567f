package rsdoc

import (
	"strconv"
	"strings"

	"github.com/arjunmahishi/rsdoc/types"
)

// Reasons an item is not doc-eligible.
const (
	IneligibleConditional = "conditional"
	IneligibleTest        = "test"
	IneligibleHidden      = "doc_hidden"
	IneligibleGenerated   = "generated"
)

const byteOrderMark = "\ufeff"

// scope carries what an item inherits from the items enclosing it.
type scope struct {
	path       []string
	parentID   string
	parentName string

	// pubModule is set when an enclosing module carries a visibility marker.
	pubModule bool
	// inherit is non-nil for members whose visibility comes from their
	// parent (enum variants, trait members, trait impl members).
	inherit *bool

	ineligible string
}

func (s scope) child(segment string) scope {
	s.path = append(append([]string{}, s.path...), segment)
	return s
}

type extractor struct {
	tree  *Tree
	items []types.Item
	seen  map[string]int
}

// Extract walks the tree and returns every documentable item in pre-order:
// a module precedes its struct, which precedes the struct's fields.
func Extract(tree *Tree) []types.Item {
	e := &extractor{tree: tree, seen: make(map[string]int)}
	sc := scope{}
	if e.generated() {
		sc.ineligible = IneligibleGenerated
	}
	e.walkList(tree.Root, sc)
	return e.items
}

// generated reports whether the file's leading comments mark it as generated code.
func (e *extractor) generated() bool {
	for _, tok := range e.tree.Tokens {
		if !tok.Kind.IsTrivia() {
			return false
		}
		if tok.Kind != TokenWhitespace &&
			(strings.Contains(tok.Text, "@generated") ||
				strings.Contains(tok.Text, "Code generated") ||
				strings.Contains(tok.Text, "DO NOT EDIT")) {
			return true
		}
	}
	return false
}

// walkList visits the declarations of a container (file, module body,
// trait or impl body, field or variant list), pairing each declaration
// with the attributes written directly before it.
func (e *extractor) walkList(list *SyntaxNode, sc scope) {
	var attrs []*SyntaxNode
	for _, c := range list.Children {
		switch c.Kind {
		case NodeAttribute:
			attrs = append(attrs, c)
			continue
		case NodeModule, NodeStruct, NodeUnion, NodeEnum, NodeTrait, NodeFunction,
			NodeField, NodeVariant, NodeConst, NodeStatic, NodeTypeAlias, NodeMacro:
			e.item(c, attrs, sc)
		case NodeImpl:
			e.impl(c, attrs, sc)
		case NodeForeign:
			e.foreign(c, attrs, sc)
		}
		attrs = nil
	}
}

func (e *extractor) impl(n *SyntaxNode, attrs []*SyntaxNode, sc scope) {
	body := n.ChildByField("body")
	if body == nil {
		return
	}
	self := n.ChildByField("type")
	if self == nil {
		return
	}
	segment := typeName(e.tree.NodeText(self))
	inner := sc
	inner.inherit = nil
	if tr := n.ChildByField("trait"); tr != nil {
		segment = "<" + segment + " as " + typeName(e.tree.NodeText(tr)) + ">"
		public := true
		inner.inherit = &public
	}
	inner = inner.child(segment)
	inner.parentID = ""
	inner.parentName = typeName(e.tree.NodeText(self))
	if reason := attrIneligible(e.tree, attrs); reason != "" && inner.ineligible == "" {
		inner.ineligible = reason
	}
	e.walkList(body, inner)
}

// foreign visits the declarations of an extern block. They belong to the
// enclosing scope and carry their own visibility markers.
func (e *extractor) foreign(n *SyntaxNode, attrs []*SyntaxNode, sc scope) {
	body := n.ChildByField("body")
	if body == nil {
		return
	}
	if reason := attrIneligible(e.tree, attrs); reason != "" && sc.ineligible == "" {
		sc.ineligible = reason
	}
	e.walkList(body, sc)
}

func (e *extractor) item(n *SyntaxNode, attrs []*SyntaxNode, sc scope) {
	kind, ok := itemKind(n.Kind)
	if !ok {
		return
	}
	name := e.itemName(n, kind)
	if name == "" {
		return
	}

	marker := n.ChildOfKind(NodeVisibility) != nil
	public := marker || sc.pubModule
	if sc.inherit != nil {
		public = *sc.inherit
	}
	if kind == types.KindMacro && hasAttr(e.tree, attrs, "macro_export") {
		public = true
	}

	it := types.Item{
		ID:         e.uniqueID(sc.path, name),
		Kind:       kind,
		Name:       name,
		Parent:     sc.parentID,
		ParentName: sc.parentName,
		Public:     public,
		Signature:  e.signature(n, kind),
		Unsafe:     e.unsafe(n, kind),
		FieldNames: e.memberNames(n, kind),
		Ineligible: sc.ineligible,
		DocHead:    -1,
		DocTail:    -1,
	}
	if it.Ineligible == "" {
		it.Ineligible = attrIneligible(e.tree, attrs)
	}
	it.DocEligible = it.Ineligible == ""

	first := n.First
	if len(attrs) > 0 {
		first = attrs[0].First
	}
	e.anchor(&it, first)
	e.existingDoc(&it, first, n.First, attrs)
	if kind == types.KindModule {
		e.innerDoc(&it, n)
	}
	it.Range = types.Range{
		Start: e.tree.Position(e.tree.Tokens[first].Span.Start),
		End:   e.tree.Position(n.Span.End),
	}

	e.items = append(e.items, it)
	e.children(n, kind, it, sc)
}

// children descends into the members of a module, type or trait.
func (e *extractor) children(n *SyntaxNode, kind types.ItemKind, it types.Item, sc scope) {
	body := n.ChildByField("body")
	if body == nil {
		return
	}
	inner := sc.child(it.Name)
	inner.parentID = it.ID
	inner.parentName = it.Name
	inner.ineligible = it.Ineligible
	inner.inherit = nil

	switch kind {
	case types.KindModule:
		inner.pubModule = sc.pubModule || n.ChildOfKind(NodeVisibility) != nil
	case types.KindEnum, types.KindTrait, types.KindVariant:
		public := it.Public
		inner.inherit = &public
	case types.KindStruct, types.KindUnion:
	default:
		return
	}
	if body.Type == "ordered_field_declaration_list" {
		return
	}
	e.walkList(body, inner)
}

func itemKind(k NodeKind) (types.ItemKind, bool) {
	switch k {
	case NodeModule:
		return types.KindModule, true
	case NodeStruct:
		return types.KindStruct, true
	case NodeUnion:
		return types.KindUnion, true
	case NodeEnum:
		return types.KindEnum, true
	case NodeTrait:
		return types.KindTrait, true
	case NodeFunction:
		return types.KindFunction, true
	case NodeField:
		return types.KindField, true
	case NodeVariant:
		return types.KindVariant, true
	case NodeConst:
		return types.KindConst, true
	case NodeStatic:
		return types.KindStatic, true
	case NodeTypeAlias:
		return types.KindTypeAlias, true
	case NodeMacro:
		return types.KindMacro, true
	}
	return "", false
}

func (e *extractor) itemName(n *SyntaxNode, kind types.ItemKind) string {
	if name := n.ChildByField("name"); name != nil {
		return e.tree.NodeText(name)
	}
	if kind == types.KindMacro {
		for i := n.First; i < n.Last; i++ {
			tok := e.tree.Tokens[i]
			if tok.Kind == TokenIdent && tok.Text != "macro_rules" {
				return tok.Text
			}
		}
	}
	return ""
}

func (e *extractor) uniqueID(path []string, name string) string {
	id := strings.Join(append(append([]string{}, path...), name), "::")
	e.seen[id]++
	if n := e.seen[id]; n > 1 {
		return id + "#" + strconv.Itoa(n)
	}
	return id
}

// signature joins the significant tokens of an item's header, with a single
// space wherever the source had trivia. Bodies are left out.
func (e *extractor) signature(n *SyntaxNode, kind types.ItemKind) string {
	end := n.Last
	switch kind {
	case types.KindModule, types.KindStruct, types.KindUnion, types.KindEnum,
		types.KindTrait, types.KindFunction:
		if body := n.ChildByField("body"); body != nil {
			end = body.First
		}
	case types.KindMacro:
		return "macro_rules! " + e.itemName(n, kind)
	}

	var sb strings.Builder
	space := false
	for i := n.First; i < end; i++ {
		tok := e.tree.Tokens[i]
		if tok.Kind.IsTrivia() || tok.Kind == TokenUnknown {
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteString(tok.Text)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

func (e *extractor) unsafe(n *SyntaxNode, kind types.ItemKind) bool {
	if kind != types.KindFunction && kind != types.KindTrait {
		return false
	}
	end := n.Last
	if body := n.ChildByField("body"); body != nil {
		end = body.First
	}
	for i := n.First; i < end; i++ {
		tok := e.tree.Tokens[i]
		if tok.Kind == TokenKeyword && tok.Text == "unsafe" {
			return true
		}
	}
	return false
}

func (e *extractor) memberNames(n *SyntaxNode, kind types.ItemKind) []string {
	if !kind.IsType() {
		return nil
	}
	body := n.ChildByField("body")
	if body == nil {
		return nil
	}
	var names []string
	for _, c := range body.Children {
		if c.Kind != NodeField && c.Kind != NodeVariant {
			continue
		}
		if name := c.ChildByField("name"); name != nil {
			names = append(names, e.tree.NodeText(name))
		}
	}
	return names
}

// anchor records where doc lines for the item go: the start of the line
// holding its first token, inheriting that line's indentation.
func (e *extractor) anchor(it *types.Item, first int) {
	start := e.tree.Tokens[first].Span.Start
	lineStart := e.lineStart(start)
	prefix := string(e.tree.Source[lineStart:start])
	it.Anchor = lineStart
	if strings.TrimSpace(prefix) != "" {
		it.Inline = true
		return
	}
	it.Indent = prefix
}

// existingDoc captures the outer doc comments directly above the item
// (skipping blank lines and attributes) and any written between its
// attributes, verbatim from the source.
func (e *extractor) existingDoc(it *types.Item, first, keyword int, attrs []*SyntaxNode) {
	toks := e.tree.Tokens
	var docs []int
	for i := first - 1; i >= 0; i-- {
		if toks[i].Kind == TokenWhitespace {
			continue
		}
		if toks[i].Kind != TokenDocComment {
			break
		}
		docs = append([]int{i}, docs...)
	}
	for i := first; i < keyword; i++ {
		if toks[i].Kind == TokenDocComment {
			docs = append(docs, i)
		}
	}

	for _, a := range attrs {
		if attrName(e.tree.NodeText(a)) == "doc" && !strings.Contains(e.tree.NodeText(a), "(") {
			it.DocAttr = true
			if it.ExistingDoc == "" {
				it.ExistingDoc = e.tree.NodeText(a)
			}
		}
	}
	if len(docs) == 0 {
		return
	}

	head := toks[docs[0]].Span.Start
	tail := toks[docs[len(docs)-1]].Span.End
	it.ExistingDoc = strings.TrimRight(string(e.tree.Source[head:tail]), " \t\r\n")

	if ls := e.lineStart(head); strings.TrimSpace(string(e.tree.Source[ls:head])) == "" {
		it.DocHead = ls
	}
	it.DocTail = e.lineAfter(tail)
}

// innerDoc adds the inner doc comments opening a module body to the
// module's existing doc. Sections are never appended after them.
func (e *extractor) innerDoc(it *types.Item, n *SyntaxNode) {
	body := n.ChildByField("body")
	if body == nil {
		return
	}
	toks := e.tree.Tokens
	var docs []string
	for i := body.First + 1; i < body.Last; i++ {
		if toks[i].Kind == TokenWhitespace {
			continue
		}
		if toks[i].Kind != TokenInnerDocComment {
			break
		}
		docs = append(docs, strings.TrimRight(toks[i].Text, " \t\r\n"))
	}
	if len(docs) == 0 {
		return
	}
	inner := strings.Join(docs, "\n")
	if it.ExistingDoc != "" {
		inner = it.ExistingDoc + "\n" + inner
	}
	it.ExistingDoc = inner
	it.DocTail = -1
}

// lineStart returns the start of the line holding offset, past a byte
// order mark opening the file.
func (e *extractor) lineStart(offset int) int {
	ls := e.tree.LineStart(offset)
	if ls == 0 && offset >= len(byteOrderMark) && strings.HasPrefix(string(e.tree.Source[:len(byteOrderMark)]), byteOrderMark) {
		return len(byteOrderMark)
	}
	return ls
}

// lineAfter returns the start of the line following offset when only
// whitespace sits between them, or -1.
func (e *extractor) lineAfter(offset int) int {
	src := e.tree.Source
	if offset > 0 && src[offset-1] == '\n' {
		return offset
	}
	for i := offset; i < len(src); i++ {
		switch src[i] {
		case '\n':
			return i + 1
		case ' ', '\t', '\r':
		default:
			return -1
		}
	}
	return -1
}

// attrName returns the path of an attribute, e.g. "cfg" for #[cfg(test)].
func attrName(text string) string {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "#"))
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
	if i := strings.IndexAny(s, "(= \t\r\n"); i >= 0 {
		s = s[:i]
	}
	return s
}

func hasAttr(tree *Tree, attrs []*SyntaxNode, name string) bool {
	for _, a := range attrs {
		if attrName(tree.NodeText(a)) == name {
			return true
		}
	}
	return false
}

// attrIneligible reports why attributes take an item out of documentation:
// conditionally compiled, test-only or hidden items are left alone.
func attrIneligible(tree *Tree, attrs []*SyntaxNode) string {
	for _, a := range attrs {
		text := tree.NodeText(a)
		switch name := attrName(text); {
		case name == "cfg":
			if strings.Contains(text, "test") {
				return IneligibleTest
			}
			return IneligibleConditional
		case name == "test" || name == "bench" || strings.HasSuffix(name, "::test"):
			return IneligibleTest
		case name == "doc" && strings.Contains(text, "hidden"):
			return IneligibleHidden
		}
	}
	return ""
}

// typeName strips generic arguments and whitespace from a type path.
func typeName(text string) string {
	if i := strings.IndexByte(text, '<'); i >= 0 {
		text = text[:i]
	}
	return strings.Join(strings.Fields(text), "")
}
