package rsdoc

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/arjunmahishi/rsdoc/types"
)

// ActionKind is what the placement engine decided for one item.
type ActionKind uint8

const (
	ActionSkip ActionKind = iota
	ActionInsert
	ActionMerge
)

func (k ActionKind) String() string {
	switch k {
	case ActionInsert:
		return "insert"
	case ActionMerge:
		return "merge"
	}
	return "skip"
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Skip reasons.
const (
	ReasonPrivate         = "private"
	ReasonHasDoc          = "has_doc"
	ReasonInferenceFailed = "inference_failed"
	ReasonInlineItem      = "inline_item"
	ReasonUpToDate        = "up_to_date"
)

// Action is the plan for a single item.
//
// Insert places Block at At. Merge places Block.Summary at At (before the
// existing doc) and Block.Sections at AppendAt (after it). Merges never
// remove existing text.
type Action struct {
	ItemID   string         `json:"item" yaml:"item"`
	Kind     ActionKind     `json:"action" yaml:"action"`
	Reason   string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Block    types.DocBlock `json:"doc,omitempty" yaml:"doc,omitempty"`
	Existing string         `json:"existing,omitempty" yaml:"existing,omitempty"`
	At       int            `json:"at" yaml:"at"`
	AppendAt int            `json:"append_at,omitempty" yaml:"append_at,omitempty"`
	Indent   string         `json:"-" yaml:"-"`
}

// Plan is the insertion plan of one file. It is consumed by Reassemble
// exactly once.
type Plan struct {
	File     string   `json:"file" yaml:"file"`
	Actions  []Action `json:"actions" yaml:"actions"`
	consumed bool
}

// Edits returns the number of actions that change the file.
func (p *Plan) Edits() int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind != ActionSkip {
			n++
		}
	}
	return n
}

// Lookup returns the action planned for an item.
func (p *Plan) Lookup(id string) (Action, bool) {
	for _, a := range p.Actions {
		if a.ItemID == id {
			return a, true
		}
	}
	return Action{}, false
}

// PlacementOptions configures the placement engine.
type PlacementOptions struct {
	DocumentPrivate   bool
	MinExistingDocLen int
	// Placeholders are extra words that mark an existing doc as a stub.
	Placeholders []string
}

var defaultPlaceholders = []string{
	"todo", "fixme", "xxx", "tbd", "placeholder", "wip", "stub", "doc", "docs", "undocumented",
}

// Placer decides, per item, whether and how generated docs are placed.
type Placer struct {
	opts         PlacementOptions
	placeholders map[string]struct{}
	fold         cases.Caser
	byID         map[string]types.Item
}

// NewPlacer creates a placement engine for the items of one file.
func NewPlacer(opts PlacementOptions, items []types.Item) *Placer {
	p := &Placer{
		opts:         opts,
		placeholders: make(map[string]struct{}),
		fold:         cases.Fold(),
		byID:         make(map[string]types.Item, len(items)),
	}
	for _, w := range append(append([]string{}, defaultPlaceholders...), opts.Placeholders...) {
		p.placeholders[p.normalize(w)] = struct{}{}
	}
	for _, it := range items {
		p.byID[it.ID] = it
	}
	return p
}

// Triage reports whether an item takes part in planning and, if it does,
// whether it needs inferred documentation. When it does not, reason says why.
func (p *Placer) Triage(it types.Item) (planned, needsDoc bool, reason string) {
	if !it.DocEligible {
		return false, false, it.Ineligible
	}
	if !p.opts.DocumentPrivate && !p.public(it) {
		return true, false, ReasonPrivate
	}
	if it.DocAttr || (it.ExistingDoc != "" && !p.StubLike(it.ExistingDoc)) {
		return true, false, ReasonHasDoc
	}
	if it.Inline {
		return true, false, ReasonInlineItem
	}
	return true, true, ""
}

// NeedsInference filters items down to those that need documentation inferred.
func (p *Placer) NeedsInference(items []types.Item) []types.Item {
	var out []types.Item
	for _, it := range items {
		if _, need, _ := p.Triage(it); need {
			out = append(out, it)
		}
	}
	return out
}

// public applies the enclosing-type rule: a member of a private struct,
// enum or union is private whatever its own marker says.
func (p *Placer) public(it types.Item) bool {
	for {
		if !it.Public {
			return false
		}
		parent, ok := p.byID[it.Parent]
		if !ok || !parent.Kind.IsType() {
			return true
		}
		it = parent
	}
}

// Plan builds the insertion plan from inference results keyed by item id.
// Items without a usable result are skipped, never fatal.
func (p *Placer) Plan(file string, items []types.Item, results map[string]InferenceResult) *Plan {
	plan := &Plan{File: file}
	for _, it := range items {
		planned, need, reason := p.Triage(it)
		if !planned {
			continue
		}
		if !need {
			plan.Actions = append(plan.Actions, skip(it.ID, reason))
			continue
		}
		res, ok := results[it.ID]
		if !ok || res.Err != nil || res.Block.Empty() {
			plan.Actions = append(plan.Actions, skip(it.ID, ReasonInferenceFailed))
			continue
		}
		block := res.Block
		block.ItemID = it.ID
		if it.ExistingDoc == "" {
			plan.Actions = append(plan.Actions, Action{
				ItemID: it.ID,
				Kind:   ActionInsert,
				Block:  block,
				At:     it.Anchor,
				Indent: it.Indent,
			})
			continue
		}
		plan.Actions = append(plan.Actions, p.merge(it, block))
	}
	return plan
}

func skip(id, reason string) Action {
	return Action{ItemID: id, Kind: ActionSkip, Reason: reason, At: -1, AppendAt: -1}
}

// merge keeps every existing line and adds only what is missing: the new
// summary when it differs from the existing first line, and sections whose
// heading the existing doc lacks.
func (p *Placer) merge(it types.Item, block types.DocBlock) Action {
	lines := docText(it.ExistingDoc)
	add := types.DocBlock{ItemID: it.ID}

	if len(block.Summary) > 0 && it.DocHead >= 0 {
		first := ""
		for _, l := range lines {
			if strings.TrimSpace(l) != "" {
				first = l
				break
			}
		}
		if p.normalize(first) != p.normalize(block.Summary[0]) {
			add.Summary = block.Summary
		}
	}

	if it.DocTail >= 0 {
		headings := make(map[string]struct{})
		fenced := false
		for _, l := range lines {
			t := strings.TrimSpace(l)
			if strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~") {
				fenced = !fenced
				continue
			}
			if !fenced && strings.HasPrefix(t, "#") {
				headings[p.normalize(strings.TrimLeft(t, "# "))] = struct{}{}
			}
		}
		for _, s := range block.Sections {
			if _, ok := headings[p.normalize(s.Heading)]; !ok {
				add.Sections = append(add.Sections, s)
			}
		}
	}

	if add.Empty() {
		return skip(it.ID, ReasonUpToDate)
	}
	return Action{
		ItemID:   it.ID,
		Kind:     ActionMerge,
		Block:    add,
		Existing: it.ExistingDoc,
		At:       it.DocHead,
		AppendAt: it.DocTail,
		Indent:   it.Indent,
	}
}

// StubLike reports whether existing doc text is too short or made only of
// placeholder words to count as real documentation.
func (p *Placer) StubLike(existing string) bool {
	text := strings.Join(strings.Fields(strings.Join(docText(existing), " ")), " ")
	if utf8.RuneCountInString(text) < p.opts.MinExistingDocLen {
		return true
	}
	words := strings.FieldsFunc(p.normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := p.placeholders[w]; !ok {
			return false
		}
	}
	return true
}

// normalize folds a line for duplicate checks: NFKC, case folding, collapsed
// whitespace and no trailing period.
func (p *Placer) normalize(s string) string {
	s = p.fold.String(norm.NFKC.String(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ". ")
}

// docText strips comment markers from doc comments, one entry per line.
func docText(doc string) []string {
	var out []string
	for _, line := range strings.Split(doc, "\n") {
		t := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(t, "///"):
			t = strings.TrimPrefix(t, "///")
		case strings.HasPrefix(t, "//!"):
			t = strings.TrimPrefix(t, "//!")
		case strings.HasPrefix(t, "/**"):
			t = strings.TrimPrefix(t, "/**")
		case strings.HasPrefix(t, "/*!"):
			t = strings.TrimPrefix(t, "/*!")
		case strings.HasPrefix(t, "#[doc"):
			if i := strings.IndexByte(t, '"'); i >= 0 {
				t = strings.TrimSuffix(strings.TrimSuffix(t[i+1:], "]"), "\"")
			}
		case strings.HasPrefix(t, "*") && !strings.HasPrefix(t, "*/"):
			t = strings.TrimPrefix(t, "*")
		}
		t = strings.TrimSuffix(t, "*/")
		out = append(out, strings.TrimSpace(t))
	}
	return out
}
