package rsdoc

import (
	"sort"
	"strings"

	"github.com/arjunmahishi/rsdoc/types"
)

// Edit is one splice of doc lines into the original source.
type Edit struct {
	ItemID string
	Offset int
	Text   string
}

// Reassemble replays the original tokens and splices in every planned doc
// block, one comment line per doc line, indented like its anchor. Nothing of
// the original is removed. The returned edits are in source order.
func Reassemble(tree *Tree, plan *Plan) ([]byte, []Edit, error) {
	if plan.consumed {
		return nil, nil, ErrPlanConsumed
	}
	plan.consumed = true

	edits := planEdits(plan, tree.LineEnding)
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].Offset < edits[j].Offset
	})

	for i := 1; i < len(edits); i++ {
		if edits[i].Offset == edits[i-1].Offset && edits[i].ItemID != edits[i-1].ItemID {
			return nil, nil, &ReassemblyError{
				ConflictingAnchors: []string{edits[i-1].ItemID, edits[i].ItemID},
				Offset:             edits[i].Offset,
			}
		}
	}
	for _, e := range edits {
		if e.Offset == len(tree.Source) {
			continue
		}
		if _, ok := tree.TokenAt(e.Offset); !ok || e.Offset < 0 {
			return nil, nil, &ReassemblyError{ConflictingAnchors: []string{e.ItemID}, Offset: e.Offset}
		}
	}

	var sb strings.Builder
	size := len(tree.Source)
	for _, e := range edits {
		size += len(e.Text)
	}
	sb.Grow(size)

	next := 0
	for _, tok := range tree.Tokens {
		for next < len(edits) && edits[next].Offset == tok.Span.Start {
			sb.WriteString(edits[next].Text)
			next++
		}
		sb.WriteString(tok.Text)
	}
	for ; next < len(edits); next++ {
		sb.WriteString(edits[next].Text)
	}
	return []byte(sb.String()), edits, nil
}

func planEdits(plan *Plan, eol string) []Edit {
	var edits []Edit
	for _, a := range plan.Actions {
		switch a.Kind {
		case ActionInsert:
			edits = append(edits, Edit{
				ItemID: a.ItemID,
				Offset: a.At,
				Text:   renderDoc(a.Block.Lines(), a.Indent, eol),
			})
		case ActionMerge:
			if len(a.Block.Summary) > 0 {
				lines := append(append([]string{}, a.Block.Summary...), "")
				edits = append(edits, Edit{ItemID: a.ItemID, Offset: a.At, Text: renderDoc(lines, a.Indent, eol)})
			}
			if len(a.Block.Sections) > 0 {
				var lines []string
				for _, s := range a.Block.Sections {
					lines = append(lines, types.SectionLines(s)...)
				}
				edits = append(edits, Edit{ItemID: a.ItemID, Offset: a.AppendAt, Text: renderDoc(lines, a.Indent, eol)})
			}
		}
	}
	return edits
}

// renderDoc serializes doc lines as `///` comments.
func renderDoc(lines []string, indent, eol string) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(indent)
		if l == "" {
			sb.WriteString("///")
		} else {
			sb.WriteString("/// ")
			sb.WriteString(l)
		}
		sb.WriteString(eol)
	}
	return sb.String()
}
