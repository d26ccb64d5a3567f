package rsdoc

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/arjunmahishi/rsdoc/types"
)

// Validate re-parses reassembled output and checks that it is the original
// plus doc lines: the same items with the same signatures, every planned
// item now documented, and the original bytes recovered when the edits are
// removed again.
func Validate(
	ctx context.Context, language Language, original []byte, before []types.Item, output []byte, edits []Edit,
) error {
	var mismatch []string

	if stripped := stripEdits(output, edits); stripped != string(original) {
		mismatch = append(mismatch, "output differs from the original outside inserted doc lines")
	}

	tree, err := Parse(ctx, language, output)
	if err != nil {
		mismatch = append(mismatch, "output does not parse: "+err.Error())
		return &ValidationError{Mismatch: mismatch}
	}
	after := Extract(tree)

	mismatch = append(mismatch, diffItems(before, after)...)

	byID := make(map[string]types.Item, len(after))
	for _, it := range after {
		byID[it.ID] = it
	}
	for _, e := range edits {
		it, ok := byID[e.ItemID]
		if !ok {
			continue
		}
		if !strings.Contains(it.ExistingDoc, firstDocLine(e.Text)) {
			mismatch = append(mismatch, fmt.Sprintf("%s: inserted doc is not attached to the item", e.ItemID))
		}
	}

	if len(mismatch) > 0 {
		return &ValidationError{Mismatch: mismatch}
	}
	return nil
}

func itemKey(it types.Item) string {
	return string(it.Kind) + " " + it.ID + " " + it.Signature
}

func diffItems(before, after []types.Item) []string {
	count := make(map[string]int)
	for _, it := range before {
		count[itemKey(it)]++
	}
	for _, it := range after {
		count[itemKey(it)]--
	}

	var out []string
	for key, n := range count {
		switch {
		case n > 0:
			out = append(out, "missing item: "+key)
		case n < 0:
			out = append(out, "unexpected item: "+key)
		}
	}
	sort.Strings(out)
	return out
}

// stripEdits removes the inserted texts again. Edits are in source order
// and offsets refer to the original text.
func stripEdits(output []byte, edits []Edit) string {
	var sb strings.Builder
	pos := 0
	shift := 0
	for _, e := range edits {
		at := e.Offset + shift
		if at < pos || at+len(e.Text) > len(output) || string(output[at:at+len(e.Text)]) != e.Text {
			return ""
		}
		sb.Write(output[pos:at])
		pos = at + len(e.Text)
		shift += len(e.Text)
	}
	sb.Write(output[pos:])
	return sb.String()
}

func firstDocLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(strings.TrimSuffix(line, "\r"))
}
