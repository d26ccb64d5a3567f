package rsdoc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arjunmahishi/rsdoc/infer"
	"github.com/arjunmahishi/rsdoc/types"
)

// InferenceResult is the outcome of one adapter call.
type InferenceResult struct {
	Block types.DocBlock
	Err   error
}

// inferAll calls the adapter for every item, at most limit at a time, each
// bounded by its own timeout. A failing or slow item never cancels its
// siblings; its result simply carries an *InferenceFailure.
func inferAll(
	ctx context.Context, adapter infer.Adapter, items []types.Item, limit int, timeout time.Duration,
) map[string]InferenceResult {
	results := make([]InferenceResult, len(items))

	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i, it := range items {
		g.Go(func() error {
			results[i] = inferOne(ctx, adapter, it, timeout)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]InferenceResult, len(items))
	for i, it := range items {
		out[it.ID] = results[i]
	}
	return out
}

func inferOne(ctx context.Context, adapter infer.Adapter, it types.Item, timeout time.Duration) InferenceResult {
	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The adapter runs on its own goroutine so that an adapter ignoring its
	// context still cannot hold the file past the timeout.
	done := make(chan InferenceResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- InferenceResult{Err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		b, err := adapter.Infer(ictx, it.Descriptor())
		done <- InferenceResult{Block: b, Err: err}
	}()

	var res InferenceResult
	select {
	case res = <-done:
	case <-ictx.Done():
		res = InferenceResult{Err: ictx.Err()}
	}

	if res.Err != nil {
		return InferenceResult{Err: &InferenceFailure{ItemID: it.ID, Reason: failureReason(res.Err), Err: res.Err}}
	}
	res.Block = sanitize(res.Block)
	res.Block.ItemID = it.ID
	if res.Block.Empty() {
		return InferenceResult{Err: &InferenceFailure{ItemID: it.ID, Reason: "empty"}}
	}
	return res
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, infer.ErrRefused):
		return "refused"
	}
	return "error"
}

// sanitize splits embedded newlines and strips trailing whitespace so that
// every entry renders as exactly one comment line.
func sanitize(b types.DocBlock) types.DocBlock {
	out := types.DocBlock{ItemID: b.ItemID, Summary: cleanLines(b.Summary)}
	for len(out.Summary) > 0 && out.Summary[len(out.Summary)-1] == "" {
		out.Summary = out.Summary[:len(out.Summary)-1]
	}
	for _, s := range b.Sections {
		heading := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s.Heading), "#"))
		lines := cleanLines(s.Lines)
		if heading == "" || len(lines) == 0 {
			continue
		}
		out.Sections = append(out.Sections, types.Section{Heading: heading, Lines: lines})
	}
	return out
}

func cleanLines(in []string) []string {
	var out []string
	for _, l := range in {
		l = strings.ReplaceAll(l, "\r\n", "\n")
		for _, part := range strings.Split(l, "\n") {
			out = append(out, strings.TrimRight(part, " \t\r"))
		}
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	return out
}
