// Package infer defines the documentation inference boundary and the
// adapters that implement it.
//
// An Adapter receives a language-neutral Descriptor of one item and returns
// a DocBlock. Adapters may be non-deterministic, but calling one twice on an
// unchanged descriptor must yield equivalent documentation.
package infer

import (
	"context"
	"errors"

	"github.com/arjunmahishi/rsdoc/config"
	"github.com/arjunmahishi/rsdoc/types"
)

// ErrRefused is returned when an adapter declines to document an item.
var ErrRefused = errors.New("inference refused")

// Adapter produces documentation for one item.
type Adapter interface {
	Infer(ctx context.Context, d types.Descriptor) (types.DocBlock, error)
}

// Func adapts a plain function to the Adapter interface.
type Func func(ctx context.Context, d types.Descriptor) (types.DocBlock, error)

func (f Func) Infer(ctx context.Context, d types.Descriptor) (types.DocBlock, error) {
	return f(ctx, d)
}

// Response is the wire shape of an inference answer.
type Response struct {
	Summary  string          `json:"summary"`
	Sections []types.Section `json:"sections"`
	Refused  bool            `json:"refused,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Block converts a response into a DocBlock, one summary line per text line.
func (r Response) Block() types.DocBlock {
	var b types.DocBlock
	if r.Summary != "" {
		b.Summary = splitLines(r.Summary)
	}
	for _, s := range r.Sections {
		var lines []string
		for _, l := range s.Lines {
			lines = append(lines, splitLines(l)...)
		}
		b.Sections = append(b.Sections, types.Section{Heading: s.Heading, Lines: lines})
	}
	return b
}

// New builds the adapter selected by the inference options: the HTTP
// adapter when an endpoint is set, the heuristic adapter otherwise, wrapped
// in a disk cache when a cache directory is set.
func New(opts config.Inference) (Adapter, error) {
	var a Adapter = Heuristic{}
	if opts.Endpoint != "" {
		a = NewHTTP(opts.Endpoint, nil)
	}
	if opts.CacheDir != "" {
		c, err := NewCache(opts.CacheDir, a)
		if err != nil {
			return nil, err
		}
		a = c
	}
	return a, nil
}
