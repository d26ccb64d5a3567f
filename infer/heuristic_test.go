package infer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arjunmahishi/rsdoc/types"
)

func TestHeuristicSummaries(t *testing.T) {
	tests := []struct {
		name string
		d    types.Descriptor
		want string
	}{
		{"main", types.Descriptor{Kind: types.KindFunction, Name: "main", Signature: "fn main()"}, "Program entry point."},
		{"constructor", types.Descriptor{Kind: types.KindFunction, Name: "new", Parent: "Parser", Signature: "pub fn new() -> Self"}, "Creates a new `Parser`."},
		{"predicate", types.Descriptor{Kind: types.KindFunction, Name: "is_empty", Signature: "pub fn is_empty(&self) -> bool"}, "Returns `true` if this value is empty."},
		{"getter", types.Descriptor{Kind: types.KindFunction, Name: "get_name", Signature: "pub fn get_name(&self) -> &str"}, "Returns the name."},
		{"setter", types.Descriptor{Kind: types.KindFunction, Name: "set_timeout", Signature: "pub fn set_timeout(&mut self, d: Duration)"}, "Sets the timeout."},
		{"conversion", types.Descriptor{Kind: types.KindFunction, Name: "to_string", Signature: "fn to_string(&self) -> String"}, "Converts this value into string."},
		{"verb_with_params", types.Descriptor{Kind: types.KindFunction, Name: "add", Signature: "pub fn add(a: i32, b: i32) -> i32"}, "Adds `a` and `b`."},
		{"verb_three_params", types.Descriptor{Kind: types.KindFunction, Name: "merge", Signature: "fn merge(mut a: Vec<u8>, b: &[u8], f: impl Fn(u8) -> u8)"}, "Merges `a`, `b`, and `f`."},
		{"verb_with_object", types.Descriptor{Kind: types.KindFunction, Name: "flush_buffer", Signature: "fn flush_buffer(&mut self)"}, "Flushes the buffer."},
		{"verb_y", types.Descriptor{Kind: types.KindFunction, Name: "apply", Signature: "fn apply(&self)"}, "Applies the value."},
		{"unknown_returning", types.Descriptor{Kind: types.KindFunction, Name: "checksum", Signature: "fn checksum(buf: &[u8]) -> u32"}, "Returns the checksum."},
		{"unknown_unit", types.Descriptor{Kind: types.KindFunction, Name: "tick", Signature: "fn tick()"}, "Performs the tick operation."},
		{"struct_acronym", types.Descriptor{Kind: types.KindStruct, Name: "HTTPServer"}, "Represents a HTTP server."},
		{"struct_article", types.Descriptor{Kind: types.KindStruct, Name: "OpenFile"}, "Represents an open file."},
		{"union", types.Descriptor{Kind: types.KindUnion, Name: "Bits"}, "Represents a bits stored as an untagged union."},
		{"enum", types.Descriptor{Kind: types.KindEnum, Name: "LogLevel"}, "Enumerates the log level variants."},
		{"variant", types.Descriptor{Kind: types.KindVariant, Name: "Debug", Parent: "LogLevel"}, "The `Debug` variant of `LogLevel`."},
		{"field", types.Descriptor{Kind: types.KindField, Name: "max_retries", Parent: "ClientConfig"}, "The max retries of the client config."},
		{"trait", types.Descriptor{Kind: types.KindTrait, Name: "Serialize"}, "Defines serialize behavior."},
		{"module", types.Descriptor{Kind: types.KindModule, Name: "io_util"}, "Items related to io util."},
		{"const", types.Descriptor{Kind: types.KindConst, Name: "MAX_SIZE"}, "The max size constant."},
		{"static", types.Descriptor{Kind: types.KindStatic, Name: "COUNTER"}, "The counter static value."},
		{"alias", types.Descriptor{Kind: types.KindTypeAlias, Name: "Result", Signature: "pub type Result<T> = std::result::Result<T, Error>"}, "Alias for `std::result::Result<T, Error>`."},
		{"assoc_type", types.Descriptor{Kind: types.KindTypeAlias, Name: "Item", Signature: "type Item"}, "The item associated type."},
		{"macro", types.Descriptor{Kind: types.KindMacro, Name: "vec_of"}, "Expands the `vec_of!` macro."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Heuristic{}.Infer(context.Background(), tc.d)
			require.NoError(t, err)
			require.Equal(t, []string{tc.want}, b.Summary)
		})
	}
}

func TestHeuristicSections(t *testing.T) {
	b, err := Heuristic{}.Infer(context.Background(), types.Descriptor{
		Kind:      types.KindFunction,
		Name:      "read_frame",
		Signature: "pub unsafe fn read_frame(ptr: *const u8) -> io::Result<Frame>",
		Unsafe:    true,
	})
	require.NoError(t, err)
	require.Equal(t, []types.Section{
		{Heading: "Errors", Lines: []string{"Returns an error if the operation fails."}},
		{Heading: "Safety", Lines: []string{"Callers must uphold the invariants this function relies on."}},
	}, b.Sections)

	b, err = Heuristic{}.Infer(context.Background(), types.Descriptor{
		Kind:   types.KindTrait,
		Name:   "Zeroable",
		Unsafe: true,
	})
	require.NoError(t, err)
	require.Equal(t, "Callers must uphold the invariants this trait relies on.", b.Sections[0].Lines[0])
}

func TestHeuristicDeterministic(t *testing.T) {
	d := types.Descriptor{Kind: types.KindFunction, Name: "parse_header", Signature: "fn parse_header(s: &str) -> Result<H, E>"}
	a, err := Heuristic{}.Infer(context.Background(), d)
	require.NoError(t, err)
	b, err := Heuristic{}.Infer(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestHeuristicRefusesUnknownKind(t *testing.T) {
	_, err := Heuristic{}.Infer(context.Background(), types.Descriptor{Kind: "impl", Name: "X"})
	require.ErrorIs(t, err, ErrRefused)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Heuristic{}.Infer(ctx, types.Descriptor{Kind: types.KindStruct, Name: "X"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWords(t *testing.T) {
	tests := map[string][]string{
		"parse_header": {"parse", "header"},
		"HTTPServer":   {"HTTP", "server"},
		"OpenFile":     {"open", "file"},
		"MAX_SIZE":     {"max", "size"},
		"r#type":       {"type"},
		"utf8Decoder":  {"utf8", "decoder"},
		"x":            {"x"},
		"COUNTER":      {"counter"},
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, words(in))
		})
	}
}
