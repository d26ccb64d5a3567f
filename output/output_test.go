package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arjunmahishi/rsdoc/rsdoc"
	"github.com/arjunmahishi/rsdoc/types"
)

func sampleResults() []rsdoc.FileResult {
	return []rsdoc.FileResult{
		{
			File: "src/lib.rs", Changed: true, Items: 4, Inserted: 2, Merged: 1, Skipped: 1,
			Skips: []rsdoc.SkipInfo{{Item: "helper", Reason: rsdoc.ReasonPrivate}},
		},
		{File: "src/main.rs", Items: 1, Skipped: 1},
		{File: "src/bad.rs", Err: &rsdoc.FileError{File: "src/bad.rs", Stage: rsdoc.StageParse, Detail: "1:4: expected item"}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatJSON},
		{in: "json", want: FormatJSON},
		{in: "YAML", want: FormatYAML},
		{in: "yml", want: FormatYAML},
		{in: "text", want: FormatText},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(Config{Format: FormatJSON, Compact: true, Output: &buf})
	require.NoError(t, w.Write(sampleResults()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	require.Equal(t, "src/lib.rs", got[0]["file"])
	require.Equal(t, float64(2), got[0]["inserted"])
	require.NotContains(t, got[0], "Output")
	require.Equal(t, "parse", got[2]["error"].(map[string]any)["stage"])
}

func TestWriteJSONIndent(t *testing.T) {
	var buf bytes.Buffer
	w := New(Config{Output: &buf})
	require.NoError(t, w.Write(map[string]int{"a": 1}))
	require.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	w := New(Config{Format: FormatYAML, Output: &buf})
	require.NoError(t, w.Write(sampleResults()))

	var got []rsdoc.FileResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	require.Equal(t, "helper", got[0].Skips[0].Item)
	require.Equal(t, "1:4: expected item", got[2].Err.Detail)
}

func TestWriteTextResults(t *testing.T) {
	var buf bytes.Buffer
	w := New(Config{Format: FormatText, NoColor: true, Output: &buf})
	require.NoError(t, w.Write(sampleResults()))

	require.Equal(t, `src/lib.rs: changed inserted=2 merged=1 skipped=1
  skip helper (private)
src/main.rs: unchanged inserted=0 merged=0 skipped=1
src/bad.rs: failed at parse: 1:4: expected item
3 files, 1 changed, 1 failed
`, buf.String())
}

func TestWriteTextItems(t *testing.T) {
	var buf bytes.Buffer
	w := New(Config{Format: FormatText, NoColor: true, Output: &buf})
	items := []rsdoc.ItemsResult{{
		File: "lib.rs",
		Items: []types.Item{
			{ID: "Point", Kind: types.KindStruct, Public: true, Range: types.Range{Start: types.Position{Line: 1, Column: 1}}},
			{ID: "Point::x", Kind: types.KindField, Range: types.Range{Start: types.Position{Line: 2, Column: 5}}},
		},
	}}
	require.NoError(t, w.Write(items))
	require.Equal(t, "lib.rs\n  1:1 struct Point public\n  2:5 field Point::x private\n", buf.String())
}

func TestWriteTextPlans(t *testing.T) {
	var buf bytes.Buffer
	w := New(Config{Format: FormatText, NoColor: true, Output: &buf})
	plans := []*rsdoc.Plan{{
		File: "lib.rs",
		Actions: []rsdoc.Action{
			{ItemID: "run", Kind: rsdoc.ActionInsert, Block: types.DocBlock{
				Summary:  []string{"Runs the job."},
				Sections: []types.Section{{Heading: "Errors", Lines: []string{"Returns an error if it fails."}}},
			}},
			{ItemID: "helper", Kind: rsdoc.ActionSkip, Reason: rsdoc.ReasonPrivate},
		},
	}}
	require.NoError(t, w.Write(plans))
	require.Equal(t, `lib.rs
  insert run
    /// Runs the job.
    ///
    /// # Errors
    ///
    /// Returns an error if it fails.
  skip helper (private)
`, buf.String())
}

func TestWriteTextFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(Config{Format: FormatText, Compact: true, Output: &buf})
	require.NoError(t, w.Write(map[string]string{"k": "v"}))
	require.Equal(t, "{\"k\":\"v\"}\n", buf.String())
}

func TestWriteError(t *testing.T) {
	var errBuf bytes.Buffer
	w := New(Config{ErrOutput: &errBuf})
	w.WriteError("bad %s", "input")
	require.JSONEq(t, `{"error":"bad input"}`, errBuf.String())

	errBuf.Reset()
	w.WriteError("100% literal")
	require.JSONEq(t, `{"error":"100% literal"}`, errBuf.String())
}
