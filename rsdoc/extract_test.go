package rsdoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arjunmahishi/rsdoc/types"
)

const geoSource = `//! Crate docs.

/// Geometry helpers.
pub mod geo {
    /// A point in the plane, with two coordinates.
    #[derive(Debug, Clone)]
    pub struct Point {
        pub x: f64,
        y: f64,
    }

    impl Point {
        pub fn new(x: f64, y: f64) -> Self {
            Point { x, y }
        }

        fn norm(&self) -> f64 {
            (self.x * self.x + self.y * self.y).sqrt()
        }
    }

    pub enum Shape {
        Circle { radius: f64 },
        Square(f64),
    }

    pub trait Area {
        fn area(&self) -> f64;
    }

    impl Area for Shape {
        fn area(&self) -> f64 {
            0.0
        }
    }
}

struct Hidden {
    secret: u8,
}

#[cfg(test)]
mod tests {
    #[test]
    fn works() {}
}
`

func itemsByID(items []types.Item) map[string]types.Item {
	m := make(map[string]types.Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}

func TestExtractOrderAndVisibility(t *testing.T) {
	items := Extract(parse(t, geoSource))

	type row struct {
		id       string
		kind     types.ItemKind
		public   bool
		eligible bool
		parent   string
	}
	want := []row{
		{"geo", types.KindModule, true, true, ""},
		{"geo::Point", types.KindStruct, true, true, "geo"},
		{"geo::Point::x", types.KindField, true, true, "geo::Point"},
		{"geo::Point::y", types.KindField, true, true, "geo::Point"},
		{"geo::Point::new", types.KindFunction, true, true, ""},
		{"geo::Point::norm", types.KindFunction, true, true, ""},
		{"geo::Shape", types.KindEnum, true, true, "geo"},
		{"geo::Shape::Circle", types.KindVariant, true, true, "geo::Shape"},
		{"geo::Shape::Circle::radius", types.KindField, true, true, "geo::Shape::Circle"},
		{"geo::Shape::Square", types.KindVariant, true, true, "geo::Shape"},
		{"geo::Area", types.KindTrait, true, true, "geo"},
		{"geo::Area::area", types.KindFunction, true, true, "geo::Area"},
		{"geo::<Shape as Area>::area", types.KindFunction, true, true, ""},
		{"Hidden", types.KindStruct, false, true, ""},
		{"Hidden::secret", types.KindField, false, true, "Hidden"},
		{"tests", types.KindModule, false, false, ""},
		{"tests::works", types.KindFunction, false, false, "tests"},
	}

	got := make([]row, 0, len(items))
	for _, it := range items {
		got = append(got, row{it.ID, it.Kind, it.Public, it.DocEligible, it.Parent})
	}
	require.Equal(t, want, got)

	byID := itemsByID(items)
	require.Equal(t, IneligibleTest, byID["tests"].Ineligible)
	require.Equal(t, IneligibleTest, byID["tests::works"].Ineligible)
	require.Equal(t, "Point", byID["geo::Point::new"].ParentName)
	require.Equal(t, []string{"x", "y"}, byID["geo::Point"].FieldNames)
	require.Equal(t, []string{"Circle", "Square"}, byID["geo::Shape"].FieldNames)
}

func TestExtractSignatures(t *testing.T) {
	byID := itemsByID(Extract(parse(t, geoSource)))

	tests := map[string]string{
		"geo":                        "pub mod geo",
		"geo::Point":                 "pub struct Point",
		"geo::Point::x":              "pub x: f64",
		"geo::Point::new":            "pub fn new(x: f64, y: f64) -> Self",
		"geo::Point::norm":           "fn norm(&self) -> f64",
		"geo::Shape::Square":         "Square(f64)",
		"geo::Area::area":            "fn area(&self) -> f64",
		"geo::<Shape as Area>::area": "fn area(&self) -> f64",
		"Hidden":                     "struct Hidden",
	}
	for id, sig := range tests {
		t.Run(id, func(t *testing.T) {
			require.Equal(t, sig, byID[id].Signature)
		})
	}
}

func TestExtractExistingDoc(t *testing.T) {
	tree := parse(t, geoSource)
	byID := itemsByID(Extract(tree))

	geo := byID["geo"]
	require.Equal(t, "/// Geometry helpers.", geo.ExistingDoc)
	require.Equal(t, strings.Index(geoSource, "/// Geometry"), geo.DocHead)
	require.Equal(t, strings.Index(geoSource, "pub mod geo"), geo.DocTail)

	point := byID["geo::Point"]
	require.Equal(t, "/// A point in the plane, with two coordinates.", point.ExistingDoc)
	require.Equal(t, strings.Index(geoSource, "    #[derive"), point.Anchor)
	require.Equal(t, "    ", point.Indent)
	require.False(t, point.Inline)

	require.Empty(t, byID["geo::Point::x"].ExistingDoc)
	require.Equal(t, -1, byID["geo::Point::x"].DocHead)
	require.Equal(t, "        ", byID["geo::Point::x"].Indent)
	require.Equal(t, strings.Index(geoSource, "        pub x"), byID["geo::Point::x"].Anchor)

	// The inner crate doc is not the module's doc.
	require.Empty(t, byID["Hidden"].ExistingDoc)
}

func TestExtractDocForms(t *testing.T) {
	src := `/// Before the attribute.
#[inline]
/// Between attributes.
#[must_use]
pub fn both() -> u8 { 1 }

#[doc = "Documented through an attribute."]
pub fn attr() {}

/** Block doc. */
pub fn block() {}

/// Doc separated by a blank line.

pub fn separated() {}

/// Orphaned by a comment.
// plain comment
pub fn orphan() {}

#[doc(hidden)]
pub fn hidden() {}
`
	byID := itemsByID(Extract(parse(t, src)))

	both := byID["both"]
	require.True(t, strings.HasPrefix(both.ExistingDoc, "/// Before the attribute."))
	require.True(t, strings.HasSuffix(both.ExistingDoc, "/// Between attributes."))
	require.Equal(t, strings.Index(src, "#[inline]"), both.Anchor)
	require.Equal(t, 0, both.DocHead)

	require.True(t, byID["attr"].DocAttr)
	require.Equal(t, `#[doc = "Documented through an attribute."]`, byID["attr"].ExistingDoc)

	require.Equal(t, "/** Block doc. */", byID["block"].ExistingDoc)
	require.Equal(t, "/// Doc separated by a blank line.", byID["separated"].ExistingDoc)
	require.Empty(t, byID["orphan"].ExistingDoc)

	require.False(t, byID["hidden"].DocEligible)
	require.Equal(t, IneligibleHidden, byID["hidden"].Ineligible)
}

func TestExtractSpecialCases(t *testing.T) {
	t.Run("inline_items", func(t *testing.T) {
		items := Extract(parse(t, "pub struct A; pub struct B;\npub enum E { X, Y }\n"))
		byID := itemsByID(items)
		require.False(t, byID["A"].Inline)
		require.True(t, byID["B"].Inline)
		require.False(t, byID["E"].Inline)
		require.True(t, byID["E::X"].Inline)
		require.True(t, byID["E::Y"].Inline)
	})

	t.Run("duplicate_ids", func(t *testing.T) {
		items := Extract(parse(t, "#[cfg(unix)]\npub fn f() {}\n#[cfg(windows)]\npub fn f() {}\n"))
		require.Len(t, items, 2)
		require.Equal(t, "f", items[0].ID)
		require.Equal(t, "f#2", items[1].ID)
		require.Equal(t, IneligibleConditional, items[0].Ineligible)
		require.False(t, items[1].DocEligible)
	})

	t.Run("generated_file", func(t *testing.T) {
		items := Extract(parse(t, "// @generated by build.rs\n\npub fn f() {}\n"))
		require.Len(t, items, 1)
		require.Equal(t, IneligibleGenerated, items[0].Ineligible)
	})

	t.Run("unsafe_and_kinds", func(t *testing.T) {
		src := `pub unsafe fn raw() {}
pub unsafe trait Zeroable {}
pub const MAX: u32 = 10;
pub static NAME: &str = "x";
pub type Id = u64;
pub union Bits { i: u32, f: f32 }
#[macro_export]
macro_rules! square {
    ($x:expr) => { $x * $x };
}
`
		byID := itemsByID(Extract(parse(t, src)))
		require.True(t, byID["raw"].Unsafe)
		require.True(t, byID["Zeroable"].Unsafe)
		require.Equal(t, types.KindConst, byID["MAX"].Kind)
		require.Equal(t, "pub const MAX: u32 = 10", byID["MAX"].Signature)
		require.Equal(t, types.KindStatic, byID["NAME"].Kind)
		require.Equal(t, types.KindTypeAlias, byID["Id"].Kind)
		require.Equal(t, "pub type Id = u64", byID["Id"].Signature)
		require.Equal(t, types.KindUnion, byID["Bits"].Kind)
		require.Equal(t, []string{"i", "f"}, byID["Bits"].FieldNames)
		require.Equal(t, types.KindMacro, byID["square"].Kind)
		require.Equal(t, "macro_rules! square", byID["square"].Signature)
		require.True(t, byID["square"].Public)
	})

	t.Run("tuple_struct_fields_not_extracted", func(t *testing.T) {
		items := Extract(parse(t, "pub struct Pair(pub u8, pub u8);\n"))
		require.Len(t, items, 1)
		require.Equal(t, "pub struct Pair", items[0].Signature)
	})

	t.Run("private_module_members", func(t *testing.T) {
		byID := itemsByID(Extract(parse(t, "mod inner {\n    pub fn f() {}\n    fn g() {}\n}\n")))
		require.False(t, byID["inner"].Public)
		require.True(t, byID["inner::f"].Public)
		require.False(t, byID["inner::g"].Public)
	})

	t.Run("crlf_indent", func(t *testing.T) {
		src := "pub mod m {\r\n\tpub fn f() {}\r\n}\r\n"
		byID := itemsByID(Extract(parse(t, src)))
		require.Equal(t, "\t", byID["m::f"].Indent)
		require.Equal(t, strings.Index(src, "\tpub fn"), byID["m::f"].Anchor)
	})
}

func TestExtractModuleInnerDoc(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantDoc string
		head    int
	}{
		{
			name:    "inner_only",
			src:     "pub mod net {\n    //! Networking primitives used by the resolver crate.\n    pub fn connect() {}\n}\n",
			wantDoc: "//! Networking primitives used by the resolver crate.",
			head:    -1,
		},
		{
			name:    "block_form",
			src:     "pub mod net {\n    /*! Networking primitives. */\n}\n",
			wantDoc: "/*! Networking primitives. */",
			head:    -1,
		},
		{
			name:    "outer_and_inner",
			src:     "/// Net.\npub mod net {\n    //! Sockets and resolvers.\n}\n",
			wantDoc: "/// Net.\n//! Sockets and resolvers.",
			head:    0,
		},
		{
			name:    "inner_after_item_is_not_module_doc",
			src:     "pub mod net {\n    pub fn connect() {}\n    //! stray\n}\n",
			wantDoc: "",
			head:    -1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			byID := itemsByID(Extract(parse(t, tc.src)))
			net := byID["net"]
			require.Equal(t, tc.wantDoc, net.ExistingDoc)
			require.Equal(t, tc.head, net.DocHead)
			require.Equal(t, -1, net.DocTail)
		})
	}
}

func TestExtractForeignBlock(t *testing.T) {
	src := `extern "C" {
    pub fn puts(s: *const u8) -> i32;
    pub static errno: i32;
    fn hidden();
}

#[cfg(unix)]
extern {
    pub fn getpid() -> i32;
}
`
	byID := itemsByID(Extract(parse(t, src)))
	require.Len(t, byID, 4)

	puts := byID["puts"]
	require.Equal(t, types.KindFunction, puts.Kind)
	require.True(t, puts.Public)
	require.True(t, puts.DocEligible)
	require.Equal(t, "    ", puts.Indent)
	require.Equal(t, strings.Index(src, "    pub fn puts"), puts.Anchor)

	require.Equal(t, types.KindStatic, byID["errno"].Kind)
	require.True(t, byID["errno"].Public)
	require.False(t, byID["hidden"].Public)
	require.Equal(t, IneligibleConditional, byID["getpid"].Ineligible)
}

func TestExtractByteOrderMark(t *testing.T) {
	src := "\ufeffpub fn f() {}\n"
	items := Extract(parse(t, src))
	require.Len(t, items, 1)
	require.False(t, items[0].Inline)
	require.Equal(t, "", items[0].Indent)
	require.Equal(t, len("\ufeff"), items[0].Anchor)

	src = "\ufeff/// Existing docs for f that are long.\npub fn f() {}\n"
	items = Extract(parse(t, src))
	require.Equal(t, len("\ufeff"), items[0].DocHead)
	require.Equal(t, "/// Existing docs for f that are long.", items[0].ExistingDoc)
}
