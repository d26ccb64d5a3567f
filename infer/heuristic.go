package infer

import (
	"context"
	"strings"
	"unicode"

	"github.com/arjunmahishi/rsdoc/types"
)

// Heuristic documents items from their names and signatures alone. It is
// deterministic and never emits examples: an untested doctest would break
// `cargo test`.
type Heuristic struct{}

func (Heuristic) Infer(ctx context.Context, d types.Descriptor) (types.DocBlock, error) {
	if err := ctx.Err(); err != nil {
		return types.DocBlock{}, err
	}

	var b types.DocBlock
	switch d.Kind {
	case types.KindFunction:
		b.Summary = []string{functionSummary(d)}
		if returnsResult(d.Signature) {
			b.Sections = append(b.Sections, types.Section{
				Heading: "Errors",
				Lines:   []string{"Returns an error if the operation fails."},
			})
		}
	case types.KindStruct:
		b.Summary = []string{"Represents " + article(words(d.Name)) + "."}
	case types.KindUnion:
		b.Summary = []string{"Represents " + article(words(d.Name)) + " stored as an untagged union."}
	case types.KindEnum:
		b.Summary = []string{"Enumerates the " + phrase(words(d.Name)) + " variants."}
	case types.KindVariant:
		if d.Parent != "" {
			b.Summary = []string{"The `" + d.Name + "` variant of `" + d.Parent + "`."}
		} else {
			b.Summary = []string{"The `" + d.Name + "` variant."}
		}
	case types.KindField:
		if d.Parent != "" {
			b.Summary = []string{"The " + phrase(words(d.Name)) + " of the " + phrase(words(d.Parent)) + "."}
		} else {
			b.Summary = []string{"The " + phrase(words(d.Name)) + " field."}
		}
	case types.KindTrait:
		b.Summary = []string{"Defines " + phrase(words(d.Name)) + " behavior."}
	case types.KindModule:
		b.Summary = []string{"Items related to " + phrase(words(d.Name)) + "."}
	case types.KindConst:
		b.Summary = []string{"The " + phrase(words(d.Name)) + " constant."}
	case types.KindStatic:
		b.Summary = []string{"The " + phrase(words(d.Name)) + " static value."}
	case types.KindTypeAlias:
		if _, rhs, ok := strings.Cut(d.Signature, "="); ok {
			b.Summary = []string{"Alias for `" + strings.TrimSpace(rhs) + "`."}
		} else {
			b.Summary = []string{"The " + phrase(words(d.Name)) + " associated type."}
		}
	case types.KindMacro:
		b.Summary = []string{"Expands the `" + d.Name + "!` macro."}
	default:
		return types.DocBlock{}, ErrRefused
	}

	if d.Unsafe {
		b.Sections = append(b.Sections, types.Section{
			Heading: "Safety",
			Lines:   []string{"Callers must uphold the invariants this " + unsafeSubject(d.Kind) + " relies on."},
		})
	}
	return b, nil
}

var verbs = map[string]struct{}{
	"add": {}, "append": {}, "apply": {}, "build": {}, "check": {}, "clear": {}, "close": {},
	"collect": {}, "compute": {}, "convert": {}, "count": {}, "create": {}, "decode": {},
	"delete": {}, "emit": {}, "encode": {}, "extract": {}, "fetch": {}, "find": {}, "flush": {},
	"format": {}, "generate": {}, "handle": {}, "init": {}, "insert": {}, "install": {},
	"join": {}, "load": {}, "lookup": {}, "make": {}, "map": {}, "merge": {}, "normalize": {},
	"open": {}, "pack": {}, "parse": {}, "pop": {}, "print": {}, "process": {}, "push": {},
	"query": {}, "read": {}, "register": {}, "remove": {}, "render": {}, "replace": {},
	"reset": {}, "resolve": {}, "run": {}, "save": {}, "scan": {}, "send": {}, "serialize": {},
	"sort": {}, "spawn": {}, "split": {}, "start": {}, "stop": {}, "store": {}, "sync": {},
	"take": {}, "transform": {}, "unpack": {}, "update": {}, "validate": {}, "visit": {},
	"wait": {}, "write": {},
}

func functionSummary(d types.Descriptor) string {
	w := words(d.Name)
	if len(w) == 0 {
		return "Performs an operation."
	}
	rest := phrase(w[1:])
	switch w[0] {
	case "main":
		if len(w) == 1 {
			return "Program entry point."
		}
	case "new":
		if d.Parent != "" {
			return "Creates a new `" + d.Parent + "`."
		}
		return "Creates a new value."
	case "is", "has", "can", "should":
		if rest != "" {
			return "Returns `true` if this value " + verbPhrase(w[0], rest) + "."
		}
	case "get":
		if rest != "" {
			return "Returns the " + rest + "."
		}
	case "set":
		if rest != "" {
			return "Sets the " + rest + "."
		}
	case "to", "into":
		if rest != "" {
			return "Converts this value into " + rest + "."
		}
	case "as":
		if rest != "" {
			return "Borrows this value as " + rest + "."
		}
	case "from":
		if rest != "" {
			return "Creates a value from " + rest + "."
		}
		return "Converts from the given value."
	case "with":
		if rest != "" {
			return "Returns a copy configured with the given " + rest + "."
		}
	case "try":
		if rest != "" {
			return "Attempts to " + rest + "."
		}
	}

	if _, ok := verbs[w[0]]; ok {
		verb := capitalize(thirdPerson(w[0]))
		if rest != "" {
			return verb + " the " + rest + "."
		}
		if params := paramNames(d.Signature); len(params) > 0 {
			return verb + " " + listCode(params) + "."
		}
		return verb + " the value."
	}
	if strings.Contains(d.Signature, "->") {
		return "Returns the " + phrase(w) + "."
	}
	return "Performs the " + phrase(w) + " operation."
}

func verbPhrase(aux, rest string) string {
	switch aux {
	case "is":
		return "is " + rest
	case "has":
		return "has " + rest
	case "can":
		return "can " + rest
	}
	return "should " + rest
}

func unsafeSubject(k types.ItemKind) string {
	if k == types.KindTrait {
		return "trait"
	}
	return "function"
}

func returnsResult(sig string) bool {
	_, ret, ok := strings.Cut(sig, "->")
	if !ok {
		return false
	}
	ret = strings.TrimSpace(ret)
	if i := strings.Index(ret, " where "); i >= 0 {
		ret = ret[:i]
	}
	return strings.HasPrefix(ret, "Result") || strings.Contains(ret, "::Result") ||
		strings.HasPrefix(ret, "io::Result")
}

// paramNames returns the non-self parameter patterns of a function signature.
func paramNames(sig string) []string {
	open := strings.IndexByte(sig, '(')
	if open < 0 {
		return nil
	}
	depth := 0
	var params []string
	start := open + 1
	for i := open; i < len(sig); i++ {
		switch sig[i] {
		case '(', '<', '[':
			depth++
		case ')', '>', ']':
			if sig[i] == '>' && sig[i-1] == '-' {
				continue
			}
			depth--
			if depth == 0 {
				params = appendParam(params, sig[start:i])
				return params
			}
		case ',':
			if depth == 1 {
				params = appendParam(params, sig[start:i])
				start = i + 1
			}
		}
	}
	return params
}

func appendParam(params []string, p string) []string {
	name, _, ok := strings.Cut(p, ":")
	if !ok {
		return params
	}
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "mut "))
	if name == "" || name == "_" || strings.Contains(name, "self") {
		return params
	}
	return append(params, name)
}

func listCode(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	switch len(quoted) {
	case 1:
		return quoted[0]
	case 2:
		return quoted[0] + " and " + quoted[1]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", and " + quoted[len(quoted)-1]
}

// words splits snake_case and CamelCase identifiers. Acronyms inside
// CamelCase names keep their capitals; snake_case names are lowercased.
func words(name string) []string {
	name = strings.TrimPrefix(name, "r#")
	if strings.Contains(name, "_") {
		var out []string
		for _, p := range strings.Split(name, "_") {
			if p != "" {
				out = append(out, strings.ToLower(p))
			}
		}
		return out
	}
	if name != "" && strings.ToUpper(name) == name {
		return []string{strings.ToLower(name)}
	}

	runes := []rune(name)
	var out []string
	start := 0
	for i := 1; i <= len(runes); i++ {
		boundary := i == len(runes)
		if !boundary && unicode.IsUpper(runes[i]) {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			boundary = prevLower || (unicode.IsUpper(runes[i-1]) && nextLower)
		}
		if !boundary {
			continue
		}
		w := string(runes[start:i])
		if len([]rune(w)) > 1 && strings.ToUpper(w) == w {
			out = append(out, w)
		} else {
			out = append(out, strings.ToLower(w))
		}
		start = i
	}
	return out
}

func phrase(w []string) string {
	return strings.Join(w, " ")
}

func article(w []string) string {
	p := phrase(w)
	if p == "" {
		return "a value"
	}
	if strings.ContainsRune("aeiouAEIOU", rune(p[0])) {
		return "an " + p
	}
	return "a " + p
}

func thirdPerson(verb string) string {
	switch {
	case strings.HasSuffix(verb, "s"), strings.HasSuffix(verb, "x"), strings.HasSuffix(verb, "z"),
		strings.HasSuffix(verb, "ch"), strings.HasSuffix(verb, "sh"):
		return verb + "es"
	case strings.HasSuffix(verb, "y") && len(verb) > 1 && !strings.ContainsRune("aeiou", rune(verb[len(verb)-2])):
		return verb[:len(verb)-1] + "ies"
	}
	return verb + "s"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
