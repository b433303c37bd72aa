// Package wikilink scans document content for wikilink references and
// reconstructs them with a new target while preserving every other part
// of the syntax (embed marker, heading anchor, display text).
package wikilink

import (
	"regexp"
	"strings"
)

// refRe matches all four reference forms in a single pass:
// [[target]], [[target|display]], [[target#heading]], ![[target]]
// and their combinations. The inner class forbids brackets so that
// adjacent links never merge into one match.
var refRe = regexp.MustCompile(`(!?)\[\[([^\[\]]+)\]\]`)

// Kind tags the syntactic form of a reference.
type Kind int

const (
	Plain Kind = iota
	DisplayText
	Anchor
	Embed
)

func (k Kind) String() string {
	switch k {
	case DisplayText:
		return "display"
	case Anchor:
		return "anchor"
	case Embed:
		return "embed"
	default:
		return "plain"
	}
}

// Reference is one wikilink occurrence inside a document.
type Reference struct {
	// Start and End are byte offsets of the whole link, including the
	// leading '!' of an embed.
	Start int
	End   int
	// Target is the path portion, backslashes normalized to forward
	// slashes. Matching against it is case-sensitive.
	Target string
	// Suffix is everything after the path portion, starting at the first
	// '#' or '|' (may combine both, e.g. "#heading|display"). Preserved
	// verbatim across rewrites.
	Suffix string
	Kind   Kind
}

// Rewrite reconstructs the full link text with a new target, keeping the
// embed marker and the suffix untouched.
func (r Reference) Rewrite(newTarget string) string {
	var b strings.Builder
	if r.Kind == Embed {
		b.WriteByte('!')
	}
	b.WriteString("[[")
	b.WriteString(newTarget)
	b.WriteString(r.Suffix)
	b.WriteString("]]")
	return b.String()
}

// Scan extracts every reference from content in document order.
// References with an empty path portion are skipped.
func Scan(content string) []Reference {
	idx := refRe.FindAllStringSubmatchIndex(content, -1)
	if idx == nil {
		return nil
	}
	out := make([]Reference, 0, len(idx))
	for _, m := range idx {
		// m: [start end bangStart bangEnd innerStart innerEnd]
		embed := m[3] > m[2]
		inner := content[m[4]:m[5]]

		target := inner
		suffix := ""
		if i := strings.IndexAny(inner, "#|"); i >= 0 {
			target = inner[:i]
			suffix = inner[i:]
		}
		if strings.TrimSpace(target) == "" {
			continue
		}

		kind := Plain
		switch {
		case embed:
			kind = Embed
		case strings.HasPrefix(suffix, "#"):
			kind = Anchor
		case suffix != "":
			kind = DisplayText
		}

		out = append(out, Reference{
			Start:  m[0],
			End:    m[1],
			Target: strings.ReplaceAll(target, `\`, "/"),
			Suffix: suffix,
			Kind:   kind,
		})
	}
	return out
}

// TargetsPrefix reports whether target refers to prefix itself or to
// something under it. "projects/alpha" covers "projects/alpha/x" but
// never "projects/alphabet".
func TargetsPrefix(target, prefix string) bool {
	return target == prefix || strings.HasPrefix(target, prefix+"/")
}

// ReplacePrefix substitutes oldPrefix with newPrefix at the start of
// target, leaving the remainder untouched. The caller is expected to have
// checked TargetsPrefix first.
func ReplacePrefix(target, oldPrefix, newPrefix string) string {
	if target == oldPrefix {
		return newPrefix
	}
	return newPrefix + strings.TrimPrefix(target, oldPrefix)
}
