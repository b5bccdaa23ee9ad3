package core

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSegment addresses the default member of a space. "Drafts.Topic.default" and "Drafts.Topic" are the same document.
const DefaultSegment = "default"

const maxDepth = 16

// A Ref is the hierarchical address of a document.
type Ref struct {
	Wiki     string   // storage partition, can be empty
	Segments []string // space names and the page name
}

// NewRef creates a Ref and returns its canonical form.
func NewRef(wiki string, segments ...string) Ref {
	return Ref{
		Wiki:     wiki,
		Segments: segments,
	}.Canonical()
}

// ParseRef parses a string like "wiki:Space.Sub.Page" or "Space.Page".
func ParseRef(s string) (Ref, error) {

	var ref Ref

	s = strings.TrimSpace(s)
	if colon := strings.Index(s, ":"); colon != -1 {
		ref.Wiki = s[:colon]
		s = s[colon+1:]
		if !validSegment(ref.Wiki) {
			return Ref{}, fmt.Errorf("invalid wiki name: %q", ref.Wiki)
		}
	}

	if s == "" {
		return Ref{}, fmt.Errorf("empty reference")
	}

	ref.Segments = strings.Split(s, ".")
	if len(ref.Segments) > maxDepth {
		return Ref{}, fmt.Errorf("reference too deep: %s", s)
	}

	for _, segment := range ref.Segments {
		if !validSegment(segment) {
			return Ref{}, fmt.Errorf("invalid segment %q in %s", segment, s)
		}
	}

	return ref.Canonical(), nil
}

// MustParseRef is like ParseRef but panics on error. It is meant for constants and tests.
func MustParseRef(s string) Ref {
	ref, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// ResolveRef resolves s relative to base. A reference without wiki takes the wiki of base.
// A single segment is a sibling of base.
func ResolveRef(s string, base Ref) (Ref, error) {
	ref, err := ParseRef(s)
	if err != nil {
		return Ref{}, err
	}
	if ref.Wiki == "" {
		ref.Wiki = base.Wiki
	}
	if len(ref.Segments) == 1 && strings.Index(s, ":") == -1 && len(base.Segments) > 1 {
		ref.Segments = append(base.Parent().Segments, ref.Segments[0])
	}
	return ref, nil
}

func validSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, ".:@/ \t\n")
}

// Canonical drops a trailing DefaultSegment unless it is the only segment.
func (r Ref) Canonical() Ref {
	var segments = make([]string, len(r.Segments))
	copy(segments, r.Segments)
	for len(segments) > 1 && segments[len(segments)-1] == DefaultSegment {
		segments = segments[:len(segments)-1]
	}
	return Ref{
		Wiki:     r.Wiki,
		Segments: segments,
	}
}

// FullName returns the segments joined by dots, without the wiki.
func (r Ref) FullName() string {
	return strings.Join(r.Canonical().Segments, ".")
}

// String returns a textual representation like "wiki:Space.Page", or "Space.Page" if the wiki is empty.
func (r Ref) String() string {
	if r.Wiki == "" {
		return r.FullName()
	}
	return r.Wiki + ":" + r.FullName()
}

// Local returns the reference as seen from a document in the given wiki.
func (r Ref) Local(wiki string) string {
	if r.Wiki == wiki {
		return r.FullName()
	}
	return r.String()
}

func (r Ref) IsZero() bool {
	return len(r.Segments) == 0
}

func (r Ref) Equal(other Ref) bool {
	return r.Wiki == other.Wiki && r.FullName() == other.FullName()
}

// Name returns the last segment.
func (r Ref) Name() string {
	var c = r.Canonical()
	if len(c.Segments) == 0 {
		return ""
	}
	return c.Segments[len(c.Segments)-1]
}

// Parent returns the enclosing space, or the zero Ref for a top-level document.
func (r Ref) Parent() Ref {
	var c = r.Canonical()
	if len(c.Segments) <= 1 {
		return Ref{Wiki: c.Wiki}
	}
	return Ref{
		Wiki:     c.Wiki,
		Segments: c.Segments[:len(c.Segments)-1],
	}
}

// Child appends a segment.
func (r Ref) Child(segment string) Ref {
	var c = r.Canonical()
	return Ref{
		Wiki:     c.Wiki,
		Segments: append(c.Segments, segment),
	}
}

// IsBelow returns whether r is a strict descendant of ancestor.
func (r Ref) IsBelow(ancestor Ref) bool {
	var a, c = ancestor.Canonical(), r.Canonical()
	if a.Wiki != c.Wiki || len(c.Segments) <= len(a.Segments) {
		return false
	}
	for i := range a.Segments {
		if a.Segments[i] != c.Segments[i] {
			return false
		}
	}
	return true
}

// doesn't contain the dot
var segmentRegex = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeSegment turns a title like "Über uns" into a valid segment like "Uber-uns".
func NormalizeSegment(title string) string {

	folded, _, err := transform.String(foldAccents, strings.TrimSpace(title))
	if err != nil {
		folded = title
	}

	var segment = segmentRegex.ReplaceAllString(folded, `-`)
	return strings.Trim(segment, "-")
}
