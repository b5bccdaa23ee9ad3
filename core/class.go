package core

type RefKind int

const (
	LinkRef  RefKind = iota // a-href, markdown link
	ImageRef                // img-src, markdown image
)

// A RefRewriter gets a reference found in content and returns its replacement.
// If ok is false, the reference stays as it is.
type RefRewriter func(kind RefKind, value string) (replacement string, ok bool)

// A Class is a content format.
type Class interface {
	Code() string
	Name() string
	// RewriteRefs calls rewrite for every link and image reference in the content and returns the modified content.
	RewriteRefs(content string, rewrite RefRewriter) (string, error)
}

type ClassRegistry interface {
	All() []string
	Get(code string) (Class, bool)
}
