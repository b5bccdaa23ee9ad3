package classes

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/wansing/pubflow/core"
	"gitlab.com/golang-commonmark/markdown"
)

// Linkify is off, else "Space.Page@file.pdf" would become a mailto link.
var markdownParser *markdown.Markdown = markdown.New(markdown.HTML(true), markdown.Linkify(false), markdown.Typographer(false), markdown.MaxNesting(10))

func init() {
	Register(Markdown{})
}

// Markdown is CommonMark. References are link and image destinations, inline or in link reference definitions.
//
// The markdown parser finds the references, and the replacement is done in the source text,
// because rendering would produce HTML instead of markdown. The parser percent-encodes destinations,
// so they are decoded before rewrite sees them, and both forms are replaced in the source.
type Markdown struct{}

func (Markdown) Code() string {
	return "markdown"
}

func (Markdown) Name() string {
	return "Markdown document (CommonMark)"
}

func (Markdown) RewriteRefs(content string, rewrite core.RefRewriter) (string, error) {

	var replacements = make(map[string]string) // destination as in the source -> new destination
	var asked = make(map[string]bool)

	var collect func(tokens []markdown.Token)
	collect = func(tokens []markdown.Token) {
		for _, t := range tokens {
			var kind core.RefKind
			var dest string
			switch tok := t.(type) {
			case *markdown.Inline:
				collect(tok.Children)
				continue
			case *markdown.LinkOpen:
				kind, dest = core.LinkRef, tok.Href
			case *markdown.Image:
				kind, dest = core.ImageRef, tok.Src
				collect(tok.Tokens)
			default:
				continue
			}
			if dest == "" {
				continue
			}
			var raw = dest
			if unescaped, err := url.PathUnescape(dest); err == nil {
				raw = unescaped
			}
			if !asked[raw] {
				asked[raw] = true
				if replacement, ok := rewrite(kind, raw); ok && replacement != raw {
					replacements[raw] = replacement
				}
			}
			if replacement, ok := replacements[raw]; ok && raw != dest {
				replacements[dest] = replacement
			}
		}
	}

	collect(markdownParser.Parse([]byte(content)))

	for old, replacement := range replacements {
		content = replaceDestination(content, old, replacement)
	}

	return content, nil
}

func replaceDestination(content, old, replacement string) string {
	var quoted = regexp.QuoteMeta(old)
	var inline = regexp.MustCompile(`(\]\(\s*<?)` + quoted + `(>?(?:\s|\)))`)
	var definition = regexp.MustCompile(`(?m)(^ {0,3}\[[^\]]+\]:\s*<?)` + quoted + `(>?(?:\s|$))`)
	var expand = "${1}" + escapeDollar(replacement) + "${2}"
	content = inline.ReplaceAllString(content, expand)
	return definition.ReplaceAllString(content, expand)
}

func escapeDollar(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
