package classes

import (
	"strings"

	"github.com/wansing/pubflow/core"
	"github.com/wansing/pubflow/util"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func init() {
	Register(HTML{})
}

// HTML is an HTML fragment. References are a-href and img-src attributes.
type HTML struct{}

func (HTML) Code() string {
	return "html"
}

func (HTML) Name() string {
	return "HTML document"
}

// RewriteRefs returns the content unchanged if rewrite never returns a different value.
// Else the content is parsed and rendered again, which normalizes the markup.
func (HTML) RewriteRefs(content string, rewrite core.RefRewriter) (string, error) {

	domtree, err := util.CreateDomTree(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	var changed = false

	err = util.ForEachDomNode(domtree, func(domNode *html.Node) (bool, error) {

		// return (but keep iterating) if not an a/img ElementNode

		if domNode.Type != html.ElementNode {
			return true, nil
		}

		var attrIdx = -1
		var kind core.RefKind

		switch domNode.DataAtom {
		case atom.A:
			attrIdx = util.AttrIndex(domNode, "href")
			kind = core.LinkRef
		case atom.Img:
			attrIdx = util.AttrIndex(domNode, "src")
			kind = core.ImageRef
		}

		// skip if href/src not found

		if attrIdx < 0 {
			return true, nil
		}

		var value = strings.TrimSpace(domNode.Attr[attrIdx].Val)
		if replacement, ok := rewrite(kind, value); ok && replacement != value {
			domNode.Attr[attrIdx].Val = replacement
			changed = true
		}

		return true, nil
	})
	if err != nil {
		return "", err
	}

	if !changed {
		return content, nil
	}

	return util.RenderDomTree(domtree)
}
