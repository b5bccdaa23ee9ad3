package classes

import "github.com/wansing/pubflow/core"

func init() {
	Register(Raw{})
}

// Raw content is opaque. It has no references, so publishing never changes it.
type Raw struct{}

func (Raw) Code() string {
	return "raw"
}

func (Raw) Name() string {
	return "Raw document"
}

func (Raw) RewriteRefs(content string, _ core.RefRewriter) (string, error) {
	return content, nil
}
