package message

import (
	"strings"

	"github.com/jhillyerd/enmime/v2"
)

// Part is one node of a decoded message body tree: either a composite
// container of child parts, or a leaf carrying decoded content.  Leaf
// content is tagged text or binary so classification never needs to inspect
// runtime types.
type Part struct {
	Composite   bool
	Children    []*Part
	ContentType string // parsed media type, lowercase, no parameters
	Declared    string // Content-Type header value, verbatim
	Disposition string // parsed Content-Disposition value, lowercase
	FileName    string
	Text        string // decoded content when Binary is false
	Data        []byte // decoded content when Binary is true
	Binary      bool
}

// buildTree converts a decoded enmime part tree into our Part variant.
func buildTree(ep *enmime.Part) *Part {
	p := &Part{
		ContentType: ep.ContentType,
		Declared:    declaredType(ep),
		Disposition: ep.Disposition,
		FileName:    ep.FileName,
	}
	if strings.HasPrefix(ep.ContentType, "multipart/") {
		p.Composite = true
		p.Children = make([]*Part, 0, 2)
		for c := ep.FirstChild; c != nil; c = c.NextSibling {
			p.Children = append(p.Children, buildTree(c))
		}
		return p
	}
	if textType(ep.ContentType) {
		p.Text = string(ep.Content)
		return p
	}
	p.Binary = true
	p.Data = ep.Content
	return p
}

// declaredType returns the part's Content-Type header verbatim, falling back
// to the parsed media type when the header was elided.
func declaredType(ep *enmime.Part) string {
	if ct := ep.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return ep.ContentType
}

// textType reports whether the media type decodes to a text value.  A part
// with no declared type defaults to text/plain per RFC 2045.
func textType(contentType string) bool {
	return contentType == "" || strings.HasPrefix(contentType, "text/")
}
