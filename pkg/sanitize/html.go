// Package sanitize renders untrusted HTML message bodies safe for browser
// display while keeping basic inline styling intact.
package sanitize

import (
	"bufio"
	"bytes"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

var (
	styleSafe = regexp.MustCompile(".*")
	policy    = bluemonday.UGCPolicy().
			AllowElements("center").
			AllowAttrs("style").Matching(styleSafe).Globally()
)

// HTML sanitizes the provided html, while attempting to preserve inline CSS
// styling.  Style attributes are filtered against a property allow-list
// before bluemonday strips everything else untrusted.
func HTML(input string) (string, error) {
	b := &bytes.Buffer{}
	if err := filterStyleAttrs(b, strings.NewReader(input)); err != nil {
		return "", err
	}
	return policy.Sanitize(b.String()), nil
}

// filterStyleAttrs rewrites start tags so their style attributes contain only
// allowed CSS properties; all other tokens pass through untouched.
func filterStyleAttrs(w io.Writer, r io.Reader) error {
	bw := bufio.NewWriter(w)
	b := make([]byte, 0, 256)
	z := xhtml.NewTokenizer(r)
	for {
		b = b[:0]
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return err
			}
			return bw.Flush()
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if !hasAttr {
				if _, err := bw.Write(z.Raw()); err != nil {
					return err
				}
				continue
			}
			b = append(b, '<')
			b = append(b, name...)
			for {
				key, val, more := z.TagAttr()
				strval := string(val)
				style := strings.EqualFold(string(key), "style")
				if style {
					strval = filterStyle(strval)
				}
				if !style || strval != "" {
					b = append(b, ' ')
					b = append(b, key...)
					b = append(b, '=', '"')
					b = append(b, []byte(html.EscapeString(strval))...)
					b = append(b, '"')
				}
				if !more {
					break
				}
			}
			if tt == xhtml.SelfClosingTagToken {
				b = append(b, '/')
			}
			if _, err := bw.Write(append(b, '>')); err != nil {
				return err
			}
		default:
			if _, err := bw.Write(z.Raw()); err != nil {
				return err
			}
		}
	}
}
