package sanitize

import (
	"bytes"
	"strings"

	"github.com/gorilla/css/scanner"
)

// allowedProperties lists the CSS properties a style attribute may keep.
var allowedProperties = map[string]struct{}{
	"background-color": {},
	"border":           {},
	"border-bottom":    {},
	"border-left":      {},
	"border-radius":    {},
	"border-right":     {},
	"border-top":       {},
	"clear":            {},
	"color":            {},
	"display":          {},
	"float":            {},
	"font-family":      {},
	"font-size":        {},
	"font-style":       {},
	"font-weight":      {},
	"height":           {},
	"line-height":      {},
	"margin":           {},
	"margin-bottom":    {},
	"margin-left":      {},
	"margin-right":     {},
	"margin-top":       {},
	"max-height":       {},
	"max-width":        {},
	"padding":          {},
	"padding-bottom":   {},
	"padding-left":     {},
	"padding-right":    {},
	"padding-top":      {},
	"text-align":       {},
	"text-decoration":  {},
	"vertical-align":   {},
	"width":            {},
	"word-break":       {},
}

// filterStyle scans one style attribute value, dropping every property not
// on the allow-list.  A scan error rejects the whole attribute.
func filterStyle(input string) string {
	b := &bytes.Buffer{}
	scan := scanner.New(input)
	keeping := false
	for {
		t := scan.Next()
		switch t.Type {
		case scanner.TokenEOF:
			return b.String()
		case scanner.TokenError:
			return ""
		case scanner.TokenIdent:
			if !keeping {
				if _, ok := allowedProperties[strings.ToLower(t.Value)]; !ok {
					eatProperty(scan)
					continue
				}
				keeping = true
			}
			b.WriteString(t.Value)
		case scanner.TokenChar:
			if keeping {
				b.WriteString(t.Value)
				if t.Value == ";" {
					keeping = false
				}
			}
		case scanner.TokenS:
			if keeping {
				b.WriteString(t.Value)
			}
		default:
			if keeping {
				b.WriteString(t.Value)
			}
		}
	}
}

// eatProperty discards tokens through the end of the current declaration.
func eatProperty(scan *scanner.Scanner) {
	for {
		t := scan.Next()
		if t.Type == scanner.TokenEOF || t.Type == scanner.TokenError {
			return
		}
		if t.Type == scanner.TokenChar && t.Value == ";" {
			return
		}
	}
}
