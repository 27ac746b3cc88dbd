package validate

import (
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	maxLinkPasses     = 3
	maxSanitizePasses = 4
)

// unsafeScheme matches script-capable URL schemes anywhere in a string.
var unsafeScheme = regexp.MustCompile(`(?i)(java\s*script|vb\s*script|data)\s*:`)

// SanitizeText strips markup and control sequences from AI-generated text so
// it can be shown as plain text. Newlines and tabs survive; the result is
// stable under repeated sanitization.
func (v *Validator) SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	s = ansi.Strip(s)
	s = stripHidden(s)
	s = v.neutralizeLinks(s)
	return v.stripHTML(s)
}

// stripHTML runs the strict policy until the unescaped output stops changing,
// so entity-encoded markup cannot survive one pass and reappear after the
// next.
func (v *Validator) stripHTML(s string) string {
	for range maxSanitizePasses {
		out := html.UnescapeString(v.policy.Sanitize(s))
		if out == s {
			return out
		}
		s = out
	}
	return v.policy.Sanitize(s)
}

// neutralizeLinks replaces markdown link and image destinations that use a
// script-capable scheme with "#".
func (v *Validator) neutralizeLinks(s string) string {
	for range maxLinkPasses {
		bad := v.unsafeDestinations(s)
		if len(bad) == 0 {
			return s
		}
		for _, dst := range bad {
			s = strings.ReplaceAll(s, dst, "#")
		}
	}
	if len(v.unsafeDestinations(s)) == 0 {
		return s
	}
	return unsafeScheme.ReplaceAllString(s, "")
}

func (v *Validator) unsafeDestinations(s string) []string {
	src := []byte(s)
	doc := v.md.Parser().Parse(text.NewReader(src))
	var bad []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var dst string
		switch n := n.(type) {
		case *ast.Link:
			dst = string(n.Destination)
		case *ast.Image:
			dst = string(n.Destination)
		case *ast.AutoLink:
			dst = string(n.URL(src))
		default:
			return ast.WalkContinue, nil
		}
		if dst != "" && dst != "#" && unsafeURL(dst) {
			bad = append(bad, dst)
		}
		return ast.WalkContinue, nil
	})
	return bad
}

func unsafeURL(u string) bool {
	u = strings.ToLower(strings.Join(strings.Fields(u), ""))
	for _, scheme := range []string{"javascript:", "vbscript:", "data:"} {
		if strings.HasPrefix(u, scheme) {
			return true
		}
	}
	return false
}

// stripHidden removes control, zero-width and bidi characters, keeping
// newlines and tabs.
func stripHidden(s string) string {
	if !hasHiddenRunes(s) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isHidden(r) {
			return -1
		}
		return r
	}, s)
}
