package utils

import (
	"bytes"
	"html/template"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	postMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	postPolicy = newPostPolicy()

	codeLanguage = regexp.MustCompile(`^language-[\w+#-]+$`)
)

// newPostPolicy is the sanitizer for post bodies. Bodies are user content
// shown to guests, so on top of the UGC baseline only web and mail links
// survive, GFM task-list checkboxes stay read-only, and fenced code keeps
// its language class for highlighting.
func newPostPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowImages()
	p.AllowAttrs("class").Matching(codeLanguage).OnElements("code")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderPostBody turns a markdown post body into sanitized HTML ready for
// the detail view.
func RenderPostBody(source string) template.HTML {
	var buf bytes.Buffer
	if err := postMarkdown.Convert([]byte(source), &buf); err != nil {
		// never hand back raw input
		return template.HTML(template.HTMLEscapeString(source))
	}

	sanitized := postPolicy.SanitizeBytes(buf.Bytes())
	return EnhanceHTMLContent(string(sanitized))
}
