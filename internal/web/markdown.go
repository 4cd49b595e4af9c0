package web

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
)

const adviceHeading = "Gemini's Take:"

// md renders model output. Raw HTML in the source is omitted, not passed through.
var md = goldmark.New()

// renderAdvice renders the advice text under the fixed heading.
func renderAdvice(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte("### "+adviceHeading+"\n"+text), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
