// Package templates embeds the HTML templates served by package web.
package templates

import "embed"

//go:embed *.html pages/*.html partials/*.html
var FS embed.FS
