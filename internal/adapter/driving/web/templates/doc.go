// Package templates holds the page layout shared by every HTML page. The
// *_templ.go files are generated from the .templ sources with `go tool templ generate`.
package templates
