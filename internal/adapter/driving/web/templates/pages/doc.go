// Package pages holds the page-level components.
package pages
