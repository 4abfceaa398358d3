// Package template defines the remote template service's data shape.
package template

// Content is the renderable part of a template: title and body with
// {{var}} placeholders.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Template is fetched from the template service and never mutated.
type Template struct {
	Code      string   `json:"code"`
	Language  string   `json:"language"`
	Content   Content  `json:"content"`
	Variables []string `json:"variables"`
}
