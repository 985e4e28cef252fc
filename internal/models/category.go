package models

import "fmt"

// Category defines the set of valid catalog collections.
type Category string

const (
	// Film is a movie entry.
	Film Category = "film"
	// Book is a book entry.
	Book Category = "book"
	// Music is a music track or album entry.
	Music Category = "music"
	// Video is a video entry.
	Video Category = "video"
)

var categories = []Category{Film, Book, Music, Video}

// Categories returns all categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory maps the singular route slug to a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Table is the storage table that holds entries of this category.
// The returned name is always one of a fixed set and safe to interpolate.
func (c Category) Table() string {
	switch c {
	case Film:
		return "films"
	case Book:
		return "books"
	case Music:
		return "music"
	case Video:
		return "videos"
	}
	return ""
}

// ListPath is the URL path segment of the category's list page.
func (c Category) ListPath() string {
	switch c {
	case Film:
		return "films"
	case Book:
		return "books"
	case Music:
		return "music"
	case Video:
		return "video"
	}
	return ""
}

// Label is the human-readable plural name.
func (c Category) Label() string {
	switch c {
	case Film:
		return "Films"
	case Book:
		return "Books"
	case Music:
		return "Music"
	case Video:
		return "Videos"
	}
	return string(c)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c.Table() != ""
}
