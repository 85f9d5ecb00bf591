package utils

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps Offset within an int32 for every allowed size
	MaxPage = math.MaxInt32 / MaxPageSize
)

// Page is a normalized page/size pair
type Page struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// NormalizePage clamps page to 1..MaxPage and size to 1..MaxPageSize
func NormalizePage(page, size int) Page {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Page: page, Size: size}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Size
}

func (p Page) Limit() int {
	return p.Size
}
