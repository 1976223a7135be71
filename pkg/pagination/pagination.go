package pagination

import (
	"math"

	"gorm.io/gorm"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 20
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds page-based pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta is echoed back to clients next to the page of data.
type Meta struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// Page is a slice of rows plus the metadata describing it.
type Page[T any] struct {
	Items []T
	Meta  Meta
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize returns a copy with page >= 1 and a bounded limit.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset is the number of rows to skip for the current page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Scope applies offset/limit to a GORM query.
func (p Params) Scope(db *gorm.DB) *gorm.DB {
	n := p.Normalize()
	return db.Offset(n.Offset()).Limit(n.Limit)
}

// NewMeta computes the page count from the total row count.
func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	pages := int(math.Ceil(float64(total) / float64(n.Limit)))
	return Meta{
		Page:    n.Page,
		Limit:   n.Limit,
		Total:   total,
		Pages:   pages,
		HasNext: n.Page < pages,
		HasPrev: n.Page > 1,
	}
}
