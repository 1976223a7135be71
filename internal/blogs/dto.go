package blogs

import (
	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

type CreateInput struct {
	Title     string
	Excerpt   string
	Content   string
	IsActive  *bool
	Thumbnail []byte
	Gallery   [][]byte
}

type UpdateInput struct {
	Title     *string
	Excerpt   *string
	Content   *string
	IsActive  *bool
	Thumbnail []byte
}

type ListFilter struct {
	Search   string
	IsActive *bool
	Sort     repo.Sort
	Page     pagination.Params
}

// SortFields maps public sort keys to columns.
var SortFields = map[string]string{
	"title":      "title",
	"views":      "views",
	"likes":      "likes",
	"created_at": "created_at",
}

const excerptLength = 200
