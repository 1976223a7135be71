package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bind returns a copy that issues every query through tx.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// Exists reports whether table has a row where column equals value, ignoring
// the row identified by excludeID. Comparison is case-insensitive when fold is set.
func (b Base) Exists(ctx context.Context, table, column string, value any, excludeID uuid.UUID, fold bool) (bool, error) {
	q := b.DB(ctx).Table(table)
	if s, ok := value.(string); ok && fold {
		q = q.Where(fmt.Sprintf("LOWER(%s) = ?", column), strings.ToLower(strings.TrimSpace(s)))
	} else {
		q = q.Where(fmt.Sprintf("%s = ?", column), value)
	}
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Sort is a validated ORDER BY clause. Field must come from a closed allow-list.
type Sort struct {
	Field string
	Desc  bool
}

// Apply orders q by s, falling back to fallback when s is empty.
func (s Sort) Apply(q *gorm.DB, fallback string) *gorm.DB {
	if s.Field == "" {
		return q.Order(fallback)
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return q.Order(fmt.Sprintf("%s %s", s.Field, dir)).Order("id ASC")
}
