package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/pkg/db/dbtest"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
)

func TestBaseDB_BindsContext(t *testing.T) {
	conn := dbtest.Open(t).DB()
	base := NewBase(conn)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}
	if base.DB(nil) != conn {
		t.Fatalf("expected nil context to return raw connection")
	}
	if base.Bind(nil).db != conn {
		t.Fatalf("expected nil tx to keep the connection")
	}
}

func TestExistsFoldsCaseAndExcludesSelf(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	cat := models.Category{ID: uuid.New(), Name: "Books", Slug: "books", IsActive: true}
	require.NoError(t, client.DB().Create(&cat).Error)

	base := NewBase(client.DB())

	found, err := base.Exists(ctx, "categories", "name", "  bOOks ", uuid.Nil, true)
	require.NoError(t, err)
	require.True(t, found)

	found, err = base.Exists(ctx, "categories", "name", "books", uuid.Nil, false)
	require.NoError(t, err)
	require.False(t, found)

	found, err = base.Exists(ctx, "categories", "name", "Books", cat.ID, true)
	require.NoError(t, err)
	require.False(t, found)
}

func TestSortApply(t *testing.T) {
	conn := dbtest.Open(t).DB()
	ctx := context.Background()
	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, conn.Create(&models.Category{ID: uuid.New(), Name: name, Slug: name, IsActive: true}).Error)
	}

	var rows []models.Category
	require.NoError(t, Sort{Field: "name", Desc: true}.Apply(conn.WithContext(ctx), "created_at DESC").Find(&rows).Error)
	require.Equal(t, "c", rows[0].Name)

	rows = nil
	require.NoError(t, Sort{}.Apply(conn.WithContext(ctx), "name ASC").Find(&rows).Error)
	require.Equal(t, "a", rows[0].Name)
}
