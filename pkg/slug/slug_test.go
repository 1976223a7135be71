package slug

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Hello World":           "hello-world",
		"  Café  Crème!! ":      "cafe-creme",
		"Ünïcödé -- Tëst":       "unicode-test",
		"100% Organic Apples":   "100-organic-apples",
		"!!!":                   "item",
		"already-a-slug":        "already-a-slug",
		"Mixed_Case With_Under": "mixed-case-with-under",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), "input %q", in)
	}
}

func TestUniqueAppendsSuffix(t *testing.T) {
	taken := map[string]bool{"fresh-bread": true, "fresh-bread-1": true}
	got, err := Unique(context.Background(), "Fresh Bread", func(_ context.Context, c string) (bool, error) {
		return taken[c], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh-bread-2", got)
}

func TestUniquePropagatesLookupError(t *testing.T) {
	_, err := Unique(context.Background(), "x", func(context.Context, string) (bool, error) {
		return false, errors.New("db down")
	})
	require.Error(t, err)
}

func TestMakeFoldsCompatibilityForms(t *testing.T) {
	assert.Equal(t, "fine-wines", Make("ﬁne Ｗines"))
	assert.Equal(t, "salt-pepper", Make("Salt & Pepper"))
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	taken := map[string]bool{"chess": true, "chess-1": true, "go": true}
	exists := func(_ context.Context, c string) (bool, error) { return taken[c], nil }

	tests := []struct {
		name    string
		current string
		rename  string
		want    string
	}{
		{"case only", "chess", "CHESS", "chess"},
		{"keeps numbered variant", "chess-1", "Chess", "chess-1"},
		{"new base", "chess", "Chess Club", "chess-club"},
		{"new base taken elsewhere", "chess", "Go", "go-1"},
		{"unrelated current", "go-1", "Go Club", "go-club"},
		{"suffix must be numeric", "chess-club", "Chess", "chess-2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Rename(ctx, tc.rename, tc.current, exists)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
