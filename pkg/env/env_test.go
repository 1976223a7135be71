package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("CIRCLEMART_TEST_VALUE", "  console ")
	assert.Equal(t, "console", Get("CIRCLEMART_TEST_VALUE", "json"))

	t.Setenv("CIRCLEMART_TEST_VALUE", "   ")
	assert.Equal(t, "json", Get("CIRCLEMART_TEST_VALUE", "json"))
}

func TestBool(t *testing.T) {
	t.Setenv("CIRCLEMART_TEST_FLAG", "true")
	assert.True(t, Bool("CIRCLEMART_TEST_FLAG", false))

	t.Setenv("CIRCLEMART_TEST_FLAG", "nope")
	assert.True(t, Bool("CIRCLEMART_TEST_FLAG", true))

	t.Setenv("CIRCLEMART_TEST_FLAG", "")
	assert.False(t, Bool("CIRCLEMART_TEST_FLAG", false))
}
