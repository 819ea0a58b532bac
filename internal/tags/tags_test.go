package tags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stash/internal/errs"
)

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"python", "api", "python"}, Split(" python, api ,,python "))
	assert.Empty(t, Split(" , ,"))
	assert.Empty(t, Split(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Normalize("a, a, b"))
	assert.Equal(t, []string{"Go", "go"}, Normalize("Go,go,Go"))
}

func TestClean(t *testing.T) {
	list, err := Clean("python, fastapi ,python")
	require.NoError(t, err)
	assert.Equal(t, "python,fastapi", Join(list))

	_, err = Clean(" , ")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = Clean("ok," + strings.Repeat("x", MaxLength+1))
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = Clean(strings.Repeat("é", MaxLength))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
		msg  string
	}{
		{"empty", "", false, "Tags cannot be empty"},
		{"blank", "   ", false, "Tags cannot be empty"},
		{"only commas", " , ,", false, "At least one valid tag is required"},
		{"duplicate", "python, api, python", false, "Duplicate tags found"},
		{"case differs", "Python,python", true, "2 tags valid"},
		{"too long", "a," + strings.Repeat("t", 51), false, "Tag '" + strings.Repeat("t", 51) + "' is too long (max 50 characters)"},
		{"exactly max", strings.Repeat("t", 50), true, "1 tags valid"},
		{"valid", "python, fastapi, api", true, "3 tags valid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := Validate(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.msg, msg)
		})
	}
}
