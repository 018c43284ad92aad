package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorKinds(t *testing.T) {
	err := NotFound("playbook %s not found", "p1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "playbook p1 not found", err.Error())
	assert.Equal(t, KindNotFound, KindOf(err))

	wrapped := fmt.Errorf("generate: %w", BusinessRule("not significant"))
	assert.True(t, errors.Is(wrapped, ErrBusinessRule))
	assert.Equal(t, KindBusinessRule, KindOf(wrapped))
}

func TestUnexpectedKeepsAppErrors(t *testing.T) {
	orig := Validation("days must be positive")
	assert.Same(t, orig, Unexpected(orig, "ignored"))

	dbErr := errors.New("connection reset")
	err := Unexpected(dbErr, "failed to load content")
	assert.True(t, errors.Is(err, ErrUnexpected))
	assert.True(t, errors.Is(err, dbErr))
	assert.Nil(t, Unexpected(nil, "nothing"))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("plain")))
}

func TestStringHelpers(t *testing.T) {
	assert.Equal(t, "héllo", TruncateRunes("héllo wörld", 5))
	assert.Equal(t, "short", TruncateRunes("short", 50))
	assert.Equal(t, []string{"a", "b"}, UniqueStrings([]string{"a", "", "b", "a"}))
	assert.Equal(t, []string{"x", "y"}, SplitCSV(" x, ,y "))
	assert.Nil(t, SplitCSV(""))

	d, err := ParseDate("2025-01-21")
	assert.NoError(t, err)
	assert.Equal(t, 21, d.Day())
	_, err = ParseDate("21/01/2025")
	assert.Error(t, err)

	n, err := StringToInt("", 30)
	assert.NoError(t, err)
	assert.Equal(t, 30, n)
	_, err = StringToInt("abc", 30)
	assert.Error(t, err)
}

func TestPagination(t *testing.T) {
	page, size := ValidateAndNormalizePagination(0, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, size)

	info := CalculatePaginationInfo(45, 2, 20)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasNext)
	assert.True(t, info.HasPrevious)
	assert.Equal(t, 20, CalculateOffset(2, 20))
}
