package heuristic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailscore/internal/heuristic/disposable"
)

func newValidator() *Validator {
	return New(disposable.NewStatic("tempmail.com", "mailinator.com"))
}

func TestValidate_SyntaxFailureShortCircuits(t *testing.T) {
	v := newValidator()
	for _, addr := range []string{"", "plainaddress", "jane@", "@example.com", "jane@example", "jane@example.c", "ja ne@example.com"} {
		t.Run(addr, func(t *testing.T) {
			res := v.Validate(context.Background(), addr)
			assert.True(t, res.SyntaxError)
			assert.True(t, res.Rejected())
			assert.Equal(t, 0, res.Score)
			assert.Nil(t, res.Gibberish)
			assert.Nil(t, res.Role)
			assert.Nil(t, res.DidYouMean)
			assert.Nil(t, res.Disposable)
		})
	}
}

func TestValidate_CleanAddressScoresMax(t *testing.T) {
	res := newValidator().Validate(context.Background(), "jane@knowngooddomain.com")

	require.False(t, res.SyntaxError)
	assert.False(t, res.Rejected())
	assert.Equal(t, MaxScore, res.Score)
	assert.Equal(t, 30, res.Score)
	assert.False(t, *res.Gibberish)
	assert.False(t, *res.Role)
	assert.False(t, *res.Disposable)
	assert.Nil(t, res.DidYouMean)
	assert.Equal(t, "knowngooddomain.com", res.Domain)
}

func TestValidate_Disposable(t *testing.T) {
	res := newValidator().Validate(context.Background(), "john@tempmail.com")

	require.NotNil(t, res.Disposable)
	assert.True(t, *res.Disposable)
	assert.True(t, res.Rejected())
	// +5 gibberish, +5 suggestion, +5 role, -15 disposable
	assert.Equal(t, 0, res.Score)
}

func TestValidate_IndividualSignals(t *testing.T) {
	v := newValidator()

	t.Run("role account loses role point", func(t *testing.T) {
		res := v.Validate(context.Background(), "Support@knowngooddomain.com")
		assert.True(t, *res.Role)
		assert.Equal(t, 25, res.Score)
	})

	t.Run("typo suggestion loses suggestion point", func(t *testing.T) {
		res := v.Validate(context.Background(), "jane@gmial.com")
		require.NotNil(t, res.DidYouMean)
		assert.Equal(t, "jane@gmail.com", *res.DidYouMean)
		assert.Equal(t, 25, res.Score)
	})

	t.Run("gibberish subtracts", func(t *testing.T) {
		res := v.Validate(context.Background(), "x8f2k19d7q@knowngooddomain.com")
		assert.True(t, *res.Gibberish)
		assert.Equal(t, 20, res.Score)
	})
}

func TestIsGibberish(t *testing.T) {
	tests := []struct {
		local string
		want  bool
	}{
		{"jane", false},
		{"jane.doe", false},
		{"janedoe12", true},      // unbroken alphanumeric run > 8
		{"123456789", true},      // digit heavy
		{"jane.doe.smith", false}, // separators, alphabetic parts
		{"a1b2c3d4e5", true},
		{"12345.6789", true}, // digit ratio > 0.5 despite separator
		{"abcdefgh", false},  // length 8 is not > 8
	}
	for _, tt := range tests {
		t.Run(tt.local, func(t *testing.T) {
			assert.Equal(t, tt.want, isGibberish(tt.local))
		})
	}
}

func TestIsRole(t *testing.T) {
	assert.True(t, isRole("admin"))
	assert.True(t, isRole("Sales-Team"))
	assert.True(t, isRole("no-reply"))
	assert.False(t, isRole("jane.doe"))
}
