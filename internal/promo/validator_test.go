package promo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticValidator(t *testing.T) {
	v := NewStaticValidator("SAVE20", " VIP ", "")

	tests := map[string]struct {
		code string
		want bool
	}{
		"exact match":          {code: "SAVE20", want: true},
		"trimmed on setup":     {code: "VIP", want: true},
		"case sensitive":       {code: "save20", want: false},
		"unknown code":         {code: "NOPE", want: false},
		"empty code":           {code: "", want: false},
		"no trimming on check": {code: " SAVE20 ", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := v.Validate(context.Background(), tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRuleValidator(t *testing.T) {
	v, err := NewRuleValidator(`hasPrefix(code, "SAVE") && len(code) == 6`)
	require.NoError(t, err)

	ok, err := v.Validate(context.Background(), "SAVE20")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Validate(context.Background(), "SAVE2000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Validate(context.Background(), "OTHER1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRuleValidatorRejectsBadRule(t *testing.T) {
	_, err := NewRuleValidator(`code +`)
	assert.Error(t, err)

	// non-boolean rules fail at compile time, not at checkout
	_, err = NewRuleValidator(`len(code)`)
	assert.Error(t, err)
}
