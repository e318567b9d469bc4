package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringOrNil(t *testing.T) {
	assert.Nil(t, StringOrNil(""))
	assert.Nil(t, StringOrNil("   "))
	assert.Equal(t, "x", *StringOrNil(" x "))
}

func TestCleanName(t *testing.T) {
	// "e" followed by a combining acute accent composes to "é".
	assert.Equal(t, "Andr\u00e9 Silva", CleanName("  Andre\u0301   Silva "))
	assert.Equal(t, "", CleanName("   "))
}

func TestCleanPhone(t *testing.T) {
	testCases := []struct {
		in       string
		expected *string
	}{
		{in: "+30 (210) 555-0100", expected: Ptr("+302105550100")},
		{in: "210.555.0100", expected: Ptr("2105550100")},
		{in: "12+3", expected: Ptr("123")},
		{in: "  ", expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanPhone(tc.in))
		})
	}
}

func TestOrZero(t *testing.T) {
	assert.Equal(t, "", OrZero[string](nil))
	assert.Equal(t, 3, OrZero(Ptr(3)))
}
