package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"local leading zero", "03123456", "+9613123456"},
		{"already normalized", "+96171234567", "+96171234567"},
		{"bare subscriber", "71000000", "+96171000000"},
		{"spaces and dashes", "03 123-456", "+9613123456"},
		{"formatted international", "+961 71 234 567", "+96171234567"},
		{"parentheses", "(03)123456", "+9613123456"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in, "+961"))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"03123456", "+96171234567", "71000000", "+961 3 123 456", "00 961 71"}
	for _, in := range inputs {
		once := Normalize(in, "+961")
		assert.Equal(t, once, Normalize(once, "+961"), "normalize must be a no-op on %q", once)
	}
}

func TestNormalizeDefaultPrefix(t *testing.T) {
	assert.Equal(t, "+96171000000", Normalize("71000000", ""))
}
