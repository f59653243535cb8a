package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppAddressDeterministic(t *testing.T) {
	addr := AppAddress(1234)

	assert.Len(t, addr, 58)
	assert.Equal(t, addr, AppAddress(1234), "derivation must be a pure function of the app id")
	assert.NotEqual(t, addr, AppAddress(1235))
}

func TestAppAddressRoundTrip(t *testing.T) {
	addr := AppAddress(42)

	pk, err := DecodeAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, addr, encodeAddress(pk))
}

func TestDecodeAddressRejectsMalformed(t *testing.T) {
	valid := AppAddress(7)

	tests := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"too short", valid[:57]},
		{"too long", valid + "A"},
		{"bad checksum", flipChar(valid)},
		{"not base32", strings.Repeat("1", 58)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAddress(tt.addr)
			assert.Error(t, err)
			assert.False(t, IsValidAddress(tt.addr))
		})
	}
}

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress(AppAddress(99)))
	assert.False(t, IsValidAddress("not-an-address"))
}

// flipChar swaps the first character for a different base32 symbol so the
// checksum no longer matches.
func flipChar(addr string) string {
	replacement := byte('A')
	if addr[0] == 'A' {
		replacement = 'B'
	}
	return string(replacement) + addr[1:]
}
