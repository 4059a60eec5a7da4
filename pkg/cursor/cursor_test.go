package cursor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"100", "99", 1},
		{"99", "100", -1},
		{"100", "100", 0},
		{"", "1", -1},
		{"garbage", "1", -1},
		{"", "", 0},
		{"18446744073709551616", "18446744073709551615", 1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Compare(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestMax(t *testing.T) {
	require.Equal(t, "110", Max("95", "110"))
	require.Equal(t, "110", Max("110", "102"))
	require.Equal(t, "5", Max("", "5"))
	require.Equal(t, "5", Max("5", "bogus"))
	require.Equal(t, "", Max("", ""))
}

func TestFromUint(t *testing.T) {
	require.Equal(t, "", FromUint(0))
	require.Equal(t, "12345", FromUint(12345))
}
