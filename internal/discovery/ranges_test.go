package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single address",
			input: "10.0.5.50",
			want:  []string{"10.0.5.50"},
		},
		{
			name:  "cidr excludes network and broadcast",
			input: "192.168.1.0/30",
			want:  []string{"192.168.1.1", "192.168.1.2"},
		},
		{
			name:  "slash 31 keeps both addresses",
			input: "192.168.1.0/31",
			want:  []string{"192.168.1.0", "192.168.1.1"},
		},
		{
			name:  "slash 32 is a single host",
			input: "192.168.1.7/32",
			want:  []string{"192.168.1.7"},
		},
		{
			name:  "unmasked cidr is normalized",
			input: "192.168.1.9/30",
			want:  []string{"192.168.1.9", "192.168.1.10"},
		},
		{
			name:  "full range",
			input: "10.0.5.1-10.0.5.3",
			want:  []string{"10.0.5.1", "10.0.5.2", "10.0.5.3"},
		},
		{
			name:  "short range",
			input: "10.0.5.1-3",
			want:  []string{"10.0.5.1", "10.0.5.2", "10.0.5.3"},
		},
		{
			name:  "range crossing octet boundary",
			input: "10.0.5.254-10.0.6.1",
			want:  []string{"10.0.5.254", "10.0.5.255", "10.0.6.0", "10.0.6.1"},
		},
		{
			name:  "mixed tokens preserve order and dedupe",
			input: "10.0.5.2, 10.0.5.1-3, 10.0.5.1",
			want:  []string{"10.0.5.2", "10.0.5.1", "10.0.5.3"},
		},
		{
			name:  "invalid tokens are skipped",
			input: "banana, 10.0.5.1, 300.1.1.1, 10.0.5.9-10.0.5.5, ::1",
			want:  []string{"10.0.5.1"},
		},
		{
			name:  "empty input",
			input: "  , ,",
			want:  nil,
		},
		{
			name:  "oversized prefix is skipped",
			input: "10.0.0.0/8, 10.0.5.1",
			want:  []string{"10.0.5.1"},
		},
		{
			name:  "slash zero is skipped",
			input: "0.0.0.0/0, 10.0.5.1",
			want:  []string{"10.0.5.1"},
		},
		{
			name:  "full address space range is skipped",
			input: "0.0.0.0-255.255.255.255, 10.0.5.1",
			want:  []string{"10.0.5.1"},
		},
		{
			name:  "range ending at the top of the v4 space",
			input: "255.255.255.254-255.255.255.255",
			want:  []string{"255.255.255.254", "255.255.255.255"},
		},
		{
			name:  "slash 31 at the top of the v4 space",
			input: "255.255.255.254/31",
			want:  []string{"255.255.255.254", "255.255.255.255"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseRanges(tt.input))
		})
	}
}

func TestParseRangesIdempotent(t *testing.T) {
	t.Parallel()

	first := ParseRanges("10.0.1.0/29, 10.0.5.1-4")
	again := ParseRanges(joinComma(first))
	assert.Equal(t, first, again)
}

func joinComma(ips []string) string {
	out := ""
	for i, ip := range ips {
		if i > 0 {
			out += ","
		}
		out += ip
	}
	return out
}

func TestSortByIP(t *testing.T) {
	t.Parallel()

	ips := []string{"10.0.0.10", "10.0.0.9", "10.0.0.100", "9.255.255.255"}
	sortByIP(ips)
	assert.Equal(t, []string{"9.255.255.255", "10.0.0.9", "10.0.0.10", "10.0.0.100"}, ips)
}
