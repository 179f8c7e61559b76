package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ipv4 principal", "203.0.113.47", "203.0.113.0"},
		{"ipv4 network address", "10.0.0.0", "10.0.0.0"},
		{"ipv4 loopback from the cli", "127.0.0.1", "127.0.0.0"},
		{"ipv4 mapped ipv6", "::ffff:198.51.100.7", "198.51.100.0"},
		{"ipv6 full", "2001:db8:85a3:0000:0000:8a2e:0370:7334", "2001:db8:85a3::"},
		{"ipv6 compressed", "2001:db8:85a3::8a2e:370:7334", "2001:db8:85a3::"},
		{"ipv6 loopback", "::1", "::"},
		{"ipv6 link-local with zone", "fe80::1%eth0", "fe80::"},
		{"empty", "", "unknown"},
		{"already unknown", "unknown", "unknown"},
		{"hostname", "proxy.internal", "invalid"},
		{"ip with port", "203.0.113.47:8080", "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AnonymizeIP(tt.input))
		})
	}
}

func TestPrincipalIP(t *testing.T) {
	attr := PrincipalIP("192.0.2.200")
	assert.Equal(t, "principal_ip_prefix", attr.Key)
	assert.Equal(t, "192.0.2.0", attr.Value.String())
}
