package security

import (
	"net/http"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	v := NewURL()

	tests := []struct {
		name    string
		url     string
		wantErr string // empty means valid
	}{
		{"public https", "https://example.com/pricing", ""},
		{"public http", "http://example.com", ""},
		{"public with port", "https://example.com:8443/page", ""},
		{"ftp scheme", "ftp://example.com/file", "unsupported scheme"},
		{"file scheme", "file:///etc/passwd", "unsupported scheme"},
		{"no scheme", "example.com", "unsupported scheme"},
		{"empty host", "https://", "empty hostname"},
		{"localhost", "http://localhost:8080", "blocked host"},
		{"localhost mixed case", "http://LocalHost/admin", "blocked host"},
		{"google metadata hostname", "http://metadata.google.internal/computeMetadata", "blocked host"},
		{"loopback ip", "http://127.0.0.1/", "loopback"},
		{"loopback range", "http://127.8.8.8/", "loopback"},
		{"ipv6 loopback", "http://[::1]/", "loopback"},
		{"rfc1918 10", "http://10.0.0.5/", "private IP"},
		{"rfc1918 172", "http://172.16.0.1/", "private IP"},
		{"rfc1918 192", "http://192.168.1.1/", "private IP"},
		{"cloud metadata ip", "http://169.254.169.254/latest/meta-data/", "link-local"},
		{"link local", "http://169.254.1.1/", "link-local"},
		{"unspecified", "http://0.0.0.0/", "unspecified"},
		{"ipv6 mapped loopback", "http://[::ffff:127.0.0.1]/", "loopback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.url)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate(%q) = %v, want nil", tt.url, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want error containing %q", tt.url, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate(%q) = %v, want error containing %q", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestSafeClientConfiguration(t *testing.T) {
	v := NewURL()
	client := v.SafeClient(0)

	if client.Transport == nil {
		t.Fatal("SafeClient should configure a transport")
	}
	if client.CheckRedirect == nil {
		t.Fatal("SafeClient should configure a redirect policy")
	}

	// Redirect policy refuses unsafe targets.
	req, err := http.NewRequest(http.MethodGet, "http://169.254.169.254/latest", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.CheckRedirect(req, nil); err == nil {
		t.Error("redirect to metadata endpoint should be rejected")
	}
}
