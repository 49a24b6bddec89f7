package search

import "testing"

func TestHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.lfg.com.au/about", "lfg.com.au"},
		{"http://Example.COM", "example.com"},
		{"acme.io/contact", "acme.io"},
		{"https://au.linkedin.com/in/steven-lowy", "au.linkedin.com"},
		{"://bad", ""},
	}
	for _, tt := range tests {
		if got := Host(tt.in); got != tt.want {
			t.Errorf("Host(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
