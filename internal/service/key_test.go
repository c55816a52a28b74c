package service_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/khdiyz/image-gateway/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestNewKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		fileName string
		want     string
	}{
		{"banner.png", "1700000000123-abc123.png"},
		{"photo.final.JPG", "1700000000123-abc123.JPG"},
		{"noext", "1700000000123-abc123.noext"},
		{"", "1700000000123-abc123."},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			assert.Equal(t, tt.want, service.NewKey(now, "abc123", tt.fileName))
		})
	}
}

func TestRandomToken(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-z]{6}$`)
	for range 1000 {
		assert.Regexp(t, re, service.RandomToken())
	}
}

// Uniqueness within a millisecond is probabilistic; with 36^6 tokens a
// thousand draws collide with probability well under 1%, so only a sanity
// bound is asserted here.
func TestRandomTokenSpread(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		seen[service.RandomToken()] = struct{}{}
	}
	assert.Greater(t, len(seen), 990)
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x/user-uploads/abc123.png", "abc123.png"},
		{"https://x.supabase.co/storage/v1/object/public/user-uploads/1700000000123-abc123.png", "1700000000123-abc123.png"},
		{"https://x/user-uploads/abc123.png?token=sig&t=1", "abc123.png"},
		{"https://x/user-uploads/abc123.png#frag", "abc123.png"},
		{"https://x/user-uploads/my%20pic.png", "my pic.png"},
		{"abc123.png", "abc123.png"},
		{"https://x/user-uploads/", ""},
		{"https://x/bad%zz.png", "bad%zz.png"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, service.KeyFromURL(tt.url))
		})
	}
}
