package scans

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   RepoRef
		wantOK bool
	}{
		{"full https url", "https://github.com/acme/billing", RepoRef{"acme", "billing"}, true},
		{"trailing slash", "https://github.com/acme/billing/", RepoRef{"acme", "billing"}, true},
		{"bare owner/name", "acme/billing", RepoRef{"acme", "billing"}, true},
		{"surrounding whitespace", "  https://github.com/acme/billing  ", RepoRef{"acme", "billing"}, true},
		{"host plus one segment", "https://github.com/acme", RepoRef{"github.com", "acme"}, true},
		{"single segment", "billing", RepoRef{}, false},
		{"empty", "", RepoRef{}, false},
		{"only slashes", "///", RepoRef{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRepoURL(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepoRefString(t *testing.T) {
	assert.Equal(t, "acme/billing", RepoRef{Owner: "acme", Name: "billing"}.String())
}
