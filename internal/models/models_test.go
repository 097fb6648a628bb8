package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrivacyLevelValid(t *testing.T) {
	for _, p := range []PrivacyLevel{PrivacyMinimal, PrivacyStandard, PrivacyHigh} {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, PrivacyLevel("secret").Valid())
	assert.False(t, PrivacyLevel("").Valid())
}

func TestSocialLinksScan(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  SocialLinks
	}{
		{"nil", nil, SocialLinks{}},
		{"empty", "", SocialLinks{}},
		{"string", `{"github":"https://github.com/a"}`, SocialLinks{"github": "https://github.com/a"}},
		{"bytes", []byte(`{"x":"y"}`), SocialLinks{"x": "y"}},
		{"not json", "my links", SocialLinks{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SocialLinks
			require.NoError(t, got.Scan(tt.input))
			assert.Equal(t, tt.want, got)
		})
	}

	var got SocialLinks
	assert.Error(t, got.Scan(42))
}

func TestSocialLinksValueOfNil(t *testing.T) {
	var s SocialLinks
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func TestIdentityPublic(t *testing.T) {
	id := Identity{ID: 3, DisplayName: "Work", Email: "me@work.example", Title: "Engineer"}
	pub := id.Public()
	assert.Equal(t, int64(3), pub.ID)
	assert.Equal(t, "Work", pub.DisplayName)
	assert.Equal(t, "Engineer", pub.Title)
}
