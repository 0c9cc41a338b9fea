package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFAQ(t *testing.T) {
	now := time.Now()
	faq := NewFAQ("faq1", "Password reset", "Go to settings, click reset.", []string{"account"}, now)

	assert.Equal(t, "faq1", faq.ID)
	assert.Equal(t, "Password reset", faq.Title)
	assert.Equal(t, []string{"account"}, faq.Tags)
	assert.Equal(t, len("Go to settings, click reset."), faq.BodyLength)
	assert.Equal(t, now, faq.CreatedAt)
	assert.Equal(t, now, faq.UpdatedAt)
}

func TestFAQEmbeddingText(t *testing.T) {
	faq := NewFAQ("faq1", "VPN setup", "Install the client.", nil, time.Now())
	assert.Equal(t, "VPN setup\nInstall the client.", faq.EmbeddingText())
}

func TestValidateFAQ(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		faq     *FAQ
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid faq",
			faq:     NewFAQ("faq1", "Title", "Body", []string{"t"}, now),
			wantErr: false,
		},
		{
			name:    "nil faq",
			faq:     nil,
			wantErr: true,
			errMsg:  "cannot be nil",
		},
		{
			name:    "missing ID",
			faq:     &FAQ{Title: "Title", Body: "Body"},
			wantErr: true,
			errMsg:  "ID is required",
		},
		{
			name:    "missing title",
			faq:     &FAQ{ID: "faq1", Body: "Body"},
			wantErr: true,
			errMsg:  "Title is required",
		},
		{
			name:    "missing body",
			faq:     &FAQ{ID: "faq1", Title: "Title"},
			wantErr: true,
			errMsg:  "Body is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFAQ(tt.faq)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
