package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

func TestCheckEnrollment(t *testing.T) {
	tests := []struct {
		name       string
		requested  bool
		presented  string
		configured string
		wantErr    bool
	}{
		{"moderator without key", true, "", "secret", true},
		{"moderator blank key", true, "   ", "secret", true},
		{"moderator wrong key", true, "wrong", "secret", true},
		{"moderator key with padding", true, " secret ", "secret", true},
		{"moderator prefix of key", true, "secre", "secret", true},
		{"moderator right key", true, "secret", "secret", false},
		{"plain user without key", false, "", "secret", false},
		{"plain user with wrong key", false, "wrong", "secret", false},
		{"server key unset", true, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEnrollment(tt.requested, tt.presented, tt.configured)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			kind, ok := apperrors.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindAuthCredsMissing, kind)
		})
	}
}
