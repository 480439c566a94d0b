package auth

import (
	"crypto/subtle"
	"strings"

	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// ModeratorKeyHeader carries the enrollment secret on account creation.
const ModeratorKeyHeader = "X-Moderator-Key"

// CheckEnrollment gates self-elevation to moderator at account creation. Accounts that
// do not ask for the privilege always pass.
func CheckEnrollment(requestedModerator bool, presentedKey, configuredKey string) error {
	if !requestedModerator {
		return nil
	}
	if strings.TrimSpace(presentedKey) == "" || configuredKey == "" {
		return apperrors.AuthCredsMissing()
	}
	if subtle.ConstantTimeCompare([]byte(presentedKey), []byte(configuredKey)) != 1 {
		return apperrors.AuthCredsMissing()
	}
	return nil
}
