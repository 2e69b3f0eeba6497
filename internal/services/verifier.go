package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/igorsal/commit-bridge/internal/models"
)

const (
	HeaderGitHubSignature = "X-Hub-Signature-256"
	HeaderGitLabToken     = "X-Gitlab-Token"

	signaturePrefix = "sha256="
)

// Verify checks that a delivery was sent by the provider holding secret.
// An empty secret never verifies.
func Verify(provider models.Provider, headers models.Headers, body []byte, secret string) bool {
	if secret == "" {
		return false
	}

	switch provider {
	case models.ProviderGitHub:
		return validateGitHubSignature(headers.Get(HeaderGitHubSignature), body, secret)
	case models.ProviderGitLab:
		return validateGitLabToken(headers.Get(HeaderGitLabToken), secret)
	default:
		return false
	}
}

func validateGitHubSignature(signature string, body []byte, secret string) bool {
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}

	got, err := hex.DecodeString(signature[len(signaturePrefix):])
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	// hmac.Equal is constant time and false on length mismatch
	return hmac.Equal(got, mac.Sum(nil))
}

func validateGitLabToken(token, secret string) bool {
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// SignGitHubPayload computes the X-Hub-Signature-256 value for body
func SignGitHubPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
