// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
)

const inviteCodeBytes = 10

var inviteEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return inviteEncoding.EncodeToString(bytes), nil
}

// GenerateInviteCode returns a 16 character code split into groups of
// four so it can be read aloud or typed on a phone.
func GenerateInviteCode() (string, error) {
	raw, err := GenerateSecureToken(inviteCodeBytes)
	if err != nil {
		return "", err
	}

	groups := make([]string, 0, len(raw)/4)
	for i := 0; i < len(raw); i += 4 {
		groups = append(groups, raw[i:min(i+4, len(raw))])
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeInviteCode makes user-typed codes comparable: case and
// separators are ignored.
func NormalizeInviteCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func HashInviteCode(code string) string {
	return HashToken(NormalizeInviteCode(code))
}

