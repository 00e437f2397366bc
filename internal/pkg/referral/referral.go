package referral

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"

	"renteasy/internal/core/domain"
)

// Registration kinds derived from a referral code
const (
	KindNormal        = "normal"
	KindAgentReferral = "agent_referral"
	KindAdminReferral = "admin_referral"
)

// Code prefixes
const (
	PrefixAgent = "AGT"
	PrefixAdmin = "ADM"
)

const suffixLength = 8

var codePattern = regexp.MustCompile(`^(AGT|ADM)-[A-Z0-9]{8}$`)

// ParsedCode is the result of parsing a raw referral code string.
type ParsedCode struct {
	Kind   string
	Prefix string
	Code   string
}

// Parse classifies a raw referral code. An empty string means no code was
// supplied and yields KindNormal; a non-empty string that does not match
// PREFIX-XXXXXXXX fails with ErrReferralFormat so callers can tell
// "no code" apart from "malformed code".
func Parse(raw string) (*ParsedCode, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return &ParsedCode{Kind: KindNormal}, nil
	}

	if !codePattern.MatchString(code) {
		return nil, domain.ErrReferralFormat
	}

	parsed := &ParsedCode{
		Prefix: code[:3],
		Code:   code,
	}
	switch parsed.Prefix {
	case PrefixAgent:
		parsed.Kind = KindAgentReferral
	case PrefixAdmin:
		parsed.Kind = KindAdminReferral
	}

	return parsed, nil
}

// PrefixForRole returns the code prefix for a referrer role, or "" when the
// role cannot own a referral code.
func PrefixForRole(role string) string {
	switch role {
	case "agent":
		return PrefixAgent
	case "admin":
		return PrefixAdmin
	}
	return ""
}

const suffixCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCode generates a referral code with the given prefix and a
// cryptographically random 8-character uppercase alphanumeric suffix.
// Uniqueness is the caller's responsibility.
func NewCode(prefix string) (string, error) {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte('-')

	max := big.NewInt(int64(len(suffixCharset)))
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(suffixCharset[n.Int64()])
	}

	return sb.String(), nil
}
