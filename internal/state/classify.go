package state

import (
	"strings"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
)

const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailNotConfirmed  = "Please check your email and confirm your account before signing in."
	MsgRateLimited        = "Too many login attempts. Please try again later."
	MsgUserExists         = "An account with this email already exists"
	MsgUnexpected         = "An unexpected error occurred"
)

var authCodeMessages = map[gateway.Code]string{
	gateway.CodeInvalidCredentials: MsgInvalidCredentials,
	gateway.CodeEmailNotConfirmed:  MsgEmailNotConfirmed,
	gateway.CodeRateLimited:        MsgRateLimited,
	gateway.CodeUserExists:         MsgUserExists,
}

// authTextRules are tried in order against the lower-cased raw message when the backend did not
// send a code we know.
var authTextRules = []struct {
	needles []string
	message string
}{
	{[]string{"invalid credentials", "invalid login credentials"}, MsgInvalidCredentials},
	{[]string{"email not confirmed"}, MsgEmailNotConfirmed},
	{[]string{"too many requests", "rate limit"}, MsgRateLimited},
	{[]string{"already registered", "already exists"}, MsgUserExists},
}

// ClassifyAuthError turns a gateway auth failure into the message shown to the user.
func ClassifyAuthError(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := authCodeMessages[gateway.CodeOf(err)]; ok {
		return msg
	}

	raw := gateway.MessageOf(err)
	lower := strings.ToLower(raw)
	for _, rule := range authTextRules {
		for _, needle := range rule.needles {
			if strings.Contains(lower, needle) {
				return rule.message
			}
		}
	}
	if strings.TrimSpace(raw) == "" || raw == string(gateway.CodeUnknown) {
		return MsgUnexpected
	}
	return raw
}
