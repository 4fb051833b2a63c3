package state

import (
	"errors"
	"testing"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/stretchr/testify/assert"
)

func TestClassifyAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"code invalid credentials", gateway.NewError(gateway.CodeInvalidCredentials, "whatever"), MsgInvalidCredentials},
		{"text invalid credentials", errors.New("Invalid Credentials"), MsgInvalidCredentials},
		{"text upper case", gateway.NewError(gateway.CodeUnknown, "INVALID LOGIN CREDENTIALS"), MsgInvalidCredentials},
		{"text mixed case", errors.New("auth: iNvAlId CrEdEnTiAlS supplied"), MsgInvalidCredentials},
		{"code unconfirmed", gateway.NewError(gateway.CodeEmailNotConfirmed, ""), MsgEmailNotConfirmed},
		{"text unconfirmed", errors.New("Email not confirmed"), MsgEmailNotConfirmed},
		{"text too many", errors.New("Too many requests"), MsgRateLimited},
		{"text rate limit", errors.New("email rate limit exceeded"), MsgRateLimited},
		{"code rate limited", gateway.NewError(gateway.CodeRateLimited, ""), MsgRateLimited},
		{"text registered", errors.New("User already registered"), MsgUserExists},
		{"text exists", errors.New("a user with this email address already exists"), MsgUserExists},
		{"code exists", gateway.NewError(gateway.CodeUserExists, ""), MsgUserExists},
		{"generic passthrough", errors.New("Signups not allowed for this instance"), "Signups not allowed for this instance"},
		{"empty unknown", gateway.NewError(gateway.CodeUnknown, ""), MsgUnexpected},
		{"blank", errors.New("  "), MsgUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAuthError(tt.err))
		})
	}
}
