// Package forms validates the sign-in and sign-up forms before anything reaches the backend.
package forms

import (
	"regexp"
	"strings"
)

const (
	MsgRequired         = "Please fill in all required fields"
	MsgInvalidEmail     = "Please enter a valid email address"
	MsgPasswordTooShort = "Password must be at least 6 characters"
	MsgPasswordMismatch = "Passwords do not match"

	MinPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Errors maps a field name to its message. The empty key holds the form-level message.
type Errors map[string]string

func (e Errors) OK() bool { return len(e) == 0 }

// Message is the form-level message, or the first field message if there is none.
func (e Errors) Message() string {
	if msg, ok := e[""]; ok {
		return msg
	}
	for _, field := range []string{"email", "password", "confirmPassword"} {
		if msg, ok := e[field]; ok {
			return msg
		}
	}
	return ""
}

type SignIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f SignIn) Validate() Errors {
	errs := Errors{}
	if strings.TrimSpace(f.Email) == "" {
		errs["email"] = MsgRequired
	}
	if strings.TrimSpace(f.Password) == "" {
		errs["password"] = MsgRequired
	}
	if !errs.OK() {
		errs[""] = MsgRequired
		return errs
	}
	if !emailPattern.MatchString(f.Email) {
		errs["email"] = MsgInvalidEmail
	}
	return errs
}

type SignUp struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (f SignUp) Validate() Errors {
	errs := Errors{}
	if strings.TrimSpace(f.Email) == "" {
		errs["email"] = MsgRequired
	}
	if f.Password == "" {
		errs["password"] = MsgRequired
	}
	if f.ConfirmPassword == "" {
		errs["confirmPassword"] = MsgRequired
	}
	if !errs.OK() {
		errs[""] = MsgRequired
		return errs
	}
	if !emailPattern.MatchString(f.Email) {
		errs["email"] = MsgInvalidEmail
	}
	if len(f.Password) < MinPasswordLength {
		errs["password"] = MsgPasswordTooShort
	}
	if f.Password != f.ConfirmPassword {
		errs["confirmPassword"] = MsgPasswordMismatch
	}
	return errs
}
