package service

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 32
	emailMaxLen    = 254
	passwordMinLen = 8
	passwordMaxLen = 128
	nameMaxLen     = 64
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// normalized trims surrounding whitespace from everything but the password.
func (in RegisterInput) normalized() RegisterInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	return in
}

// Validate returns a *ValidationError listing every field that is wrong,
// or nil.
func (in RegisterInput) Validate() error {
	fields := map[string]string{}

	switch n := utf8.RuneCountInString(in.Username); {
	case n == 0:
		fields["username"] = "is required"
	case n < usernameMinLen || n > usernameMaxLen:
		fields["username"] = "must be between 3 and 32 characters"
	case !usernamePattern.MatchString(in.Username):
		fields["username"] = "may only contain letters, digits, '_', '.' and '-'"
	}

	switch {
	case in.Email == "":
		fields["email"] = "is required"
	case len(in.Email) > emailMaxLen:
		fields["email"] = "must be at most 254 characters"
	case !validEmail(in.Email):
		fields["email"] = "must be a valid email address"
	}

	switch n := utf8.RuneCountInString(in.Password); {
	case n == 0:
		fields["password"] = "is required"
	case n < passwordMinLen || n > passwordMaxLen:
		fields["password"] = "must be between 8 and 128 characters"
	}

	if utf8.RuneCountInString(in.FirstName) > nameMaxLen {
		fields["firstName"] = "must be at most 64 characters"
	}
	if utf8.RuneCountInString(in.LastName) > nameMaxLen {
		fields["lastName"] = "must be at most 64 characters"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// validEmail accepts a bare address only; "Name <a@b>" parses with
// net/mail but is not something we store.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && addr.Name == ""
}
