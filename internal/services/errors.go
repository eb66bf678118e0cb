package services

import "errors"

var (
	// ErrInvalidCredentials is returned on login failure. The same error is
	// used whether the email is unknown or the password mismatches, so the
	// caller cannot tell which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned when registering with an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when registering with an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrTokenExpired indicates the token's expiry is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed indicates a token whose signature or structure is invalid.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrNotFound indicates a well-formed ID that matches no record.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when an authenticated caller is not the post author.
	ErrForbidden = errors.New("not the post author")
	// ErrInvalidContent indicates post content outside 1-5000 characters after trimming.
	ErrInvalidContent = errors.New("content must be between 1 and 5000 characters")
	// ErrInvalidComment indicates comment text outside 1-1000 characters after trimming.
	ErrInvalidComment = errors.New("comment must be between 1 and 1000 characters")
)
