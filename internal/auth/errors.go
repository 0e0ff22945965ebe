package auth

import "errors"

var (
	ErrInvalidUser        = errors.New("no account with this email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("weak password")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidSession     = errors.New("not signed in")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrTokenNotFound      = errors.New("token not found")
)

// UserMessage turns an auth error into text that can be shown to the user.
// Unknown errors get a generic message.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidUser):
		return "No account found with this email. Please sign up first."
	case errors.Is(err, ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, ErrWeakPassword):
		return "Password must be at least 8 characters and include upper and lower case letters, a number and a special character."
	case errors.Is(err, ErrEmailAlreadyInUse):
		return "An account with this email already exists."
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, ErrInvalidName):
		return "Please enter your name (up to 64 characters)."
	case errors.Is(err, ErrInvalidSession):
		return "You are not signed in. Use /login or /signup."
	case errors.Is(err, ErrInvalidResetToken):
		return "This reset code is invalid or has expired."
	default:
		return "Authentication failed. Please try again later."
	}
}
