package errors

var (
	ErrEmailTaken = &DomainError{
		Code:    "EMAIL_TAKEN",
		Message: "email already registered",
	}
	ErrInvalidCredentials = &DomainError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid credentials",
	}
)
