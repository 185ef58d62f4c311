package user

import "github.com/geocoder89/accounthub/internal/apperr"

var (
	ErrNotFound      = apperr.NotFound("User not found")
	ErrAlreadyExists = apperr.Conflict("Email already exists")
)
