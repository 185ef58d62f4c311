package user

import "strings"

type SignUpRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

func (r *SignUpRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

func (r *SignInRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

type IDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// UpdateRequest is a partial profile update.
type UpdateRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=100"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	Password  *string `json:"password" binding:"omitempty,min=8,max=72"`
	Role      *string `json:"role" binding:"omitempty,oneof=user admin moderator"`
	IsActive  *bool   `json:"isActive"`
}

func (r *UpdateRequest) Normalize() {
	if r.Email != nil {
		email := NormalizeEmail(*r.Email)
		r.Email = &email
	}
}

// TouchesPrivileges reports whether the update changes fields only an admin may set.
func (r UpdateRequest) TouchesPrivileges() bool {
	return r.Role != nil || r.IsActive != nil
}

func (r UpdateRequest) Patch() Patch {
	p := Patch{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Password:  r.Password,
		IsActive:  r.IsActive,
	}

	if r.Email != nil {
		email := NormalizeEmail(*r.Email)
		p.Email = &email
	}

	if r.Role != nil {
		role := Role(*r.Role)
		p.Role = &role
	}

	return p
}
