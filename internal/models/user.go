package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// CredentialProvider marks the account row that holds the password hash.
	CredentialProvider = "credential"
)

type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Username      string    `json:"username,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	Image         string    `json:"image,omitempty"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Account struct {
	ID           string
	UserID       string
	ProviderID   string
	AccountID    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,strongpassword,max=72"`
	Image    string `json:"image,omitempty" validate:"omitempty,url"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=100"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password" validate:"required,strongpassword,max=72"`
	ConfirmPassword string `json:"confirmPassword,omitempty" validate:"omitempty,eqfield=Password"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email,max=100"`
}

type UsernameAvailability struct {
	IsAvailable bool   `json:"isAvailable"`
	Message     string `json:"message"`
}
