package dto

import (
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// passwordPolicy adapts security.ValidatePassword to an ozzo rule.
var passwordPolicy = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	return security.ValidatePassword(s)
})

type SignupRequest struct {
	Email    string      `json:"email" form:"email"`
	Name     string      `json:"name" form:"name"`
	Phone    *string     `json:"phone,omitempty" form:"phone"`
	Password string      `json:"password" form:"password"`
	Role     models.Role `json:"role,omitempty" form:"role"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Password, validation.Required, passwordPolicy),
		validation.Field(&r.Role, validation.In(models.RoleUser, models.RoleCandidate).
			Error("role must be one of: user, candidate")),
	)
}

// LoginRequest accepts either JSON {email,password} or the OAuth2 password
// form fields username/password.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Identifier returns the email, falling back to the OAuth2 username field.
func (r LoginRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

func (r LoginRequest) Validate() error {
	if err := validation.Validate(r.Identifier(), validation.Required.Error("email is required")); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
	)
}

type FirebaseLoginRequest struct {
	IDToken string `json:"id_token"`
}

func (r FirebaseLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDToken, validation.Required),
	)
}

type EmailRequest struct {
	Email string `json:"email"`
}

func (r EmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, passwordPolicy),
	)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse mirrors the OAuth2 token response. RefreshToken is omitted
// when only an access token is issued.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Firebase  string `json:"firebase"`
	Mail      string `json:"mail"`
}
