package handler

import "github.com/trainhub/auth-service/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// --- Request / Response types ---

type registerRequest struct {
	Name        string `json:"name"        validate:"required,min=2,max=255"`
	Email       string `json:"email"       validate:"required,email"`
	Phone       string `json:"phone"       validate:"omitempty,min=7,max=20"`
	Role        string `json:"role"        validate:"omitempty,oneof=client trainer admin"`
	Password    string `json:"password"    validate:"required,min=8,password"`
	Gender      string `json:"gender"      validate:"omitempty,max=32"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type checkEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	Message string         `json:"message"`
	User    *domain.User   `json:"user,omitempty"`
	Tokens  tokensResponse `json:"tokens"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type logoutAllResponse struct {
	Message string `json:"message"`
	Revoked int64  `json:"revoked"`
}

type checkEmailResponse struct {
	Exists bool `json:"exists"`
}

type profileResponse struct {
	User *domain.User `json:"user"`
}
