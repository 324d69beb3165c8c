package handler

import (
	"time"

	"cubby/internal/parent/models"
	"cubby/internal/parent/service"
	id "cubby/pkg/domain"
)

// ParentResponse is the public view of a parent account.
type ParentResponse struct {
	ID          id.ParentID `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TokenResponse is the HTTP response for POST /parents/login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// FromParent converts a parent model to its public view.
func FromParent(p *models.Parent) *ParentResponse {
	return &ParentResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		CreatedAt:   p.CreatedAt,
	}
}

// FromLogin converts a login result to an OAuth-shaped token response.
func FromLogin(result *service.LoginResult) *TokenResponse {
	return &TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   result.ExpiresIn,
	}
}
