package dto

import (
	"time"

	"hiresync/internal/models"
)

// =======================
// Users
// =======================

// SyncProfileRequest обновляет поля отображения текущего пользователя.
// Пустые поля берутся из токена.
type SyncProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

// UserResponse используется для /users/me
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserResponse(u *models.User) *UserResponse {
	return &UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}
