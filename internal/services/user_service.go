package services

import (
	"context"
	"errors"
	"net/http"

	"hiresync/internal/identity"
	"hiresync/internal/models"
	"hiresync/internal/repositories"
	"hiresync/internal/services/dto"
	"hiresync/internal/validator"
	"hiresync/pkg/apperrors"
)

const userDomain = "user"

var errUserNotFound = apperrors.New(apperrors.CodeNotFound, userDomain, "User not found", http.StatusNotFound)

// UserService держит локальную копию полей отображения. Сами учетные записи
// живут у провайдера идентичности.
type UserService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// SyncProfile сохраняет актора из токена, дополняя его полями запроса.
func (s *UserService) SyncProfile(ctx context.Context, actor identity.Actor, req dto.SyncProfileRequest) (*models.User, error) {
	if err := validator.Default().Validate(&req); err != nil {
		return nil, validationFailed(err)
	}

	user := &models.User{Name: actor.Name, Email: actor.Email}
	user.ID = actor.ID
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if user.Name == "" || user.Email == "" {
		return nil, apperrors.NewBadRequestError("name and email are required")
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, apperrors.DependencyError(err, userDomain)
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, errUserNotFound.WithError(err)
		}
		return nil, apperrors.DependencyError(err, userDomain)
	}
	return user, nil
}
