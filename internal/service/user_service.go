package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"authgate/internal/models"
	"authgate/internal/repository"
)

// UserService is the admin-side management of end users.
type UserService struct {
	tx     Transactor
	users  UserStore
	tokens RefreshTokenStore
	log    zerolog.Logger
}

func NewUserService(tx Transactor, users UserStore, tokens RefreshTokenStore, log zerolog.Logger) *UserService {
	return &UserService{tx: tx, users: users, tokens: tokens, log: log}
}

type ListUsersInput struct {
	Page      int
	Limit     int
	Search    string
	IsActive  *bool
	SortBy    string
	SortOrder string
}

func (s *UserService) List(ctx context.Context, input ListUsersInput) ([]models.User, int, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 || input.Limit > 100 {
		input.Limit = 20
	}
	return s.users.List(ctx, repository.ListUsersParams{
		Search:    input.Search,
		IsActive:  input.IsActive,
		SortBy:    input.SortBy,
		SortOrder: input.SortOrder,
		Limit:     input.Limit,
		Offset:    (input.Page - 1) * input.Limit,
	})
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

type UpdateUserInput struct {
	PhoneNumber *string
	TelegramID  *int64
	IsActive    *bool
}

func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if input.PhoneNumber != nil && *input.PhoneNumber != user.PhoneNumber {
		if _, err := s.users.FindByPhone(ctx, *input.PhoneNumber); err == nil {
			return models.User{}, ErrPhoneTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return models.User{}, err
		}
		user.PhoneNumber = *input.PhoneNumber
	}
	if input.TelegramID != nil {
		user.TelegramID = input.TelegramID
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, ErrPhoneTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// Deactivate blocks the user and revokes every outstanding refresh token,
// so existing sessions die at their next refresh.
func (s *UserService) Deactivate(ctx context.Context, id string) (models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.SetActive(ctx, id, false); err != nil {
			return err
		}
		return s.tokens.RevokeAllForUser(ctx, id)
	})
	if err != nil {
		return models.User{}, err
	}

	user.IsActive = false
	s.log.Info().Str("user_id", id).Msg("user deactivated")
	return user, nil
}

func (s *UserService) Activate(ctx context.Context, id string) (models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if err := s.users.SetActive(ctx, id, true); err != nil {
		return models.User{}, err
	}
	user.IsActive = true
	return user, nil
}

// Delete removes the user and their refresh tokens in one transaction.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tokens.DeleteForUser(ctx, id); err != nil {
			return err
		}
		return s.users.Delete(ctx, id)
	})
}
