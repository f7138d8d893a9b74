package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/mmeshcher/davakhana/internal/model"
	"github.com/mmeshcher/davakhana/internal/repository"
)

// Credentials содержит данные формы входа. Пароль не проверяется.
type Credentials struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

func (c Credentials) normalize() (Credentials, error) {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Name = strings.TrimSpace(c.Name)

	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email {
		return c, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if c.Role == "" {
		c.Role = model.RoleBuyer
	}
	if !c.Role.Valid() {
		return c, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, c.Role)
	}
	if c.Name == "" {
		c.Name, _, _ = strings.Cut(c.Email, "@")
	}
	return c, nil
}

// RegisterUser создаёт нового пользователя. Занятый email возвращает repository.ErrUserExists.
func (s *Service) RegisterUser(ctx context.Context, creds Credentials) (*model.User, error) {
	creds, err := creds.normalize()
	if err != nil {
		return nil, err
	}

	u := model.User{
		ID:        uuid.NewString(),
		Name:      creds.Name,
		Email:     creds.Email,
		Role:      creds.Role,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, repository.ErrUserExists
		}
		return nil, err
	}
	return &u, nil
}

// Login находит пользователя по email или создаёт нового. Выбранная в форме роль сохраняется.
func (s *Service) Login(ctx context.Context, creds Credentials) (*model.User, error) {
	explicitRole := creds.Role != ""
	creds, err := creds.normalize()
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByEmail(ctx, creds.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		u, err = s.RegisterUser(ctx, creds)
		if errors.Is(err, repository.ErrUserExists) {
			u, err = s.repo.GetUserByEmail(ctx, creds.Email)
		}
	}
	if err != nil {
		return nil, err
	}

	if explicitRole && u.Role != creds.Role {
		if err := s.repo.UpdateUserRole(ctx, u.ID, creds.Role); err != nil {
			return nil, err
		}
		u.Role = creds.Role
	}
	return u, nil
}

// CurrentUser возвращает пользователя сессии.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// CycleRole переключает роль пользователя по кругу buyer → seller → admin → buyer.
func (s *Service) CycleRole(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := u.Role.Next()
	if err := s.repo.UpdateUserRole(ctx, u.ID, next); err != nil {
		return nil, err
	}
	u.Role = next
	return u, nil
}

// requireRole загружает пользователя и проверяет его роль.
func (s *Service) requireRole(ctx context.Context, userID string, role model.Role) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, fmt.Errorf("%w: %s role required", ErrForbidden, role)
	}
	return u, nil
}
