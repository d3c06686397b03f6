package providers

import (
	"context"
	"errors"

	"github.com/open-sspm/open-cbom/internal/auth"
	"github.com/open-sspm/open-cbom/internal/store"
)

type UserReader interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
}

type PasswordProvider struct {
	Users UserReader
}

func NewPasswordProvider(users UserReader) *PasswordProvider {
	return &PasswordProvider{Users: users}
}

var _ Provider = (*PasswordProvider)(nil)

func (p *PasswordProvider) Name() string {
	return auth.MethodPassword
}

func (p *PasswordProvider) Authenticate(ctx context.Context, email, password string) (auth.Principal, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	user, err := p.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			auth.CompareDummy(password)
			return auth.Principal{}, auth.ErrInvalidCredentials
		}
		return auth.Principal{}, err
	}
	if !user.IsActive {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return auth.Principal{}, err
	}
	if !match {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	return auth.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Method: auth.MethodPassword,
	}, nil
}
