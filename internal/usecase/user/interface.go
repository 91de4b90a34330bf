package user

import "context"

// UserUsecase defines the interface for user registration operations.
type UserUsecase interface {
	Register(ctx context.Context, in RegisterRequest) (*RegisterResponse, error)
}

var _ UserUsecase = (*Usecase)(nil)
