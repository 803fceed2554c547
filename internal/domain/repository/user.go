package repository

import (
	"context"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// UserRepository describes persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, name, email string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]model.User, error)
}
