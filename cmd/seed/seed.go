package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderflow/internal/domain/repository"
)

const (
	seedUsers     = 5
	ordersPerUser = 4
	minAmountCent = 1000
	maxAmountCent = 100000
)

// Seeder fills an empty database with users and pending orders.
type Seeder struct {
	users  repository.UserRepository
	orders repository.OrderRepository
	cents  func(n int64) int64
}

func NewSeeder(users repository.UserRepository, orders repository.OrderRepository) *Seeder {
	return &Seeder{users: users, orders: orders, cents: rand.Int64N}
}

// Run creates users when none exist and four pending orders for every user.
// It returns the number of orders created.
func (s *Seeder) Run(ctx context.Context) (int, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	if count == 0 {
		for i := 1; i <= seedUsers; i++ {
			if _, err := s.users.Create(ctx, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i)); err != nil {
				return 0, fmt.Errorf("create user: %w", err)
			}
		}
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	created := 0
	for _, u := range users {
		for range ordersPerUser {
			if _, err := s.orders.Create(ctx, u.ID, s.amount()); err != nil {
				return created, fmt.Errorf("create order for user %d: %w", u.ID, err)
			}
			created++
		}
	}
	return created, nil
}

// amount returns a value between 10.00 and 1000.00 inclusive.
func (s *Seeder) amount() decimal.Decimal {
	return decimal.New(minAmountCent+s.cents(maxAmountCent-minAmountCent+1), -2)
}
