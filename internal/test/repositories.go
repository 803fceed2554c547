package test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	mu    sync.Mutex
	Users []model.User
	Next  int64
	Err   error
}

// Create registers user unless the email is taken or stub has explicit error.
func (s *UserRepositoryStub) Create(_ context.Context, name, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.Users {
		if u.Email == email {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	s.Next++
	user := model.User{ID: s.Next, Name: name, Email: email, CreatedAt: time.Now()}
	s.Users = append(s.Users, user)
	return &user, nil
}

// Count returns number of stored users.
func (s *UserRepositoryStub) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.Users)), nil
}

// List returns stored users.
func (s *UserRepositoryStub) List(context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]model.User(nil), s.Users...), nil
}

// OrderRepositoryStub keeps orders in memory and applies transitions with the
// same compare-and-set semantics as the database.
type OrderRepositoryStub struct {
	mu     sync.Mutex
	Orders map[int64]*model.Order
	Names  map[int64]string
	next   int64

	// Err is returned by every call when set; the Fn fields override single operations.
	Err             error
	ApplyFn         func(context.Context, int64, model.Transition) (*model.Order, error)
	RecordPaymentFn func(context.Context, int64, repository.CreatePaymentFunc) (*model.Order, *model.CreatePaymentResult, error)
	ListFn          func(context.Context, model.OrderStatus) ([]model.Order, error)

	Applied []AppliedTransition
}

// AppliedTransition records a successful ApplyTransition call.
type AppliedTransition struct {
	OrderID int64
	From    model.OrderStatus
	To      model.OrderStatus
}

// NewOrderRepositoryStub creates a stub seeded with orders.
func NewOrderRepositoryStub(orders ...model.Order) *OrderRepositoryStub {
	s := &OrderRepositoryStub{Orders: map[int64]*model.Order{}, Names: map[int64]string{}}
	for _, o := range orders {
		s.Put(o)
	}
	return s
}

// Put stores a copy of o, assigning an id when missing.
func (s *OrderRepositoryStub) Put(o model.Order) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Orders == nil {
		s.Orders = map[int64]*model.Order{}
	}
	if o.ID == 0 {
		s.next++
		o.ID = s.next
	} else if o.ID > s.next {
		s.next = o.ID
	}
	if o.Status == "" {
		o.Status = model.OrderStatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Unix(o.ID, 0)
	}
	s.Orders[o.ID] = &o
	return cloneOrder(&o)
}

// Order returns a copy of the stored order.
func (s *OrderRepositoryStub) Order(id int64) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.Orders[id]; ok {
		return cloneOrder(o)
	}
	return nil
}

func (s *OrderRepositoryStub) Create(_ context.Context, userID int64, amount decimal.Decimal) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Put(model.Order{UserID: userID, Amount: amount, Status: model.OrderStatusPending}), nil
}

func (s *OrderRepositoryStub) GetByID(_ context.Context, id int64) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if o := s.Order(id); o != nil {
		return o, nil
	}
	return nil, domainErrors.ErrNotFound
}

func (s *OrderRepositoryStub) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, status)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.Orders {
		if o.Status == status {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *OrderRepositoryStub) ApplyTransition(ctx context.Context, id int64, t model.Transition) (*model.Order, error) {
	if s.ApplyFn != nil {
		return s.ApplyFn(ctx, id, t)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if !t.Allows(o.Status) {
		return nil, &domainErrors.TransitionError{OrderID: id, From: string(o.Status), To: string(t.To)}
	}
	from := o.Status
	o.Apply(t)
	s.Applied = append(s.Applied, AppliedTransition{OrderID: id, From: from, To: t.To})
	return cloneOrder(o), nil
}

func (s *OrderRepositoryStub) RecordPayment(ctx context.Context, id int64, create repository.CreatePaymentFunc) (*model.Order, *model.CreatePaymentResult, error) {
	if s.RecordPaymentFn != nil {
		return s.RecordPaymentFn(ctx, id, create)
	}
	if s.Err != nil {
		return nil, nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		return nil, nil, domainErrors.ErrNotFound
	}
	if o.HasPaymentCreated() {
		return cloneOrder(o), nil, domainErrors.ErrPaymentAlreadyCreated
	}
	if !o.CanBeProcessed() {
		return nil, nil, &domainErrors.TransitionError{OrderID: id, From: string(o.Status), To: string(model.PaymentStatusCreated)}
	}
	res, err := create(ctx, cloneOrder(o))
	if err != nil {
		return nil, nil, err
	}
	if !res.Success {
		return nil, res, fmt.Errorf("%w: %s", domainErrors.ErrPaymentNotCreated, res.Error)
	}
	gateway, paymentID, status := res.Gateway, res.GatewayOrderID, model.PaymentStatusCreated
	o.PaymentGateway = &gateway
	o.PaymentID = &paymentID
	o.PaymentStatus = &status
	return cloneOrder(o), res, nil
}

func (s *OrderRepositoryStub) CountByStatus(context.Context) (map[model.OrderStatus]int64, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[model.OrderStatus]int64{}
	for _, o := range s.Orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (s *OrderRepositoryStub) Recent(_ context.Context, limit int) ([]model.RecentOrder, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RecentOrder, 0, len(s.Orders))
	for _, o := range s.Orders {
		out = append(out, model.RecentOrder{Order: *cloneOrder(o), UserName: s.Names[o.UserID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *OrderRepositoryStub) Totals(context.Context) (*model.OrderTotals, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := &model.OrderTotals{}
	for _, o := range s.Orders {
		totals.Count++
		totals.TotalAmount = totals.TotalAmount.Add(o.Amount)
	}
	if totals.Count > 0 {
		totals.AvgAmount = totals.TotalAmount.Div(decimal.NewFromInt(totals.Count)).Round(2)
	}
	return totals, nil
}

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	return &c
}
