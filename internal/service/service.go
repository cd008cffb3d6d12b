package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"nexuserp/backend/internal/audit"
	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/insight"
	"nexuserp/backend/internal/metrics"
	"nexuserp/backend/internal/store"
	"nexuserp/backend/internal/xid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no active session")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrItemNotFound       = errors.New("inventory item not found")
	ErrSaleNotFound       = errors.New("sale not found")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrInvalidInventory   = errors.New("invalid inventory item")
	ErrInvalidEmployee    = errors.New("invalid employee record")
	ErrInvalidExpense     = errors.New("invalid expense")
	ErrInvalidSettings    = errors.New("invalid settings")
	ErrInvalidScan        = errors.New("scan code required")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is the only way business state is read or written. Every mutation
// loads the full state, applies one change, optionally records an audit
// entry, saves the full state and returns it.
type Service struct {
	mu          sync.Mutex
	repo        store.Repository
	insights    *insight.Engine
	credentials *credentialTable
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(repo store.Repository, insights *insight.Engine, opts ...Option) *Service {
	if insights == nil {
		insights = insight.NewEngine(nil, nil, 0, 0)
	}

	s := &Service{
		repo:        repo,
		insights:    insights,
		credentials: defaultCredentials,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current business state, seeding it on first access.
func (s *Service) State(ctx context.Context) (domain.BusinessState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.repo.Load(ctx)
	if err != nil {
		return domain.BusinessState{}, fmt.Errorf("load state: %w", err)
	}
	return state, nil
}

// Authenticate checks the fixed credential table and opens a session. On
// failure it returns ErrInvalidCredentials without touching stored state.
func (s *Service) Authenticate(ctx context.Context, email string, password string) (domain.BusinessState, error) {
	account, ok := s.credentials.match(email, password)
	if !ok {
		s.metrics.ObserveOperation("authenticate", ErrInvalidCredentials)
		s.logger.Info("login rejected", zap.String("email", email))
		return domain.BusinessState{}, ErrInvalidCredentials
	}

	return s.mutate(ctx, "authenticate", func(state *domain.BusinessState) (string, error) {
		state.User = &domain.UserSession{
			Email:        account.email,
			Role:         account.role,
			BusinessName: BusinessName,
			IsLoggedIn:   true,
		}
		return "User Logged In", nil
	})
}

// EndSession records the logout while the outgoing user is still
// attributable, then clears the session.
func (s *Service) EndSession(ctx context.Context) (domain.BusinessState, error) {
	return s.mutate(ctx, "end_session", func(state *domain.BusinessState) (string, error) {
		*state = audit.Record(*state, "User Logged Out", s.now())
		state.User = nil
		return "", nil
	})
}

// ReplaceInventory overwrites the whole inventory and records nothing;
// callers that need an audit entry (bulk import) record their own.
func (s *Service) ReplaceInventory(ctx context.Context, items []domain.InventoryItem) (domain.BusinessState, error) {
	if err := validateInventory(items); err != nil {
		return domain.BusinessState{}, err
	}
	return s.mutate(ctx, "replace_inventory", func(state *domain.BusinessState) (string, error) {
		state.Inventory = append([]domain.InventoryItem{}, items...)
		return "", nil
	})
}

// RecordSale prepends sale and replaces the inventory wholesale. Stock checks
// are the caller's job; Checkout is the validating entry point.
func (s *Service) RecordSale(ctx context.Context, sale domain.Sale, inventory []domain.InventoryItem) (domain.BusinessState, error) {
	if err := validateInventory(inventory); err != nil {
		return domain.BusinessState{}, err
	}
	return s.mutate(ctx, "record_sale", func(state *domain.BusinessState) (string, error) {
		return s.applySale(state, sale, inventory), nil
	})
}

func (s *Service) RecordExpense(ctx context.Context, expense domain.Expense) (domain.BusinessState, error) {
	if expense.Status == "" {
		expense.Status = domain.ExpenseStatusPending
	}
	if expense.Amount < 0 || expense.Category == "" {
		return domain.BusinessState{}, ErrInvalidExpense
	}
	if expense.Status != domain.ExpenseStatusPending && expense.Status != domain.ExpenseStatusProcessed {
		return domain.BusinessState{}, fmt.Errorf("%w: status %q", ErrInvalidExpense, expense.Status)
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.Date.IsZero() {
		expense.Date = s.now().UTC()
	}

	return s.mutate(ctx, "record_expense", func(state *domain.BusinessState) (string, error) {
		state.Expenses = append([]domain.Expense{expense}, state.Expenses...)
		return fmt.Sprintf("Expense Logged: $%s (%s)", formatNumber(expense.Amount), expense.Category), nil
	})
}

func (s *Service) ReplaceEmployees(ctx context.Context, employees []domain.Employee) (domain.BusinessState, error) {
	if err := validateEmployees(employees); err != nil {
		return domain.BusinessState{}, err
	}
	return s.mutate(ctx, "replace_employees", func(state *domain.BusinessState) (string, error) {
		state.Employees = append([]domain.Employee{}, employees...)
		return fmt.Sprintf("Personnel records updated: %d entries", len(employees)), nil
	})
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.BusinessState, error) {
	if settings.VATRate < 0 {
		return domain.BusinessState{}, fmt.Errorf("%w: vat rate must not be negative", ErrInvalidSettings)
	}
	return s.mutate(ctx, "update_settings", func(state *domain.BusinessState) (string, error) {
		state.Settings = settings
		return fmt.Sprintf("Settings Updated: VAT Rate %s%%", formatNumber(settings.VATRate)), nil
	})
}

// mutate runs one load-modify-audit-save cycle. fn edits a private copy of the
// state and returns the audit action to record, or "" for none. When fn fails
// nothing is saved. A request actor must own the stored session, otherwise
// the call fails with ErrNoSession.
func (s *Service) mutate(ctx context.Context, operation string, fn func(state *domain.BusinessState) (string, error)) (domain.BusinessState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Load(ctx)
	if err != nil {
		s.metrics.ObserveOperation(operation, err)
		return domain.BusinessState{}, fmt.Errorf("load state: %w", err)
	}

	if actor, ok := ActorFromContext(ctx); ok {
		if current.User == nil || current.User.Email != actor.Email {
			s.metrics.ObserveOperation(operation, ErrNoSession)
			return domain.BusinessState{}, ErrNoSession
		}
	}

	next := current.Clone()
	action, err := fn(&next)
	if err != nil {
		s.metrics.ObserveOperation(operation, err)
		return domain.BusinessState{}, err
	}
	if action != "" {
		next = audit.Record(next, action, s.now())
	}

	if err := s.repo.Save(ctx, next); err != nil {
		s.metrics.ObserveOperation(operation, err)
		s.logger.Error("failed to persist state", zap.String("operation", operation), zap.Error(err))
		return domain.BusinessState{}, fmt.Errorf("save state: %w", err)
	}

	s.metrics.ObserveOperation(operation, nil)
	s.logger.Debug("state mutated", zap.String("operation", operation), zap.String("audit", action))
	return next.Clone(), nil
}

func (s *Service) applySale(state *domain.BusinessState, sale domain.Sale, inventory []domain.InventoryItem) string {
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = s.now().UTC()
	}
	state.Sales = append([]domain.Sale{sale}, state.Sales...)
	state.Inventory = append([]domain.InventoryItem{}, inventory...)
	return fmt.Sprintf("Processed Sale: %s x %d", sale.ItemName, sale.QuantitySold)
}

func validateInventory(items []domain.InventoryItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: id required", ErrInvalidInventory)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidInventory, item.ID)
		}
		seen[item.ID] = struct{}{}
		if item.Quantity < 0 || item.Cost < 0 || item.Price < 0 {
			return fmt.Errorf("%w: %q has negative quantity or amount", ErrInvalidInventory, item.ID)
		}
	}
	return nil
}

func validateEmployees(employees []domain.Employee) error {
	for _, emp := range employees {
		if emp.ID == "" {
			return fmt.Errorf("%w: id required", ErrInvalidEmployee)
		}
		if emp.HourlyRate < 0 || emp.HoursWorked < 0 {
			return fmt.Errorf("%w: %q has negative rate or hours", ErrInvalidEmployee, emp.ID)
		}
	}
	return nil
}

// formatNumber prints amounts the way they were typed: 300, 120.5, 7.25.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
