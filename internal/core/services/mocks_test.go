package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock UserRepository ---
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// --- Mock ClientRepository ---
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindClientByID(ctx context.Context, userID, clientID string) (*domain.Client, error) {
	args := m.Called(ctx, userID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientRepository) ListClients(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Client, *string, error) {
	args := m.Called(ctx, userID, limit, nextToken)
	var clients []domain.Client
	if args.Get(0) != nil {
		clients = args.Get(0).([]domain.Client)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return clients, token, args.Error(2)
}

func (m *MockClientRepository) SaveClient(ctx context.Context, client domain.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) UpdateClient(ctx context.Context, client domain.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) DeleteClient(ctx context.Context, userID, clientID string) error {
	args := m.Called(ctx, userID, clientID)
	return args.Error(0)
}

// --- Mock InvoiceRepository ---
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindInvoiceByID(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, userID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindInvoiceItems(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InvoiceItem), args.Error(1)
}

func (m *MockInvoiceRepository) ListInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	args := m.Called(ctx, userID, limit, nextToken)
	var invoices []domain.Invoice
	if args.Get(0) != nil {
		invoices = args.Get(0).([]domain.Invoice)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return invoices, token, args.Error(2)
}

func (m *MockInvoiceRepository) ListInvoicesChunk(ctx context.Context, afterInvoiceID string, chunkSize int) ([]domain.Invoice, error) {
	args := m.Called(ctx, afterInvoiceID, chunkSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListOverdueCandidates(ctx context.Context, now time.Time, limit int, userID *string) ([]domain.Invoice, error) {
	args := m.Called(ctx, now, limit, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListReminderCandidates(ctx context.Context, params portsrepo.ReminderCandidateParams) ([]domain.Invoice, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) CreateInvoice(ctx context.Context, invoice *domain.Invoice, items []domain.InvoiceItem, activity domain.InvoiceActivity) error {
	args := m.Called(ctx, invoice, items, activity)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdateInvoiceWithItems(ctx context.Context, invoice domain.Invoice, items []domain.InvoiceItem, activity domain.InvoiceActivity) error {
	args := m.Called(ctx, invoice, items, activity)
	return args.Error(0)
}

func (m *MockInvoiceRepository) DeleteInvoice(ctx context.Context, userID, invoiceID string) error {
	args := m.Called(ctx, userID, invoiceID)
	return args.Error(0)
}

func (m *MockInvoiceRepository) TransitionStatus(ctx context.Context, invoiceID string, from []domain.InvoiceStatus, to domain.InvoiceStatus, paidAt *time.Time, activity domain.InvoiceActivity) (bool, error) {
	args := m.Called(ctx, invoiceID, from, to, paidAt, activity)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) MarkOverdueIfStillDue(ctx context.Context, invoiceID string, now time.Time, activity domain.InvoiceActivity) (bool, error) {
	args := m.Called(ctx, invoiceID, now, activity)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) AppendReminderIfAbsent(ctx context.Context, invoiceID string, action domain.ActivityAction, cooldown time.Duration, activity domain.InvoiceActivity) (bool, error) {
	args := m.Called(ctx, invoiceID, action, cooldown, activity)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) UpdateInvoiceTotals(ctx context.Context, invoiceID string, subTotal, tax, discount, total decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, invoiceID, subTotal, tax, discount, total, updatedBy, updatedAt)
	return args.Error(0)
}

// --- Mock PaymentRepository ---
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) ListPaymentsByInvoice(ctx context.Context, invoiceID string) ([]domain.Payment, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumPaymentsForInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) RecordPayment(ctx context.Context, payment domain.Payment, activity domain.InvoiceActivity) (bool, error) {
	args := m.Called(ctx, payment, activity)
	return args.Bool(0), args.Error(1)
}

// --- Mock RecurringInvoiceRepository ---
type MockRecurringRepository struct {
	mock.Mock
}

func (m *MockRecurringRepository) FindRecurringInvoiceByID(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error) {
	args := m.Called(ctx, userID, recurringID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecurringInvoice), args.Error(1)
}

func (m *MockRecurringRepository) ListRecurringInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.RecurringInvoice, *string, error) {
	args := m.Called(ctx, userID, limit, nextToken)
	var list []domain.RecurringInvoice
	if args.Get(0) != nil {
		list = args.Get(0).([]domain.RecurringInvoice)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return list, token, args.Error(2)
}

func (m *MockRecurringRepository) ListDueTemplates(ctx context.Context, now time.Time, limit int, userID *string) ([]domain.RecurringInvoice, error) {
	args := m.Called(ctx, now, limit, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecurringInvoice), args.Error(1)
}

func (m *MockRecurringRepository) SaveRecurringInvoice(ctx context.Context, recurring domain.RecurringInvoice) error {
	args := m.Called(ctx, recurring)
	return args.Error(0)
}

func (m *MockRecurringRepository) UpdateRecurringInvoice(ctx context.Context, recurring domain.RecurringInvoice) error {
	args := m.Called(ctx, recurring)
	return args.Error(0)
}

func (m *MockRecurringRepository) UpdateRecurringStatus(ctx context.Context, userID, recurringID string, from []domain.RecurringStatus, to domain.RecurringStatus, updatedBy string, updatedAt time.Time) (bool, error) {
	args := m.Called(ctx, userID, recurringID, from, to, updatedBy, updatedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecurringRepository) GenerateInvoice(ctx context.Context, template domain.RecurringInvoice, invoice *domain.Invoice, activity domain.InvoiceActivity, lastRun, nextRun time.Time) (bool, error) {
	args := m.Called(ctx, template, invoice, activity, lastRun, nextRun)
	return args.Bool(0), args.Error(1)
}

// --- Mock ActivityRepository ---
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) ListActivitiesByInvoice(ctx context.Context, invoiceID string, limit int) ([]domain.InvoiceActivity, error) {
	args := m.Called(ctx, invoiceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InvoiceActivity), args.Error(1)
}

func (m *MockActivityRepository) HasActivitySince(ctx context.Context, invoiceID string, action domain.ActivityAction, since time.Time) (bool, error) {
	args := m.Called(ctx, invoiceID, action, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockActivityRepository) AppendActivity(ctx context.Context, activity domain.InvoiceActivity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

// --- Mock ExchangeRateRepository ---
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) FindRateOnOrBefore(ctx context.Context, fromCurrencyCode, toCurrencyCode string, asOf time.Time) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, fromCurrencyCode, toCurrencyCode, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

// --- Mock RateProvider ---
type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) FetchRates(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, baseCurrency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

// noopRateCache never hits; used where caching is irrelevant to the test.
type noopRateCache struct{}

func (noopRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	return decimal.Decimal{}, false
}
func (noopRateCache) Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) {}

// memRateCache is a map-backed cache for tests that exercise cache hits.
type memRateCache struct {
	mu    sync.Mutex
	rates map[string]decimal.Decimal
}

func newMemRateCache() *memRateCache {
	return &memRateCache{rates: make(map[string]decimal.Decimal)}
}

func (c *memRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rate, ok := c.rates[key]
	return rate, ok
}

func (c *memRateCache) Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[key] = rate
}

// capturingDispatcher records dispatched events for assertions.
type capturingDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (d *capturingDispatcher) Dispatch(ctx context.Context, event domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *capturingDispatcher) Events() []domain.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Event, len(d.events))
	copy(out, d.events)
	return out
}
