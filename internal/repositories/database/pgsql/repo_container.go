package pgsql

import (
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	activityRepo := newPgxActivityRepository(dbPool)
	userRepo := newPgxUserRepository(dbPool)
	clientRepo := newPgxClientRepository(dbPool)
	invoiceRepo := newPgxInvoiceRepository(dbPool)
	paymentRepo := newPgxPaymentRepository(dbPool)
	recurringRepo := newPgxRecurringInvoiceRepository(dbPool)
	exchangeRateRepo := newPgxExchangeRateRepository(dbPool)

	return portsrepo.RepositoryProvider{
		UserRepo:         userRepo,
		ClientRepo:       clientRepo,
		InvoiceRepo:      invoiceRepo,
		PaymentRepo:      paymentRepo,
		RecurringRepo:    recurringRepo,
		ActivityRepo:     activityRepo,
		ExchangeRateRepo: exchangeRateRepo,
	}
}
