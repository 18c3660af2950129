package services

import (
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/platform/cache"
	"github.com/billingo/billingo-backend/internal/platform/config"
)

// NewServiceContainer constructs all services with their dependencies
// wired. The returned container is the single entry point the handlers
// and the CLI use.
func NewServiceContainer(
	cfg *config.Config,
	repos *portsrepo.RepositoryProvider,
	rateProvider portssvc.RateProvider,
	rateCache cache.RateCache,
	dispatcher portssvc.NotificationDispatcher,
) *portssvc.ServiceContainer {
	if dispatcher == nil {
		dispatcher = NewLogNotifier()
	}

	userSvc := NewUserService(repos.UserRepo)
	clientSvc := NewClientService(repos.ClientRepo, cfg)
	invoiceSvc := NewInvoiceService(repos.InvoiceRepo, repos.ClientRepo, repos.ActivityRepo, dispatcher)
	paymentSvc := NewPaymentService(repos.PaymentRepo, repos.InvoiceRepo, dispatcher)
	recurringSvc := NewRecurringInvoiceService(repos.RecurringRepo, repos.ClientRepo, dispatcher)
	currencySvc := NewCurrencyService(repos.ExchangeRateRepo, rateProvider, rateCache, cfg.RateCacheTTL)
	automationSvc := NewAutomationService(repos.InvoiceRepo, recurringSvc, cfg)

	return &portssvc.ServiceContainer{
		User:       userSvc,
		Client:     clientSvc,
		Invoice:    invoiceSvc,
		Payment:    paymentSvc,
		Recurring:  recurringSvc,
		Currency:   currencySvc,
		Automation: automationSvc,
	}
}
