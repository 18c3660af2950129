package repositories

// RepositoryProvider aggregates all repository facades so that service
// construction receives a single wired bundle.
type RepositoryProvider struct {
	UserRepo         UserRepositoryFacade
	ClientRepo       ClientRepositoryFacade
	InvoiceRepo      InvoiceRepositoryFacade
	PaymentRepo      PaymentRepositoryFacade
	RecurringRepo    RecurringInvoiceRepositoryFacade
	ActivityRepo     ActivityRepositoryFacade
	ExchangeRateRepo ExchangeRateRepositoryFacade
}
