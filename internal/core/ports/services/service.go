package services

// ServiceContainer holds instances of all the application services. This is
// the main entry point for accessing service functionality and is used
// throughout the application, particularly in the handlers and the CLI.
type ServiceContainer struct {
	User       UserSvcFacade
	Client     ClientSvcFacade
	Invoice    InvoiceSvcFacade
	Payment    PaymentSvcFacade
	Recurring  RecurringSvcFacade
	Currency   CurrencySvcFacade
	Automation AutomationSvcFacade
}
