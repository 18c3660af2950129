package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/core/services"
	"github.com/billingo/billingo-backend/internal/platform/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

func sweepTestConfig() *config.Config {
	return &config.Config{
		SweepBatchSize:        200,
		DueSoonWindowDays:     7,
		ReminderCooldown:      7 * 24 * time.Hour,
		FollowUpCooldown:      14 * 24 * time.Hour,
		FollowUpAfterDays:     14,
		MicroSweepOverdueMax:  10,
		MicroSweepReminderMax: 5,
		MicroSweepGenerateMax: 3,
	}
}

// MockRecurringService stands in for the recurring service inside the
// micro-sweep.
type MockRecurringService struct {
	mock.Mock
	portssvc.RecurringSvcFacade
}

func (m *MockRecurringService) GenerateDueInvoices(ctx context.Context, limit int, userID *string) (domain.SweepResult, error) {
	args := m.Called(ctx, limit, userID)
	return args.Get(0).(domain.SweepResult), args.Error(1)
}

type AutomationServiceTestSuite struct {
	suite.Suite
	mockInvoiceRepo  *MockInvoiceRepository
	mockRecurringSvc *MockRecurringService
	service          portssvc.AutomationSvcFacade
}

func (suite *AutomationServiceTestSuite) SetupTest() {
	suite.mockInvoiceRepo = new(MockInvoiceRepository)
	suite.mockRecurringSvc = new(MockRecurringService)
	suite.service = services.NewAutomationService(suite.mockInvoiceRepo, suite.mockRecurringSvc, sweepTestConfig())
}

func (suite *AutomationServiceTestSuite) TestRunOverdueSweep_MarksAndSkips() {
	ctx := context.Background()
	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	candidates := []domain.Invoice{
		{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusSent, DueDate: due},
		{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusSent, DueDate: due},
		{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusSent, DueDate: due},
	}

	suite.mockInvoiceRepo.On("ListOverdueCandidates", ctx, mock.AnythingOfType("time.Time"), 200, (*string)(nil)).Return(candidates, nil).Once()

	// First marks, second lost the race (paid concurrently), third errors.
	suite.mockInvoiceRepo.On("MarkOverdueIfStillDue", ctx, candidates[0].InvoiceID, mock.AnythingOfType("time.Time"), mock.MatchedBy(func(a domain.InvoiceActivity) bool {
		return a.Action == domain.ActivityMarkedOverdue
	})).Return(true, nil).Once()
	suite.mockInvoiceRepo.On("MarkOverdueIfStillDue", ctx, candidates[1].InvoiceID, mock.AnythingOfType("time.Time"), mock.Anything).Return(false, nil).Once()
	suite.mockInvoiceRepo.On("MarkOverdueIfStillDue", ctx, candidates[2].InvoiceID, mock.AnythingOfType("time.Time"), mock.Anything).Return(false, assert.AnError).Once()

	result, err := suite.service.RunOverdueSweep(ctx, 200, nil)

	suite.Require().NoError(err)
	suite.Equal(1, result.Processed)
	suite.Equal(1, result.Skipped)
	suite.Equal(1, result.Errored)
	suite.Len(result.Items, 3)
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
}

func (suite *AutomationServiceTestSuite) TestRunOverdueSweep_SecondRunFindsNothing() {
	ctx := context.Background()

	suite.mockInvoiceRepo.On("ListOverdueCandidates", ctx, mock.AnythingOfType("time.Time"), 200, (*string)(nil)).Return([]domain.Invoice{}, nil).Once()

	result, err := suite.service.RunOverdueSweep(ctx, 200, nil)

	suite.Require().NoError(err)
	suite.Equal(0, result.Processed)
	suite.Empty(result.Items)
}

func (suite *AutomationServiceTestSuite) TestRunReminderSweep_AllThreeTiers() {
	ctx := context.Background()
	dueSoon := domain.Invoice{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusSent, DueDate: time.Now().UTC().AddDate(0, 0, 3)}
	overdue := domain.Invoice{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusOverdue, DueDate: time.Now().UTC().AddDate(0, 0, -3)}
	stale := domain.Invoice{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusOverdue, DueDate: time.Now().UTC().AddDate(0, 0, -30)}

	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.MatchedBy(matchTierAction(domain.ActivityDueSoonReminder))).Return([]domain.Invoice{dueSoon}, nil).Once()
	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.MatchedBy(matchTierAction(domain.ActivityOverdueReminder))).Return([]domain.Invoice{overdue}, nil).Once()
	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.MatchedBy(matchTierAction(domain.ActivityFollowUpReminder))).Return([]domain.Invoice{stale}, nil).Once()

	suite.mockInvoiceRepo.On("AppendReminderIfAbsent", ctx, dueSoon.InvoiceID, domain.ActivityDueSoonReminder, 7*24*time.Hour, mock.Anything).Return(true, nil).Once()
	suite.mockInvoiceRepo.On("AppendReminderIfAbsent", ctx, overdue.InvoiceID, domain.ActivityOverdueReminder, 7*24*time.Hour, mock.Anything).Return(true, nil).Once()
	suite.mockInvoiceRepo.On("AppendReminderIfAbsent", ctx, stale.InvoiceID, domain.ActivityFollowUpReminder, 14*24*time.Hour, mock.Anything).Return(true, nil).Once()

	result, err := suite.service.RunReminderSweep(ctx, 200, nil)

	suite.Require().NoError(err)
	suite.Equal(3, result.Processed)
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
}

func (suite *AutomationServiceTestSuite) TestRunReminderSweep_CooldownDeduplicates() {
	ctx := context.Background()
	overdue := domain.Invoice{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusOverdue, DueDate: time.Now().UTC().AddDate(0, 0, -3)}

	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.MatchedBy(matchTierAction(domain.ActivityDueSoonReminder))).Return([]domain.Invoice{}, nil).Once()
	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.MatchedBy(matchTierAction(domain.ActivityOverdueReminder))).Return([]domain.Invoice{overdue}, nil).Once()
	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.MatchedBy(matchTierAction(domain.ActivityFollowUpReminder))).Return([]domain.Invoice{}, nil).Once()

	// Another sweeper appended the same reminder between selection and lock.
	suite.mockInvoiceRepo.On("AppendReminderIfAbsent", ctx, overdue.InvoiceID, domain.ActivityOverdueReminder, 7*24*time.Hour, mock.Anything).Return(false, nil).Once()

	result, err := suite.service.RunReminderSweep(ctx, 200, nil)

	suite.Require().NoError(err)
	suite.Equal(0, result.Processed)
	suite.Equal(1, result.Skipped)
}

func (suite *AutomationServiceTestSuite) TestRunReminderSweep_BudgetSharedAcrossTiers() {
	ctx := context.Background()
	dueSoonA := domain.Invoice{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusSent, DueDate: time.Now().UTC().AddDate(0, 0, 2)}
	dueSoonB := domain.Invoice{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusSent, DueDate: time.Now().UTC().AddDate(0, 0, 4)}
	overdue := domain.Invoice{InvoiceID: uuid.NewString(), Status: domain.InvoiceStatusOverdue, DueDate: time.Now().UTC().AddDate(0, 0, -3)}

	// The first tier consumes two of the three budget slots, so the second
	// tier is asked for at most one candidate and the third never runs.
	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.MatchedBy(func(p portsrepo.ReminderCandidateParams) bool {
		return p.Action == domain.ActivityDueSoonReminder && p.Limit == 3
	})).Return([]domain.Invoice{dueSoonA, dueSoonB}, nil).Once()
	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.MatchedBy(func(p portsrepo.ReminderCandidateParams) bool {
		return p.Action == domain.ActivityOverdueReminder && p.Limit == 1
	})).Return([]domain.Invoice{overdue}, nil).Once()

	suite.mockInvoiceRepo.On("AppendReminderIfAbsent", ctx, dueSoonA.InvoiceID, domain.ActivityDueSoonReminder, 7*24*time.Hour, mock.Anything).Return(true, nil).Once()
	suite.mockInvoiceRepo.On("AppendReminderIfAbsent", ctx, dueSoonB.InvoiceID, domain.ActivityDueSoonReminder, 7*24*time.Hour, mock.Anything).Return(true, nil).Once()
	suite.mockInvoiceRepo.On("AppendReminderIfAbsent", ctx, overdue.InvoiceID, domain.ActivityOverdueReminder, 7*24*time.Hour, mock.Anything).Return(true, nil).Once()

	result, err := suite.service.RunReminderSweep(ctx, 3, nil)

	suite.Require().NoError(err)
	suite.Equal(3, result.Processed)
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
	suite.mockInvoiceRepo.AssertNumberOfCalls(suite.T(), "ListReminderCandidates", 2)
}

func (suite *AutomationServiceTestSuite) TestRunReminderSweep_TierWindows() {
	ctx := context.Background()
	var captured []portsrepo.ReminderCandidateParams

	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.AnythingOfType("repositories.ReminderCandidateParams")).
		Run(func(args mock.Arguments) {
			captured = append(captured, args.Get(1).(portsrepo.ReminderCandidateParams))
		}).Return([]domain.Invoice{}, nil).Times(3)

	_, err := suite.service.RunReminderSweep(ctx, 200, nil)

	suite.Require().NoError(err)
	suite.Require().Len(captured, 3)

	dueSoon := captured[0]
	suite.Equal(domain.ActivityDueSoonReminder, dueSoon.Action)
	suite.Equal([]domain.InvoiceStatus{domain.InvoiceStatusSent}, dueSoon.Statuses)
	suite.Require().NotNil(dueSoon.DueFrom)
	suite.Require().NotNil(dueSoon.DueUntil)
	suite.Equal(7*24*time.Hour, dueSoon.DueUntil.Sub(*dueSoon.DueFrom))

	overdueTier := captured[1]
	suite.Equal(domain.ActivityOverdueReminder, overdueTier.Action)
	suite.Equal([]domain.InvoiceStatus{domain.InvoiceStatusOverdue}, overdueTier.Statuses)
	suite.Nil(overdueTier.DueFrom)
	suite.Require().NotNil(overdueTier.DueUntil)

	followUp := captured[2]
	suite.Equal(domain.ActivityFollowUpReminder, followUp.Action)
	suite.Require().NotNil(followUp.DueUntil)
	// Follow-ups only target invoices at least two weeks past due.
	suite.True(followUp.DueUntil.Before(*overdueTier.DueUntil))
	suite.Equal(14*24*time.Hour, followUp.Cooldown)
}

func (suite *AutomationServiceTestSuite) TestRunMicroSweep_BoundedAndIsolated() {
	ctx := context.Background()
	userID := uuid.NewString()

	// Overdue pass fails outright; reminders and generation still run.
	suite.mockInvoiceRepo.On("ListOverdueCandidates", ctx, mock.AnythingOfType("time.Time"), 10, mock.MatchedBy(matchUserID(userID))).Return(nil, assert.AnError).Once()
	suite.mockInvoiceRepo.On("ListReminderCandidates", ctx, mock.MatchedBy(func(p portsrepo.ReminderCandidateParams) bool {
		return p.Limit == 5 && p.UserID != nil && *p.UserID == userID
	})).Return([]domain.Invoice{}, nil).Times(3)
	generated := domain.SweepResult{}
	generated.Add(uuid.NewString(), domain.SweepProcessed, "invoice")
	suite.mockRecurringSvc.On("GenerateDueInvoices", ctx, 3, mock.MatchedBy(matchUserID(userID))).Return(generated, nil).Once()

	result := suite.service.RunMicroSweep(ctx, userID)

	suite.Equal(0, result.Overdue.Processed)
	suite.Equal(0, result.Reminders.Processed)
	suite.Equal(1, result.Recurring.Processed)
	suite.mockRecurringSvc.AssertExpectations(suite.T())
}

func matchTierAction(action domain.ActivityAction) func(portsrepo.ReminderCandidateParams) bool {
	return func(p portsrepo.ReminderCandidateParams) bool {
		return p.Action == action
	}
}

func matchUserID(userID string) func(*string) bool {
	return func(p *string) bool {
		return p != nil && *p == userID
	}
}

func TestAutomationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AutomationServiceTestSuite))
}
