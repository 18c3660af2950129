package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextRunAfterMonthlyClamping(t *testing.T) {
	r := &RecurringInvoice{
		Frequency: FrequencyMonthly,
		StartDate: date(2025, time.January, 31),
	}

	// Jan 31 -> Feb 28 (2025 is not a leap year).
	first := r.NextRunAfter(r.StartDate)
	assert.Equal(t, date(2025, time.February, 28), first)

	// The anchor day (31) is preserved: Feb 28 -> Mar 31, not Mar 28.
	second := r.NextRunAfter(first)
	assert.Equal(t, date(2025, time.March, 31), second)

	third := r.NextRunAfter(second)
	assert.Equal(t, date(2025, time.April, 30), third)
}

func TestNextRunAfterLeapYear(t *testing.T) {
	r := &RecurringInvoice{
		Frequency: FrequencyMonthly,
		StartDate: date(2024, time.January, 31),
	}
	assert.Equal(t, date(2024, time.February, 29), r.NextRunAfter(r.StartDate))
}

func TestNextRunAfterQuarterlyAndYearly(t *testing.T) {
	q := &RecurringInvoice{
		Frequency: FrequencyQuarterly,
		StartDate: date(2025, time.November, 30),
	}
	// Nov 30 + 3 months -> Feb 28.
	assert.Equal(t, date(2026, time.February, 28), q.NextRunAfter(q.StartDate))

	y := &RecurringInvoice{
		Frequency: FrequencyYearly,
		StartDate: date(2024, time.February, 29),
	}
	// Feb 29 + 1 year -> Feb 28 of the non-leap year.
	assert.Equal(t, date(2025, time.February, 28), y.NextRunAfter(y.StartDate))
}

func TestShouldGenerate(t *testing.T) {
	now := date(2026, time.August, 30)

	r := &RecurringInvoice{Status: RecurringStatusActive, NextRunDate: now.AddDate(0, 0, -1)}
	assert.True(t, r.ShouldGenerate(now))

	r.NextRunDate = now
	assert.True(t, r.ShouldGenerate(now))

	r.NextRunDate = now.AddDate(0, 0, 1)
	assert.False(t, r.ShouldGenerate(now))

	paused := &RecurringInvoice{Status: RecurringStatusPaused, NextRunDate: now.AddDate(0, 0, -1)}
	assert.False(t, paused.ShouldGenerate(now))
}

func TestRecurringStatusTransitions(t *testing.T) {
	active := &RecurringInvoice{Status: RecurringStatusActive}
	assert.True(t, active.CanBePaused())
	assert.False(t, active.CanBeResumed())
	assert.True(t, active.CanBeCancelled())

	paused := &RecurringInvoice{Status: RecurringStatusPaused}
	assert.False(t, paused.CanBePaused())
	assert.True(t, paused.CanBeResumed())
	assert.True(t, paused.CanBeCancelled())

	cancelled := &RecurringInvoice{Status: RecurringStatusCancelled}
	assert.False(t, cancelled.CanBePaused())
	assert.False(t, cancelled.CanBeResumed())
	assert.False(t, cancelled.CanBeCancelled())
}

func TestParseRecurringFrequency(t *testing.T) {
	f, ok := ParseRecurringFrequency("QUARTERLY")
	require.True(t, ok)
	assert.Equal(t, FrequencyQuarterly, f)

	_, ok = ParseRecurringFrequency("WEEKLY")
	assert.False(t, ok)
}
