package expiry

import (
	"testing"
	"time"

	"github.com/RamanVasko/freshkeep/internal/model"
	"github.com/stretchr/testify/require"
)

func TestClassify_SameDayNotExpired(t *testing.T) {
	t.Parallel()

	// Late in the evening, product expires "today": still 0 days left.
	now := time.Date(2026, 3, 10, 23, 45, 0, 0, time.UTC)
	c := Classify(model.NewDate(2026, 3, 10), now)

	require.Equal(t, 0, c.DaysUntilExpiration)
	require.False(t, c.IsExpired)
	require.True(t, c.IsNearExpiration)
}

func TestClassify_Past(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)
	c := Classify(model.NewDate(2026, 3, 9), now)

	require.Equal(t, -1, c.DaysUntilExpiration)
	require.True(t, c.IsExpired)
	require.False(t, c.IsNearExpiration)
}

func TestClassify_ThresholdBoundary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	at := Classify(model.NewDate(2026, 3, 10+NearExpirationDays), now)
	require.Equal(t, NearExpirationDays, at.DaysUntilExpiration)
	require.True(t, at.IsNearExpiration)
	require.False(t, at.IsExpired)

	past := Classify(model.NewDate(2026, 3, 10+NearExpirationDays+1), now)
	require.False(t, past.IsNearExpiration)
	require.False(t, past.IsExpired)
}

func TestClassify_IdempotentForFixedNow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 1, 8, 15, 0, 0, time.UTC)
	dates := []model.Date{
		model.NewDate(2026, 6, 20),
		model.NewDate(2026, 7, 1),
		model.NewDate(2026, 7, 3),
		model.NewDate(2027, 1, 1),
	}
	for _, d := range dates {
		first := Classify(d, now)
		for i := 0; i < 3; i++ {
			require.Equal(t, first, Classify(d, now))
		}
	}
}

func TestClassify_IgnoresTimeOfDay(t *testing.T) {
	t.Parallel()

	exp := model.NewDate(2026, 3, 12)
	morning := Classify(exp, time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC))
	evening := Classify(exp, time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC))
	require.Equal(t, morning, evening)
	require.Equal(t, 2, morning.DaysUntilExpiration)
}

func TestApply(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	p := model.Product{ExpirationDate: model.NewDate(2026, 3, 8)}
	Apply(&p, now)

	require.Equal(t, -2, p.DaysUntilExpiration)
	require.True(t, p.IsExpired)
	require.False(t, p.IsNearExpiration)
}
