package delivery

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/davakhana/internal/model"
)

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func day(d int) time.Time {
	// январь 2026: 9 пятница, 10 суббота, 12 понедельник
	return time.Date(2026, time.January, d, 11, 30, 0, 0, time.UTC)
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name        string
		now         time.Time
		city        string
		tier        model.DeliveryTier
		wantETA     string
		wantFee     int64
		wantDist    int
		wantSameDay bool
		wantLocal   bool
	}{
		{
			name:        "lucknow weekday same day",
			now:         day(12),
			city:        "Lucknow",
			tier:        model.TierStandard,
			wantETA:     SameDayETA,
			wantFee:     40,
			wantDist:    10,
			wantSameDay: true,
			wantLocal:   true,
		},
		{
			name:        "lucknow express weekday same day",
			now:         day(14),
			city:        "  LUCKNOW ",
			tier:        model.TierExpress,
			wantETA:     SameDayETA,
			wantFee:     50,
			wantDist:    10,
			wantSameDay: true,
			wantLocal:   true,
		},
		{
			name:      "lucknow saturday goes to monday",
			now:       day(10),
			city:      "lucknow",
			tier:      model.TierStandard,
			wantETA:   "Monday, 12 Jan",
			wantFee:   40,
			wantDist:  10,
			wantLocal: true,
		},
		{
			name:      "lucknow sunday goes to monday",
			now:       day(11),
			city:      "lucknow",
			tier:      model.TierExpress,
			wantETA:   "Monday, 12 Jan",
			wantFee:   50,
			wantDist:  10,
			wantLocal: true,
		},
		{
			name:     "unknown city express next business day",
			now:      day(12),
			city:     "Kanpur",
			tier:     model.TierExpress,
			wantETA:  "Tuesday, 13 Jan",
			wantFee:  50,
			wantDist: 80,
		},
		{
			name:     "unknown city express on friday lands on monday",
			now:      day(9),
			city:     "Kanpur",
			tier:     model.TierExpress,
			wantETA:  "Monday, 12 Jan",
			wantFee:  50,
			wantDist: 80,
		},
		{
			name:     "unknown city standard third business day",
			now:      day(12),
			city:     "Kanpur",
			tier:     model.TierStandard,
			wantETA:  "Thursday, 15 Jan",
			wantFee:  40,
			wantDist: 80,
		},
		{
			name:     "unknown city standard from friday skips weekend",
			now:      day(9),
			city:     "Agra",
			tier:     model.TierStandard,
			wantETA:  "Wednesday, 14 Jan",
			wantFee:  40,
			wantDist: 80,
		},
		{
			name:     "delhi standard fifth business day",
			now:      day(12),
			city:     "Delhi",
			tier:     model.TierStandard,
			wantETA:  "Monday, 19 Jan",
			wantFee:  40,
			wantDist: 500,
		},
		{
			name:     "delhi express fifth business day",
			now:      day(12),
			city:     "delhi",
			tier:     model.TierExpress,
			wantETA:  "Monday, 19 Jan",
			wantFee:  50,
			wantDist: 500,
		},
		{
			name:     "empty tier means standard",
			now:      day(12),
			city:     "Kanpur",
			tier:     "",
			wantETA:  "Thursday, 15 Jan",
			wantFee:  40,
			wantDist: 80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEstimator(DefaultPolicy(), fixedClock(tt.now))

			q, err := e.Estimate(tt.city, tt.tier)
			require.NoError(t, err)

			assert.Equal(t, tt.wantETA, q.ETA)
			assert.True(t, decimal.NewFromInt(tt.wantFee).Equal(q.Fee), "fee = %s", q.Fee)
			assert.Equal(t, tt.wantDist, q.DistanceKm)
			assert.Equal(t, tt.wantSameDay, q.SameDay)
			assert.Equal(t, tt.wantLocal, q.Local)
			assert.False(t, IsWeekend(q.ArrivalDate))
		})
	}
}

func TestEstimate_UnknownTier(t *testing.T) {
	e := NewEstimator(DefaultPolicy(), fixedClock(day(12)))

	_, err := e.Estimate("lucknow", "overnight")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTier))
}

func TestEstimate_DelhiIndependentOfTier(t *testing.T) {
	for d := 5; d <= 18; d++ {
		e := NewEstimator(DefaultPolicy(), fixedClock(day(d)))

		std, err := e.Estimate("delhi", model.TierStandard)
		require.NoError(t, err)
		exp, err := e.Estimate("delhi", model.TierExpress)
		require.NoError(t, err)

		assert.Equal(t, std.ETA, exp.ETA)
		assert.Equal(t, AddBusinessDays(day(d), 5).Format(etaLayout), std.ETA)
	}
}

func TestAddBusinessDays_NeverLandsOnWeekend(t *testing.T) {
	start := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 28; i++ {
		from := start.AddDate(0, 0, i)
		for n := 0; n <= 7; n++ {
			got := AddBusinessDays(from, n)
			assert.False(t, IsWeekend(got), "from %s +%d = %s", from.Weekday(), n, got.Weekday())
			assert.False(t, got.Before(from))
		}
	}
}

func TestAddBusinessDays_Counts(t *testing.T) {
	friday := day(9)

	assert.Equal(t, time.Monday, AddBusinessDays(friday, 1).Weekday())
	assert.Equal(t, 12, AddBusinessDays(friday, 1).Day())
	assert.Equal(t, 16, AddBusinessDays(friday, 5).Day())
	assert.Equal(t, 9, AddBusinessDays(friday, 0).Day())
	assert.Equal(t, 12, AddBusinessDays(day(10), 0).Day())
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("")
	require.NoError(t, err)
	assert.Equal(t, model.TierStandard, tier)

	tier, err = ParseTier(" Express ")
	require.NoError(t, err)
	assert.Equal(t, model.TierExpress, tier)

	_, err = ParseTier("drone")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestPolicy_DistanceKm(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 10, p.DistanceKm("Lucknow"))
	assert.Equal(t, 500, p.DistanceKm(" delhi"))
	assert.Equal(t, 80, p.DistanceKm("Varanasi"))
	assert.Equal(t, 80, p.DistanceKm(""))
}
