// Package delivery рассчитывает стоимость и ориентировочный срок доставки заказа.
package delivery

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/davakhana/internal/model"
)

// ErrUnknownTier возвращается для неизвестного тарифа доставки.
var ErrUnknownTier = errors.New("unknown delivery tier")

// SameDayETA выводится для доставки в день заказа.
const SameDayETA = "Same Day (Today)"

const etaLayout = "Monday, 2 Jan"

// Policy задаёт тарифы, расстояния и сроки доставки.
type Policy struct {
	StandardFee decimal.Decimal
	ExpressFee  decimal.Decimal

	// CityDistanceKm содержит условные расстояния до городов в нижнем регистре.
	CityDistanceKm    map[string]int
	DefaultDistanceKm int

	SameDayMaxKm  int
	RegionalMaxKm int

	ExpressDays  int
	StandardDays int
	LongHaulDays int
}

// DefaultPolicy возвращает единую политику доставки витрины.
func DefaultPolicy() Policy {
	return Policy{
		StandardFee: decimal.NewFromInt(40),
		ExpressFee:  decimal.NewFromInt(50),
		CityDistanceKm: map[string]int{
			"lucknow": 10,
			"delhi":   500,
		},
		DefaultDistanceKm: 80,
		SameDayMaxKm:      40,
		RegionalMaxKm:     150,
		ExpressDays:       1,
		StandardDays:      3,
		LongHaulDays:      5,
	}
}

// DistanceKm возвращает условное расстояние до города. Неизвестные города попадают в тариф по умолчанию.
func (p Policy) DistanceKm(city string) int {
	if d, ok := p.CityDistanceKm[normalizeCity(city)]; ok {
		return d
	}
	return p.DefaultDistanceKm
}

// Fee возвращает стоимость доставки для тарифа.
func (p Policy) Fee(tier model.DeliveryTier) (decimal.Decimal, error) {
	switch tier {
	case model.TierStandard:
		return p.StandardFee, nil
	case model.TierExpress:
		return p.ExpressFee, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
}

// ParseTier разбирает тариф доставки. Пустая строка означает стандартный тариф.
func ParseTier(s string) (model.DeliveryTier, error) {
	switch t := model.DeliveryTier(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return model.TierStandard, nil
	case model.TierStandard, model.TierExpress:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Quote содержит результат расчёта доставки.
type Quote struct {
	City        string             `json:"city"`
	Tier        model.DeliveryTier `json:"tier"`
	DistanceKm  int                `json:"distanceKm"`
	Fee         decimal.Decimal    `json:"fee"`
	ETA         string             `json:"eta"`
	ArrivalDate time.Time          `json:"arrivalDate"`
	SameDay     bool               `json:"sameDay"`
	Local       bool               `json:"local"`
}

// Estimator рассчитывает доставку по заданной политике.
type Estimator struct {
	policy Policy
	now    func() time.Time
}

// Option настраивает Estimator.
type Option func(*Estimator)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		e.now = now
	}
}

var istLocation = time.FixedZone("IST", 5*60*60+30*60)

// NewEstimator создаёт Estimator. По умолчанию время берётся в часовом поясе IST.
func NewEstimator(policy Policy, opts ...Option) *Estimator {
	e := &Estimator{
		policy: policy,
		now: func() time.Time {
			return time.Now().In(istLocation)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy возвращает действующую политику доставки.
func (e *Estimator) Policy() Policy {
	return e.policy
}

// Estimate рассчитывает стоимость, расстояние и срок доставки в город по тарифу.
func (e *Estimator) Estimate(city string, tier model.DeliveryTier) (Quote, error) {
	if tier == "" {
		tier = model.TierStandard
	}

	fee, err := e.policy.Fee(tier)
	if err != nil {
		return Quote{}, err
	}

	now := e.now()
	distance := e.policy.DistanceKm(city)

	q := Quote{
		City:       strings.TrimSpace(city),
		Tier:       tier,
		DistanceKm: distance,
		Fee:        fee,
	}

	var arrival time.Time
	switch {
	case distance <= e.policy.SameDayMaxKm:
		q.Local = true
		if IsWeekend(now) {
			arrival = AddBusinessDays(now, 1)
		} else {
			arrival = now
			q.SameDay = true
		}
	case distance <= e.policy.RegionalMaxKm:
		days := e.policy.StandardDays
		if tier == model.TierExpress {
			days = e.policy.ExpressDays
		}
		arrival = AddBusinessDays(now, days)
	default:
		arrival = AddBusinessDays(now, e.policy.LongHaulDays)
	}

	q.ArrivalDate = startOfDay(arrival)
	if q.SameDay {
		q.ETA = SameDayETA
	} else {
		q.ETA = arrival.Format(etaLayout)
	}

	return q, nil
}

// IsWeekend сообщает, приходится ли дата на субботу или воскресенье.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AddBusinessDays отсчитывает n рабочих дней вперёд, пропуская субботы и воскресенья.
// Результат никогда не попадает на выходной.
func AddBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if !IsWeekend(t) {
			n--
		}
	}
	for IsWeekend(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
