package usage

import (
	"time"
)

const (
	periodLayout = "2006-01"
	dayLayout    = "2006-01-02"
)

// Period identifies a monthly billing period, formatted as "2006-01".
type Period string

// PeriodOf returns the billing period containing t (UTC).
func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format(periodLayout))
}

// Start returns the first instant of the period.
func (p Period) Start() (time.Time, error) {
	t, err := time.Parse(periodLayout, string(p))
	if err != nil {
		return time.Time{}, ErrInvalidPeriod
	}
	return t.UTC(), nil
}

// Next returns the period following p. Invalid periods return "".
func (p Period) Next() Period {
	start, err := p.Start()
	if err != nil {
		return ""
	}
	return PeriodOf(start.AddDate(0, 1, 0))
}

// Valid reports whether p is a well-formed period.
func (p Period) Valid() bool {
	_, err := p.Start()
	return err == nil
}

func (p Period) String() string {
	return string(p)
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return Day(a).Equal(Day(b))
}

func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatDay(t time.Time) string {
	return Day(t).Format(dayLayout)
}

// Record is the metering state of one user.
type Record struct {
	UserID        string    `json:"user_id"`
	MonthlyCount  int64     `json:"monthly_count"`
	DailyCount    int64     `json:"daily_count"`
	DailyAnchor   time.Time `json:"daily_anchor,omitzero"` // calendar day DailyCount applies to
	BillingPeriod Period    `json:"billing_period"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

// Effective returns the record as seen at now: if the daily anchor is not
// today, the daily count reads as zero. The receiver is not modified.
func (r Record) Effective(now time.Time) Record {
	if !sameDay(r.DailyAnchor, now) {
		r.DailyCount = 0
	}
	return r
}

func newRecord(userID string, now time.Time) Record {
	return Record{
		UserID:        userID,
		BillingPeriod: PeriodOf(now),
	}
}
