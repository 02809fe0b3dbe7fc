package overage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Status is the billing state of a charge.
type Status string

const (
	StatusPending  Status = "pending"
	StatusInvoiced Status = "invoiced"
	StatusPaid     Status = "paid"
)

var statusRank = map[Status]int{
	StatusPending:  1,
	StatusInvoiced: 2,
	StatusPaid:     3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether next is strictly later than s.
func (s Status) CanTransitionTo(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	return ok && to > from
}

// ParseStatus converts a provider-supplied value.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Charge is one entry of the append-only overage log.
type Charge struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	TierID    string          `json:"tier_id"`
	UnitCount int64           `json:"unit_count"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  currency.Unit   `json:"-"`
	Date      time.Time       `json:"date"` // UTC calendar day
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Recorded reports whether c was written to the log. A skipped overage
// returns the zero Charge.
func (c Charge) Recorded() bool {
	return c.ID != uuid.Nil
}

// MarshalJSON writes Currency as its ISO 4217 code.
func (c Charge) MarshalJSON() ([]byte, error) {
	type plain Charge
	return json.Marshal(struct {
		plain
		Currency string `json:"currency"`
	}{plain: plain(c), Currency: c.Currency.String()})
}

// UnmarshalJSON reads Currency from its ISO 4217 code.
func (c *Charge) UnmarshalJSON(data []byte) error {
	type plain Charge
	aux := struct {
		*plain
		Currency string `json:"currency"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Currency == "" {
		return nil
	}
	unit, err := currency.ParseISO(aux.Currency)
	if err != nil {
		return err
	}
	c.Currency = unit
	return nil
}
