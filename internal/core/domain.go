package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"

	FundGeneral FundType = "일반재정"
	FundSpecial FundType = "특별재정"
)

type (
	// Direction tells whether money came in or went out.
	Direction string

	// FundType is the financial bucket a transaction belongs to.
	// General and special funds are tracked independently and also
	// rolled up into a combined total.
	FundType string

	// Money is a whole-unit KRW amount. The domain has no decimal
	// subdivision, so sums are exact integer arithmetic.
	Money struct {
		Won int64
	}

	// Date wraps a calendar date while keeping the raw text it was
	// parsed from. Imported data may carry unparseable dates; those
	// are preserved verbatim and never match any period.
	Date struct {
		raw string
		t   time.Time
		ok  bool
	}

	Transaction struct {
		ID           string
		Date         Date
		Direction    Direction
		FundType     FundType
		Category     string
		Counterparty string
		Amount       Money
		Note         string
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidFundType  = errors.New("invalid fund type")
	ErrNegativeAmount   = errors.New("negative amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty counterparty name")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return Date{raw: t.Format(dateLayout), t: t, ok: true}
}

// ParseDate parses an ISO date string. Malformed input still yields a
// Date (the raw text round-trips through persistence) but one that
// reports !Valid() and matches no period.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{raw: s}
	}
	return Date{raw: s, t: t, ok: true}
}

// Valid reports whether the date parsed to a real calendar day.
func (d Date) Valid() bool {
	return d.ok
}

// Time returns the parsed day. Only meaningful when Valid().
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) Year() int  { return d.t.Year() }
func (d Date) Month() int { return int(d.t.Month()) }
func (d Date) Day() int   { return d.t.Day() }

// String returns the original text for malformed dates and the
// ISO form otherwise.
func (d Date) String() string {
	return d.raw
}

func (d Direction) Valid() bool {
	return d == Income || d == Expense
}

func (ft FundType) Valid() bool {
	return ft == FundGeneral || ft == FundSpecial
}

func (m Money) Validate() error {
	if m.Won < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Add returns the exact integer sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Won: m.Won + o.Won}
}

// Sub returns m minus o. Derived figures such as balances may go
// negative even though stored amounts never do.
func (m Money) Sub(o Money) Money {
	return Money{Won: m.Won - o.Won}
}

func (tx Transaction) Validate() error {
	if !tx.Date.Valid() {
		return ErrInvalidDate
	}
	if !tx.Direction.Valid() {
		return ErrInvalidDirection
	}
	if !tx.FundType.Valid() {
		return ErrInvalidFundType
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(tx.Counterparty) == "" {
		return ErrEmptyName
	}
	return tx.Amount.Validate()
}
