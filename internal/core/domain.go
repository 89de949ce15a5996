package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

type (
	// Tier is a customer's relative value classification for one run.
	Tier string

	// Period is a (year, month) bucket used to group transactions temporally.
	Period struct {
		Year  int
		Month int // 1-12
	}

	// RawRecord is one row as handed over by a source loader, before any
	// coercion. Fields stay strings so malformed cells survive long enough
	// to be counted by the normalizer instead of failing the load.
	RawRecord struct {
		BusinessID string
		Category   string
		Quantity   string
		UnitValue  string
		Date       string
	}

	// Transaction is a validated, normalized sales row. TotalValue is always
	// recomputed from Quantity and UnitValue, never trusted from the source.
	Transaction struct {
		BusinessID string
		Category   string
		Quantity   float64
		UnitValue  float64
		TotalValue float64
		Date       time.Time
		Period     Period
	}

	// Profile holds the purchasing-behavior statistics for one business.
	// Created once per run from the cleaned table, never mutated after.
	Profile struct {
		BusinessID   string
		TotalSpend   float64
		Transactions int
		AvgValue     float64
		LastPurchase time.Time
		RecencyDays  int
	}

	// Segment pairs a behavior profile with its assigned tier.
	Segment struct {
		Profile Profile
		Tier    Tier
	}
)

var (
	ErrEmptyBusinessID = errors.New("empty business id")
	ErrInvalidDate     = errors.New("invalid transaction date")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidValue    = errors.New("invalid unit value")
)

// PeriodOf derives the period key from a transaction date.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Key returns the sortable "YYYY-MM" form of the period.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Before reports whether p is chronologically earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// IsZero reports whether the period carries no value.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// String renders the period in the "January 2024" form used by reports.
func (p Period) String() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d", time.Month(p.Month), p.Year)
}

// Validate checks the invariants a normalized transaction must hold.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.BusinessID) == "" {
		return ErrEmptyBusinessID
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if t.UnitValue < 0 {
		return ErrInvalidValue
	}
	return nil
}

// Valid reports whether the tier is one of the three known values.
func (t Tier) Valid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow:
		return true
	}
	return false
}
