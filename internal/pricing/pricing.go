// Package pricing computes rental prices. Everything here is pure: no
// clock, no storage, no side effects.
package pricing

import "math"

// Discount bands by rental duration in whole days. A rental shorter than
// 4 days pays the full rate (the booking path already rejects anything
// under 3 days).
const (
	shortTermDays = 4
	midTermDays   = 11
	longTermDays  = 21
	shortTermRate = 0.05
	midTermRate   = 0.10
	longTermRate  = 0.15
)

// MillimesPerDinar is the gateway's smallest-unit conversion factor.
// The gateway accounts in millimes (1/1000 TND); the same factor is applied
// on initiation and on verification.
const MillimesPerDinar = 1000

// Total returns the rental price for days whole days at ratePerDay,
// with a single discount tier applied by duration, rounded to 0.01.
func Total(days int, ratePerDay float64) float64 {
	base := float64(days) * ratePerDay

	var discount float64
	switch {
	case days >= longTermDays:
		discount = longTermRate
	case days >= midTermDays:
		discount = midTermRate
	case days >= shortTermDays:
		discount = shortTermRate
	}

	return round2(base * (1 - discount))
}

// Deposit returns the up-front portion of total for a payment percentage,
// rounded to 0.01.
func Deposit(total float64, percentage int32) float64 {
	return round2(total * float64(percentage) / 100)
}

// Millimes converts a major-unit TND amount to the gateway's integer
// smallest unit.
func Millimes(amount float64) int64 {
	return int64(math.Round(amount * MillimesPerDinar))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
