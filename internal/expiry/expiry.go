// Package expiry computes derived expiration state for products.
//
// All computations use whole-day granularity: the time-of-day of both the
// expiration date and the reference instant is truncated before differencing,
// so a product expiring today is never reported as expired because of
// intra-day clock drift.
package expiry

import (
	"time"

	"github.com/RamanVasko/freshkeep/internal/model"
)

// NearExpirationDays is the inclusive day-count threshold for "near
// expiration". Shared by the client store, the server and any UI.
const NearExpirationDays = 3

// Classification is the derived expiration state of a single product.
type Classification struct {
	DaysUntilExpiration int
	IsExpired           bool
	IsNearExpiration    bool
}

// Classify derives expiration state for expirationDate as of now.
// It is pure: for a fixed now, repeated calls yield identical results.
func Classify(expirationDate model.Date, now time.Time) Classification {
	days := DaysUntil(expirationDate, now)
	return Classification{
		DaysUntilExpiration: days,
		IsExpired:           days < 0,
		IsNearExpiration:    days >= 0 && days <= NearExpirationDays,
	}
}

// DaysUntil returns the signed number of whole days from now's calendar date
// to expirationDate. Negative when the date has passed.
func DaysUntil(expirationDate model.Date, now time.Time) int {
	today := model.DateOf(now)
	return int(expirationDate.Sub(today.Time) / (24 * time.Hour))
}

// Apply stamps the derived fields onto p as of now. Used by the server when
// serializing responses and by the client for locally-held drafts only;
// server-returned products keep their wire values.
func Apply(p *model.Product, now time.Time) {
	c := Classify(p.ExpirationDate, now)
	p.DaysUntilExpiration = c.DaysUntilExpiration
	p.IsExpired = c.IsExpired
	p.IsNearExpiration = c.IsNearExpiration
}
