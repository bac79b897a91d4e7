// Package valuation prices identity records for the operator book. Pure
// arithmetic over rank state; nothing here touches storage or transport.
package valuation

import (
	"math"

	"veritas/internal/rank"
	"veritas/pkg/domain"
)

// Base USD value per tier.
var tierValues = map[domain.Tier]float64{
	domain.TierBronze:  1.00,
	domain.TierSilver:  15.00,
	domain.TierGold:    150.00,
	domain.TierDiamond: 500.00,
}

const (
	integrityMultiplier = 1.2

	fullDataBonus    = 5.0
	partialDataBonus = 2.0
	regionBonus      = 1.0
	verifiedBonus    = 3.0
)

// Value prices one identity:
//
//	base(tier) × integrity × 1.2 + dataBonus + verifiedBonus
//
// A neutral-integrity BRONZE with no data is worth $0.60; a complete
// DIAMOND at full integrity is worth $608.
func Value(i rank.Identity) float64 {
	base := tierValues[i.Tier]
	if base == 0 {
		base = tierValues[domain.TierBronze]
	}

	value := base * i.IntegrityScore * integrityMultiplier

	switch {
	case i.Commune != "" && i.AgeRange != "":
		value += fullDataBonus
	case i.Commune != "" || i.AgeRange != "":
		value += partialDataBonus
	}
	if i.Region != "" {
		value += regionBonus
	}
	if i.NationalIDHash != "" {
		value += verifiedBonus
	}

	return round2(value)
}

// Book is the platform-level rollup for the operator AUM view.
type Book struct {
	TotalUSD float64
	Citizens int
	AvgValue float64
	ByTier   map[domain.Tier]float64
}

// TotalValue rolls up the whole citizen book. Inactive identities carry no
// value; their records stay priced at zero until reactivation.
func TotalValue(identities []rank.Identity) Book {
	book := Book{ByTier: map[domain.Tier]float64{
		domain.TierBronze:  0,
		domain.TierSilver:  0,
		domain.TierGold:    0,
		domain.TierDiamond: 0,
	}}

	for _, i := range identities {
		book.Citizens++
		if !i.Active {
			continue
		}
		v := Value(i)
		book.TotalUSD += v
		book.ByTier[i.Tier] += v
	}

	if book.Citizens > 0 {
		book.AvgValue = round2(book.TotalUSD / float64(book.Citizens))
	}
	book.TotalUSD = round2(book.TotalUSD)
	return book
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
