package valuation

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"veritas/internal/rank"
	"veritas/pkg/domain"
)

type ValuationSuite struct {
	suite.Suite
}

func TestValuationSuite(t *testing.T) {
	suite.Run(t, new(ValuationSuite))
}

func (s *ValuationSuite) TestTierLadder() {
	s.Run("neutral bronze with no data", func() {
		s.InDelta(0.60, Value(rank.Identity{Tier: domain.TierBronze, IntegrityScore: 0.5}), 1e-9)
	})
	s.Run("verified silver with full data", func() {
		// 15 x 0.9 x 1.2 + 5 + 3
		s.InDelta(24.20, Value(rank.Identity{
			Tier:           domain.TierSilver,
			IntegrityScore: 0.9,
			Commune:        "Providencia",
			AgeRange:       "30-39",
			NationalIDHash: "abc",
		}), 1e-9)
	})
	s.Run("complete diamond at full integrity", func() {
		s.InDelta(608.00, Value(rank.Identity{
			Tier:           domain.TierDiamond,
			IntegrityScore: 1.0,
			Commune:        "Las Condes",
			AgeRange:       "40-49",
			NationalIDHash: "abc",
		}), 1e-9)
	})
}

func (s *ValuationSuite) TestDataBonuses() {
	base := rank.Identity{Tier: domain.TierBronze, IntegrityScore: 0.5}

	s.InDelta(0.60, Value(base), 1e-9)

	partial := base
	partial.Commune = "Valparaiso"
	s.InDelta(2.60, Value(partial), 1e-9)

	full := partial
	full.AgeRange = "20-29"
	s.InDelta(5.60, Value(full), 1e-9)

	withRegion := full
	withRegion.Region = "V"
	s.InDelta(6.60, Value(withRegion), 1e-9)
}

func (s *ValuationSuite) TestVerifiedBonus() {
	verified := rank.Identity{Tier: domain.TierSilver, IntegrityScore: 0.75, NationalIDHash: "abc"}
	s.InDelta(16.50, Value(verified), 1e-9)
}

func (s *ValuationSuite) TestTotalValueSkipsInactive() {
	active := rank.Identity{Tier: domain.TierSilver, IntegrityScore: 0.75, NationalIDHash: "abc", Active: true}
	inactive := active
	inactive.Active = false

	book := TotalValue([]rank.Identity{active, inactive})
	s.Equal(2, book.Citizens)
	s.InDelta(16.50, book.TotalUSD, 1e-9)
	s.InDelta(16.50, book.ByTier[domain.TierSilver], 1e-9)
	s.InDelta(8.25, book.AvgValue, 1e-9)
}

func (s *ValuationSuite) TestEmptyBook() {
	book := TotalValue(nil)
	s.Zero(book.TotalUSD)
	s.Zero(book.Citizens)
	s.Zero(book.AvgValue)
}
