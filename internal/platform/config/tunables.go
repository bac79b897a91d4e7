package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"veritas/pkg/domain"
)

// Tunables are the operator-adjustable knobs of the engine. Every value has
// a documented default; a deployed YAML document overrides them and is
// re-applied on file change without a restart.
//
// The illustrative constants from the product design are defaults here, not
// law: operators retune penalties and thresholds as adversaries adapt.
type Tunables struct {
	// Scanner penalties (subtracted from a baseline of 100, floor 0).
	PenaltyImpossibleSpeed int `yaml:"penalty_impossible_speed"`
	PenaltyFastSubmission  int `yaml:"penalty_fast_submission"`
	PenaltyBotSignature    int `yaml:"penalty_bot_signature"`
	PenaltyGenericIdentity int `yaml:"penalty_generic_identity"`
	PenaltyDatacenter      int `yaml:"penalty_datacenter"`

	// Scanner latency thresholds.
	ImpossibleFillSeconds float64 `yaml:"impossible_fill_seconds"`
	FastFillSeconds       float64 `yaml:"fast_fill_seconds"`

	// Classification boundaries. Posture shifts the displaced boundary by
	// PostureBoundaryShift (down in GREEN, up in RED).
	HumanBoundary        int `yaml:"human_boundary"`
	DisplacedBoundary    int `yaml:"displaced_boundary"`
	PostureBoundaryShift int `yaml:"posture_boundary_shift"`

	// Rank weights per tier.
	TierWeights map[domain.Tier]float64 `yaml:"tier_weights"`

	// Territorial bonus multiplier for local votes on jurisdictional targets.
	TerritorialBonus float64 `yaml:"territorial_bonus"`

	// Rank engine. Durations are decoded from strings like "720h" by
	// UnmarshalYAML below.
	BaselineIntegrity      float64       `yaml:"baseline_integrity"`
	VerifiedIntegrity      float64       `yaml:"verified_integrity"`
	ProfileFieldBonus      float64       `yaml:"profile_field_bonus"`
	GoldIntegrityFloor     float64       `yaml:"gold_integrity_floor"`
	GoldTenure             time.Duration `yaml:"-"`
	DemotionIntegrityFloor float64       `yaml:"demotion_integrity_floor"`
	ShadowBanThreshold     float64       `yaml:"shadow_ban_threshold"`

	// Ballot box.
	MaxVotesPerHour int `yaml:"max_votes_per_hour"`

	// Reputation aggregation.
	PriorStrength    float64       `yaml:"prior_strength"`
	PriorMean        float64       `yaml:"prior_mean"`
	VolumeSaturation int           `yaml:"volume_saturation"`
	DecayHalfLife    time.Duration `yaml:"-"`
	SweepInterval    time.Duration `yaml:"-"`

	// CIDR blocks treated as datacenter space by the fingerprint extractor.
	DatacenterCIDRs []string `yaml:"datacenter_cidrs"`
}

// Defaults returns the documented default tunables.
func Defaults() *Tunables {
	return &Tunables{
		PenaltyImpossibleSpeed: 50,
		PenaltyFastSubmission:  20,
		PenaltyBotSignature:    80,
		PenaltyGenericIdentity: 30,
		PenaltyDatacenter:      25,

		ImpossibleFillSeconds: 2.0,
		FastFillSeconds:       4.0,

		HumanBoundary:        70,
		DisplacedBoundary:    30,
		PostureBoundaryShift: 10,

		TierWeights: map[domain.Tier]float64{
			domain.TierBronze:  1.0,
			domain.TierSilver:  1.5,
			domain.TierGold:    2.5,
			domain.TierDiamond: 5.0,
		},

		TerritorialBonus: 1.5,

		BaselineIntegrity:      0.5,
		VerifiedIntegrity:      0.75,
		ProfileFieldBonus:      0.02,
		GoldIntegrityFloor:     0.9,
		GoldTenure:             30 * 24 * time.Hour,
		DemotionIntegrityFloor: 0.4,
		ShadowBanThreshold:     0.2,

		MaxVotesPerHour: 30,

		PriorStrength:    30,
		PriorMean:        3.0,
		VolumeSaturation: 100,
		DecayHalfLife:    90 * 24 * time.Hour,
		SweepInterval:    time.Hour,

		DatacenterCIDRs: []string{
			// Well-known cloud ranges; extended in deployment config.
			"3.0.0.0/8",     // AWS
			"13.64.0.0/11",  // Azure
			"34.64.0.0/10",  // GCP
			"104.16.0.0/13", // Cloudflare
			"159.65.0.0/16", // DigitalOcean
		},
	}
}

// UnmarshalYAML decodes the document, reading duration knobs from Go
// duration strings because yaml.v3 has no native time.Duration support.
func (t *Tunables) UnmarshalYAML(node *yaml.Node) error {
	type plain Tunables
	if err := node.Decode((*plain)(t)); err != nil {
		return err
	}

	var aux struct {
		GoldTenure    string `yaml:"gold_tenure"`
		DecayHalfLife string `yaml:"decay_half_life"`
		SweepInterval string `yaml:"sweep_interval"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	for _, field := range []struct {
		raw  string
		into *time.Duration
		name string
	}{
		{aux.GoldTenure, &t.GoldTenure, "gold_tenure"},
		{aux.DecayHalfLife, &t.DecayHalfLife, "decay_half_life"},
		{aux.SweepInterval, &t.SweepInterval, "sweep_interval"},
	} {
		if field.raw == "" {
			continue
		}
		d, err := time.ParseDuration(field.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.into = d
	}
	return nil
}

// Validate rejects tunables that would make the engine misbehave.
func (t *Tunables) Validate() error {
	if t.HumanBoundary <= t.DisplacedBoundary {
		return fmt.Errorf("human boundary %d must exceed displaced boundary %d", t.HumanBoundary, t.DisplacedBoundary)
	}
	if t.PriorStrength < 0 {
		return fmt.Errorf("prior strength must be non-negative")
	}
	if t.PriorMean < 0 || t.PriorMean > 5 {
		return fmt.Errorf("prior mean %.2f outside [0,5]", t.PriorMean)
	}
	if t.MaxVotesPerHour <= 0 {
		return fmt.Errorf("max votes per hour must be positive")
	}
	for tier, w := range t.TierWeights {
		if !tier.IsValid() {
			return fmt.Errorf("unknown tier %q in tier weights", tier)
		}
		if w <= 0 {
			return fmt.Errorf("tier weight for %s must be positive", tier)
		}
	}
	return nil
}

// Weight returns the vote-weight multiplier for a tier, defaulting to 1.0
// for tiers absent from the table.
func (t *Tunables) Weight(tier domain.Tier) float64 {
	if w, ok := t.TierWeights[tier]; ok {
		return w
	}
	return 1.0
}

// Store hands out the current tunables without locking. Readers on the hot
// path (every classification, every vote) load an immutable snapshot;
// reloads swap the pointer.
type Store struct {
	current atomic.Pointer[Tunables]
}

// NewStore creates a store seeded with the given tunables.
func NewStore(t *Tunables) *Store {
	s := &Store{}
	s.current.Store(t)
	return s
}

// Load returns the current tunables snapshot. Callers must not mutate it.
func (s *Store) Load() *Tunables {
	return s.current.Load()
}

// Replace validates and swaps in new tunables.
func (s *Store) Replace(t *Tunables) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.current.Store(t)
	return nil
}

// LoadFile parses a tunables YAML document layered over the defaults.
func LoadFile(path string) (*Tunables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tunables: %w", err)
	}
	t := Defaults()
	if err := yaml.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("parse tunables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validate tunables: %w", err)
	}
	return t, nil
}
