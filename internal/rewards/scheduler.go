package rewards

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/senatai/backend/internal/metrics"
	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
)

type Options struct {
	// Responses per day that earn the full amount.
	FullRewardCount int
	// Count at which the linear decay bottoms out at FloorAmount.
	DecayUntilCount int
	FullAmount      float64
	FloorAmount     float64
	// Flat amount for everything past DecayUntilCount.
	MinimalAmount  float64
	InitialPolicap float64
}

func DefaultOptions() Options {
	return Options{
		FullRewardCount: 100,
		DecayUntilCount: 250,
		FullAmount:      1.0,
		FloorAmount:     0.1,
		MinimalAmount:   0.01,
		InitialPolicap:  25.0,
	}
}

// Scheduler converts answered questions into policap with diminishing
// returns, and owns the append of each graded response so the daily
// counter read and the reward computation stay in one transaction.
type Scheduler struct {
	db   *sqlite.Client
	opts Options
}

func NewScheduler(db *sqlite.Client, opts Options) *Scheduler {
	if opts.FullRewardCount == 0 {
		opts = DefaultOptions()
	}

	return &Scheduler{
		db:   db,
		opts: opts,
	}
}

// RewardFor returns the policap earned by the response at position
// dailyCount (zero-based: the first response of the day sees count 0).
func (s *Scheduler) RewardFor(dailyCount int) float64 {
	switch {
	case dailyCount < s.opts.FullRewardCount:
		return s.opts.FullAmount
	case dailyCount < s.opts.DecayUntilCount:
		span := float64(s.opts.DecayUntilCount - s.opts.FullRewardCount)
		progress := float64(dailyCount-s.opts.FullRewardCount) / span
		return s.opts.FullAmount - progress*(s.opts.FullAmount-s.opts.FloorAmount)
	default:
		return s.opts.MinimalAmount
	}
}

// RecordResponse appends a graded response to the ledger and settles its
// reward atomically. Returns the reward granted and the person's new
// policap balance.
func (s *Scheduler) RecordResponse(resp *models.Response) (float64, float64, error) {
	if resp.Score < 1 || resp.Score > 5 {
		return 0, 0, fmt.Errorf("score %d outside 1-5 scale", resp.Score)
	}

	if resp.ID == "" {
		resp.ID = uuid.New().String()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now()
	}

	// A person's first-ever response must open their account with the
	// starting balance, whichever entry point it arrives through.
	if err := s.EnsureAccount(resp.SenatairID); err != nil {
		return 0, 0, err
	}

	reward, balance, err := s.db.RecordResponse(resp, s.RewardFor)
	if err != nil {
		return 0, 0, err
	}

	metrics.ResponsesRecorded.Inc()
	metrics.RewardsGranted.Add(reward)

	return reward, balance, nil
}

// EnsureAccount creates the person's account with the starting balance
// if it does not exist yet.
func (s *Scheduler) EnsureAccount(senatairID string) error {
	return s.db.EnsureSenatair(senatairID, s.opts.InitialPolicap)
}
