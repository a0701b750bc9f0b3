package matchqueue

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
	"github.com/Legatia/Siphon-sub001/internal/pkg/battle"
	"github.com/Legatia/Siphon-sub001/internal/pkg/common"
)

var ErrAlreadyQueued = errors.New("shard already has an open entry in this mode")

// windowStepInterval is how long an entry waits before its ELO window
// widens by one step.
const windowStepInterval = 30 * time.Second

type MatchqueueService struct {
	Store arena.Store

	BaseWindow int
	WindowStep int
	WindowCap  int
}

func NewMatchqueueService(i do.Injector) (*MatchqueueService, error) {
	store, err := do.Invoke[arena.Store](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	result := &MatchqueueService{
		Store: store,

		BaseWindow: do.MustInvokeNamed[int](i, "elo-base-window"),
		WindowStep: do.MustInvokeNamed[int](i, "elo-window-step"),
		WindowCap:  do.MustInvokeNamed[int](i, "elo-window-cap"),
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(func(e *echo.Echo) {
		apiGroup := e.Group("/api")

		queueGroup := apiGroup.Group("/arena/queue")

		queueGroup.POST("", result.PostJoin)
		queueGroup.GET("", result.GetQueue)
		queueGroup.DELETE("", result.DeleteEntry)
	})

	return result, nil
}

// Join adds a shard to the queue. A shard may wait in several modes at
// once but only once per mode; a duplicate join is a conflict, not a
// second entry. The store enforces the uniqueness inside the insert
// transaction, so two racing joins can't both get an entry.
func (s *MatchqueueService) Join(shardID, ownerID string, mode arena.BattleMode, eloRating int, stakeAmount int64) (*arena.MatchmakingEntry, error) {
	if !arena.ValidMode(mode) {
		return nil, battle.ErrInvalidMode
	}

	entryID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate entry ID: %w", err)
	}

	if eloRating == 0 {
		eloRating = arena.DefaultEloRating
	}

	entry := arena.MatchmakingEntry{
		ID:          entryID.String(),
		ShardID:     shardID,
		OwnerID:     ownerID,
		Mode:        mode,
		EloRating:   eloRating,
		StakeAmount: stakeAmount,
		JoinedAt:    time.Now(),
	}

	err = s.Store.PutEntry(entry)
	if err != nil {
		if errors.Is(err, arena.ErrDuplicateEntry) {
			return nil, ErrAlreadyQueued
		}

		return nil, fmt.Errorf("failed to store entry: %w", err)
	}

	return &entry, nil
}

// Leave removes an entry iff the caller owns it. A missing or foreign
// entry reports false rather than an error.
func (s *MatchqueueService) Leave(entryID, callerOwnerID string) (bool, error) {
	entry, err := s.Store.GetEntry(entryID)
	if err != nil {
		return false, fmt.Errorf("failed to load entry: %w", err)
	}

	if entry == nil || entry.OwnerID != callerOwnerID {
		return false, nil
	}

	return s.Store.DeleteEntry(entryID)
}

// Window is the maximum ELO difference an entry tolerates: it starts at
// the base window and widens by a step per 30 seconds waited, capped.
func (s *MatchqueueService) Window(entry arena.MatchmakingEntry, now time.Time) int {
	steps := int(now.Sub(entry.JoinedAt) / windowStepInterval)
	if steps < 0 {
		steps = 0
	}

	window := s.BaseWindow + steps*s.WindowStep
	if window > s.WindowCap {
		window = s.WindowCap
	}

	return window
}

// AttemptMatches pairs compatible entries per mode, oldest first. Equal
// declared stake is required; a stake mismatch is simply not matchable.
// Ties in wait time break by entry id, so repeated runs over the same
// queue pair identically. Idempotent: with no new entries a second call
// is a no-op.
func (s *MatchqueueService) AttemptMatches() ([]arena.Battle, error) {
	entries, err := s.Store.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	byMode := map[arena.BattleMode][]arena.MatchmakingEntry{}
	for _, entry := range entries {
		byMode[entry.Mode] = append(byMode[entry.Mode], entry)
	}

	modes := make([]arena.BattleMode, 0, len(byMode))
	for mode := range byMode {
		modes = append(modes, mode)
	}

	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })

	now := time.Now()
	battles := []arena.Battle{}

	for _, mode := range modes {
		pool := byMode[mode]

		sort.Slice(pool, func(i, j int) bool {
			if !pool[i].JoinedAt.Equal(pool[j].JoinedAt) {
				return pool[i].JoinedAt.Before(pool[j].JoinedAt)
			}

			return pool[i].ID < pool[j].ID
		})

		matched := map[string]bool{}

		for i, older := range pool {
			if matched[older.ID] {
				continue
			}

			window := s.Window(older, now)

			for _, candidate := range pool[i+1:] {
				if matched[candidate.ID] {
					continue
				}

				// A shard never battles itself. Duplicate rows shouldn't
				// exist, but a leftover one must not wedge the whole pass.
				if candidate.ShardID == older.ShardID {
					continue
				}

				if candidate.StakeAmount != older.StakeAmount {
					continue
				}

				if absInt(candidate.EloRating-older.EloRating) > window {
					continue
				}

				paired, err := s.pair(older, candidate)
				if err != nil {
					if errors.Is(err, arena.ErrEntryConsumed) {
						// Lost the race to a concurrent matcher; move on.
						break
					}

					return nil, err
				}

				matched[older.ID] = true
				matched[candidate.ID] = true
				battles = append(battles, *paired)

				break
			}
		}
	}

	return battles, nil
}

// pair turns two queue entries into an active battle, removing both
// entries and inserting the battle in one store transaction.
func (s *MatchqueueService) pair(older, newer arena.MatchmakingEntry) (*arena.Battle, error) {
	challenger := arena.ParticipantSide{
		ShardID:   older.ShardID,
		KeeperID:  older.OwnerID,
		EloRating: older.EloRating,
	}

	defender := arena.ParticipantSide{
		ShardID:   newer.ShardID,
		KeeperID:  newer.OwnerID,
		EloRating: newer.EloRating,
	}

	paired, err := battle.BuildBattle(challenger, defender, older.Mode, older.StakeAmount, "")
	if err != nil {
		return nil, fmt.Errorf("failed to build battle: %w", err)
	}

	err = s.Store.ConsumeEntries(older.ID, newer.ID, paired)
	if err != nil {
		return nil, err
	}

	return &paired, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
