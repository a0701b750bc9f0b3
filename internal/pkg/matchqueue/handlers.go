package matchqueue

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
	"github.com/Legatia/Siphon-sub001/internal/pkg/battle"
	"github.com/Legatia/Siphon-sub001/internal/pkg/common"
)

type joinRequest struct {
	ShardID     string `json:"shard_id"`
	OwnerID     string `json:"owner_id"`
	Mode        string `json:"mode"`
	EloRating   int    `json:"elo_rating"`
	StakeAmount int64  `json:"stake_amount"`
}

func (s *MatchqueueService) PostJoin(c echo.Context) error {
	var req joinRequest

	err := c.Bind(&req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.ShardID == "" || req.OwnerID == "" || req.Mode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	keeperID := common.KeeperID(c)
	if keeperID == "" || keeperID != req.OwnerID {
		return echo.NewHTTPError(http.StatusForbidden, "caller identity doesn't match owner")
	}

	entry, err := s.Join(req.ShardID, req.OwnerID, arena.BattleMode(req.Mode), req.EloRating, req.StakeAmount)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyQueued):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, battle.ErrInvalidMode):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to join queue")
		}
	}

	return c.JSON(http.StatusCreated, entry)
}

// GetQueue runs a matching pass, then returns the caller's remaining
// entries. Matching on read keeps the queue moving without a scheduler,
// the same way round deadlines resolve lazily.
func (s *MatchqueueService) GetQueue(c echo.Context) error {
	_, err := s.AttemptMatches()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to attempt matches")
	}

	ownerID := c.QueryParam("ownerId")

	entries, err := s.Store.ListEntries()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list entries")
	}

	remaining := []arena.MatchmakingEntry{}

	for _, entry := range entries {
		if ownerID == "" || entry.OwnerID == ownerID {
			remaining = append(remaining, entry)
		}
	}

	return c.JSON(http.StatusOK, remaining)
}

type leaveRequest struct {
	EntryID string `json:"entry_id"`
}

func (s *MatchqueueService) DeleteEntry(c echo.Context) error {
	var req leaveRequest

	err := c.Bind(&req)
	if err != nil || req.EntryID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing entry_id")
	}

	removed, err := s.Leave(req.EntryID, common.KeeperID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to leave queue")
	}

	if !removed {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
