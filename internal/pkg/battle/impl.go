package battle

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
	"github.com/Legatia/Siphon-sub001/internal/pkg/common"
	"github.com/Legatia/Siphon-sub001/internal/pkg/settlement"
)

type BattleService struct {
	Lifecycle  *Lifecycle
	Settlement *settlement.SettlementService
}

func NewBattleService(i do.Injector) (*BattleService, error) {
	lifecycle, err := do.Invoke[*Lifecycle](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create battle lifecycle: %w", err)
	}

	settlementService, err := do.Invoke[*settlement.SettlementService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement service: %w", err)
	}

	result := &BattleService{
		Lifecycle:  lifecycle,
		Settlement: settlementService,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(func(e *echo.Echo) {
		apiGroup := e.Group("/api")

		battlesGroup := apiGroup.Group("/arena/battles")

		battlesGroup.POST("", result.CreateBattle)
		battlesGroup.GET("/:id", result.GetBattle)
		battlesGroup.PUT("/:id", result.SubmitResponse)
		battlesGroup.POST("/:id/settle", result.Settle)
	})

	return result, nil
}

type createBattleRequest struct {
	ChallengerShardID string `json:"challenger_shard_id"`
	DefenderShardID   string `json:"defender_shard_id"`
	DefenderKeeperID  string `json:"defender_keeper_id"`
	Mode              string `json:"mode"`
	StakeAmount       int64  `json:"stake_amount"`
	EscrowTxHash      string `json:"escrow_tx_hash"`
}

func (s *BattleService) CreateBattle(c echo.Context) error {
	keeperID := common.KeeperID(c)
	if keeperID == "" {
		return echo.NewHTTPError(http.StatusForbidden, "caller identity missing")
	}

	var req createBattleRequest

	err := c.Bind(&req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.ChallengerShardID == "" || req.DefenderShardID == "" || req.DefenderKeeperID == "" || req.Mode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	challenger := arena.ParticipantSide{ShardID: req.ChallengerShardID, KeeperID: keeperID}
	defender := arena.ParticipantSide{ShardID: req.DefenderShardID, KeeperID: req.DefenderKeeperID}

	battle, err := s.Lifecycle.Create(c.Request().Context(),
		challenger, defender, arena.BattleMode(req.Mode), req.StakeAmount, req.EscrowTxHash)
	if err != nil {
		return battleHTTPError(err)
	}

	return c.JSON(http.StatusCreated, battle)
}

func (s *BattleService) GetBattle(c echo.Context) error {
	battle, err := s.Lifecycle.LoadBattle(c.Request().Context(), c.Param("id"))
	if err != nil {
		return battleHTTPError(err)
	}

	return c.JSON(http.StatusOK, battle)
}

type submitResponseRequest struct {
	Round    int    `json:"round"`
	ShardID  string `json:"shard_id"`
	Response string `json:"response"`
	TimedOut bool   `json:"timed_out"`
}

func (s *BattleService) SubmitResponse(c echo.Context) error {
	keeperID := common.KeeperID(c)
	if keeperID == "" {
		return echo.NewHTTPError(http.StatusForbidden, "caller identity missing")
	}

	var req submitResponseRequest

	err := c.Bind(&req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Response == "" && !req.TimedOut {
		return echo.NewHTTPError(http.StatusBadRequest, "missing response")
	}

	battleID := c.Param("id")
	ctx := c.Request().Context()

	battle, _, err := s.Lifecycle.ReconcileExpired(ctx, battleID)
	if err != nil {
		return battleHTTPError(err)
	}

	side, ok := battle.SideOf(keeperID)
	if !ok || (req.ShardID != "" && req.ShardID != side.ShardID) {
		return echo.NewHTTPError(http.StatusForbidden, "caller is not a participant of this battle")
	}

	battle, err = s.Lifecycle.SubmitRoundResponse(ctx, battleID, keeperID, req.Round, req.Response, req.TimedOut)
	if err != nil {
		return battleHTTPError(err)
	}

	return c.JSON(http.StatusOK, battle)
}

func (s *BattleService) Settle(c echo.Context) error {
	battleID := c.Param("id")
	ctx := c.Request().Context()

	battle, _, err := s.Lifecycle.ReconcileExpired(ctx, battleID)
	if err != nil {
		return battleHTTPError(err)
	}

	if battle.Status != arena.StatusCompleted {
		_, err = s.Lifecycle.Finalize(battleID)
		if err != nil {
			return battleHTTPError(err)
		}
	}

	battle, err = s.Settlement.Reconcile(ctx, battleID)
	if err != nil {
		return battleHTTPError(err)
	}

	return c.JSON(http.StatusOK, battle)
}

// battleHTTPError maps lifecycle sentinels onto the HTTP taxonomy:
// authorization is distinct from validation, conflicts are 409, and
// escrow degradation is 503.
func battleHTTPError(err error) error {
	switch {
	case errors.Is(err, arena.ErrBattleNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "battle not found")
	case errors.Is(err, ErrNotParticipant):
		return echo.NewHTTPError(http.StatusForbidden, "caller is not a participant of this battle")
	case errors.Is(err, ErrResponseRecorded), errors.Is(err, ErrBattleNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrEscrowUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "escrow ledger is unavailable")
	case errors.Is(err, ErrInvalidMode), errors.Is(err, ErrSameShard),
		errors.Is(err, ErrInvalidRound), errors.Is(err, ErrEscrowRequired),
		errors.Is(err, ErrNoRoundsPlayed):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
