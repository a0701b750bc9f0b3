package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
	"github.com/Legatia/Siphon-sub001/internal/pkg/battle"
	"github.com/Legatia/Siphon-sub001/internal/pkg/common"
	"github.com/Legatia/Siphon-sub001/internal/pkg/judge"
	"github.com/Legatia/Siphon-sub001/internal/pkg/matchqueue"
	"github.com/Legatia/Siphon-sub001/internal/pkg/settlement"
)

type ArenaService struct {
	EchoService *common.EchoService `do:""`

	MatchqueueService *matchqueue.MatchqueueService `do:""`
	BattleService     *battle.BattleService         `do:""`
	SettlementService *settlement.SettlementService `do:""`
}

func runServer(_ context.Context, cmd *cli.Command) error {
	i := do.New()

	do.ProvideNamedValue(i, "port", cmd.Int("port"))
	do.ProvideNamedValue(i, "data-dir", cmd.String("data-dir"))

	do.ProvideNamedValue(i, "judge-url", cmd.String("judge-url"))
	do.ProvideNamedValue(i, "judge-api-key", cmd.String("judge-api-key"))
	do.ProvideNamedValue(i, "judge-model", cmd.String("judge-model"))
	do.ProvideNamedValue(i, "judge-timeout-seconds", cmd.Int("judge-timeout-seconds"))

	do.ProvideNamedValue(i, "chain-rpc-url", cmd.String("chain-rpc-url"))
	do.ProvideNamedValue(i, "escrow-contract", cmd.String("escrow-contract"))
	do.ProvideNamedValue(i, "chain-timeout-seconds", cmd.Int("chain-timeout-seconds"))

	do.ProvideNamedValue(i, "round-deadline-minutes", cmd.Int("round-deadline-minutes"))
	do.ProvideNamedValue(i, "elo-k-factor", cmd.Int("elo-k-factor"))
	do.ProvideNamedValue(i, "elo-base-window", cmd.Int("elo-base-window"))
	do.ProvideNamedValue(i, "elo-window-step", cmd.Int("elo-window-step"))
	do.ProvideNamedValue(i, "elo-window-cap", cmd.Int("elo-window-cap"))

	do.Provide(i, common.NewDatabaseService)
	do.Provide(i, common.NewEchoService)
	do.Provide(i, arena.NewBoltStore)

	do.Provide(i, judge.NewJudgeService)
	do.Provide(i, settlement.NewSettlementService)
	do.Provide(i, battle.NewLifecycle)
	do.Provide(i, battle.NewBattleService)
	do.Provide(i, matchqueue.NewMatchqueueService)

	do.Provide(i, do.InvokeStruct[ArenaService])

	arenaService, err := do.Invoke[ArenaService](i)
	if err != nil {
		return fmt.Errorf("failed to create arena service: %w", err)
	}

	//nolint:wrapcheck
	return arenaService.EchoService.Start()
}

func main() {
	//nolint:exhaustruct
	cmd := &cli.Command{
		Name: "arena",
		Commands: []*cli.Command{
			{
				Name: "server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Value:   3000, //nolint:mnd
						Sources: cli.EnvVars("SIPHON_PORT"),
					},
					&cli.StringFlag{
						Name:    "data-dir",
						Value:   "./arena/data",
						Sources: cli.EnvVars("SIPHON_DATA_DIR"),
					},
					&cli.StringFlag{
						Name:    "judge-url",
						Value:   "",
						Sources: cli.EnvVars("SIPHON_JUDGE_URL"),
					},
					&cli.StringFlag{
						Name:    "judge-api-key",
						Value:   "",
						Sources: cli.EnvVars("SIPHON_JUDGE_API_KEY"),
					},
					&cli.StringFlag{
						Name:    "judge-model",
						Value:   "gpt-4o-mini",
						Sources: cli.EnvVars("SIPHON_JUDGE_MODEL"),
					},
					&cli.IntFlag{
						Name:    "judge-timeout-seconds",
						Value:   20, //nolint:mnd
						Sources: cli.EnvVars("SIPHON_JUDGE_TIMEOUT_SECONDS"),
					},
					&cli.StringFlag{
						Name:    "chain-rpc-url",
						Value:   "",
						Sources: cli.EnvVars("SIPHON_CHAIN_RPC_URL"),
					},
					&cli.StringFlag{
						Name:    "escrow-contract",
						Value:   "",
						Sources: cli.EnvVars("SIPHON_ESCROW_CONTRACT"),
					},
					&cli.IntFlag{
						Name:    "chain-timeout-seconds",
						Value:   10, //nolint:mnd
						Sources: cli.EnvVars("SIPHON_CHAIN_TIMEOUT_SECONDS"),
					},
					&cli.IntFlag{
						Name:    "round-deadline-minutes",
						Value:   5, //nolint:mnd
						Sources: cli.EnvVars("SIPHON_ROUND_DEADLINE_MINUTES"),
					},
					&cli.IntFlag{
						Name:    "elo-k-factor",
						Value:   32, //nolint:mnd
						Sources: cli.EnvVars("SIPHON_ELO_K_FACTOR"),
					},
					&cli.IntFlag{
						Name:    "elo-base-window",
						Value:   100, //nolint:mnd
						Sources: cli.EnvVars("SIPHON_ELO_BASE_WINDOW"),
					},
					&cli.IntFlag{
						Name:    "elo-window-step",
						Value:   50, //nolint:mnd
						Sources: cli.EnvVars("SIPHON_ELO_WINDOW_STEP"),
					},
					&cli.IntFlag{
						Name:    "elo-window-cap",
						Value:   500, //nolint:mnd
						Sources: cli.EnvVars("SIPHON_ELO_WINDOW_CAP"),
					},
				},
				Action: runServer,
			},
		},
		DefaultCommand: "server",
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
