package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/nocturnelabs/researchbot/internal/agent"
	"github.com/nocturnelabs/researchbot/internal/config"
	"github.com/nocturnelabs/researchbot/internal/web"
	"github.com/nocturnelabs/researchbot/library/log"
)

var runCMD = &cobra.Command{
	Use:   "run",
	Short: "run",
	Long:  `run the research agent until it finishes or is interrupted`,
	Args:  gcmd.NoExtraArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(cmd.Context(), cmd)
	},
	RunE: runAgent,
}

func init() {
	rootCMD.AddCommand(runCMD)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}
	if cfg.Listen == "" {
		cfg.Listen = gconfig.Shared.GetString("listen")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// the first signal requests a cooperative shutdown; teardown happens
	// once no matter how many more arrive
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for sig := range sigCh {
			log.Logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		}
	}()

	controller := agent.NewController(cfg)

	if cfg.Listen != "" {
		go web.RunServer(cfg.Listen, controller)
	}

	if err := controller.Run(ctx); err != nil {
		return errors.Wrap(err, "run agent")
	}

	return nil
}
