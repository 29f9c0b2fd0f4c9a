package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skytable/skytable-sub005/internal/boot"
	"github.com/skytable/skytable-sub005/internal/server"
	"github.com/skytable/skytable-sub005/pkg/config"
	"github.com/skytable/skytable-sub005/pkg/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "skyd: %v\n", err)
		os.Exit(1)
	}
}

var (
	flagConfig   string
	flagLogLevel string
	flagLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "skyd",
	Short: "skyd is the database server",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "boot the data directory and start serving connections",
	RunE:  runServe,
}

var repairCmd = &cobra.Command{
	Use:   "repair <data-dir>",
	Short: "discard corrupt trailing journal data so the data directory can boot again",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepair,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "emit structured JSON logs")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(repairCmd)
}

// runRepair implements the repair mode spec §4.6/§4.7 requires: Boot refuses
// to start against a data directory with a journal integrity error unless
// repair is explicitly invoked first. This walks every journal file,
// discards anything past the first corrupt or incomplete frame, and leaves
// the directory in a state a normal `skyd serve` can boot.
func runRepair(cmd *cobra.Command, args []string) error {
	if err := logging.Init(flagLogLevel, flagLogJSON, os.Stderr); err != nil {
		return err
	}
	log := logging.WithComponent("main")

	reports, err := boot.RepairDataDir(args[0])
	if err != nil {
		return err
	}
	repaired := 0
	for _, r := range reports {
		if r.Repaired {
			repaired++
		}
	}
	log.Info().Int("journals_scanned", len(reports)).Int("journals_repaired", repaired).Msg("repair complete")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logging.Init(flagLogLevel, flagLogJSON, os.Stderr); err != nil {
		return err
	}
	log := logging.WithComponent("main")

	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	bootResult, err := boot.Boot(cfg.Server.DataDir)
	if err != nil {
		return err
	}
	bootResult.Dispatcher.OriginKey = cfg.Auth.OriginKey

	if password, ok := os.LookupEnv("SKYDB_PASSWORD"); ok && !bootResult.GNS.SysDB.IsInitialized() {
		if err := bootResult.GNS.SysDB.InitRoot(password); err != nil {
			return err
		}
		log.Info().Msg("root account provisioned from SKYDB_PASSWORD")
	}

	srv := server.New(cfg, bootResult.Dispatcher)

	ctx, cancel := context.WithCancel(cmd.Context())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	runErr := srv.Run(ctx)
	if err := boot.Shutdown(bootResult); err != nil {
		log.Error().Err(err).Msg("error closing journals during shutdown")
	}
	return runErr
}
