package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/captainnews-gr/captainnews-harvester/internal/app"
	"github.com/captainnews-gr/captainnews-harvester/internal/config"
	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
)

// errOverlaps is returned by lint when table keys shadow each other with
// different publisher names.
var errOverlaps = errors.New("domain table has conflicting overlaps")

type runtime struct {
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "harvester",
		Short: "Greek news aggregator",
		Long: `harvester fetches the configured Greek news feeds, ranks and deduplicates
their items per category and serves the result as a cached JSON document.

Running without a subcommand is the same as "harvester serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.Init(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt.cfg, rt.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Close()
		},
		RunE: rt.serve,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled refresh and the read endpoint",
		RunE:  rt.serve,
	}

	snapshot := &cobra.Command{
		Use:   "snapshot",
		Short: "Aggregate once and write the JSON document to a file",
		RunE:  rt.snapshot,
	}
	snapshot.Flags().StringP("out", "o", "news.json", "output file")

	lint := &cobra.Command{
		Use:   "lint",
		Short: "Report domain table keys that shadow each other",
		RunE:  rt.lint,
	}

	root.AddCommand(serve, snapshot, lint)
	return root
}

func (rt *runtime) serve(cmd *cobra.Command, _ []string) error {
	logger.InfoObj("harvester starting", "config", rt.cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	harvester, err := app.NewHarvester(ctx, rt.cfg, rt.log)
	if err != nil {
		logger.ErrorObj("failed to initialize harvester", "error", err)
		return err
	}

	if err := harvester.Run(ctx); err != nil {
		return fmt.Errorf("harvester run: %w", err)
	}
	return nil
}

func (rt *runtime) snapshot(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("out")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := app.Snapshot(ctx, rt.cfg, rt.log, out)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d articles from %d/%d feeds\n",
		out, res.TotalArticles, res.SuccessfulSources, res.TotalSources)
	return nil
}

func (rt *runtime) lint(cmd *cobra.Command, _ []string) error {
	reg, err := app.LoadRegistry(rt.cfg, rt.log)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	overlaps := reg.Resolver().Lint()
	if len(overlaps) == 0 {
		fmt.Fprintln(w, "no overlapping domain keys")
		return nil
	}

	conflicts := 0
	for _, o := range overlaps {
		status := "same name"
		if !o.SameName {
			status = "CONFLICT"
			conflicts++
		}
		fmt.Fprintf(w, "%-28s shadows %-24s %s\n", o.Key, o.Shadows, status)
	}
	if conflicts > 0 {
		return fmt.Errorf("%w: %d", errOverlaps, conflicts)
	}
	return nil
}
