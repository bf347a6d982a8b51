package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"sejmcollect/internal/core/version"
	"sejmcollect/internal/modkit"
	"sejmcollect/internal/modkit/module"
	"sejmcollect/internal/platform/config"
	"sejmcollect/internal/platform/logger"
	collectmod "sejmcollect/internal/services/collect/module"
	"sejmcollect/internal/services/collect/repo"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// globals are surfaced to modules through the env they read in FromConfig
type globals struct {
	term      int
	storage   string
	batchSize int
	logLevel  string
}

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func (g globals) export() {
	if g.term > 0 {
		mustSetEnv("CORE_COLLECT_TERM", strconv.Itoa(g.term))
	}
	if g.batchSize > 0 {
		mustSetEnv("CORE_COLLECT_BATCH_SIZE", strconv.Itoa(g.batchSize))
	}
	mustSetEnv("STORAGE_TYPE", g.storage)
	mustSetEnv("LOG_LEVEL", g.logLevel)
}

func newRootCmd() *cobra.Command {
	var g globals
	root := &cobra.Command{
		Use:           "sejmcollect",
		Short:         "Collect Sejm proceedings and statements",
		Long:          color.CyanString("sejmcollect - incremental collector for Polish Sejm transcripts"),
		Version:       version.Info().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			g.export()
			logger.Init(logger.FromEnv())
		},
	}
	pf := root.PersistentFlags()
	pf.IntVar(&g.term, "term", 0, "parliamentary term (default CORE_COLLECT_TERM or 10); a store holds one term, point other terms at their own STORAGE_* location")
	pf.StringVar(&g.storage, "storage", "", fmt.Sprintf("storage backend %v (default STORAGE_TYPE or csv)", repo.Types))
	pf.IntVar(&g.batchSize, "batch-size", 0, "statements per flush (default CORE_COLLECT_BATCH_SIZE or 100)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (default LOG_LEVEL or info)")

	root.AddCommand(fullCmd(), updateCmd(), membersCmd(), statsCmd(), versionCmd())
	return root
}

func fullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "full",
		Short: "Collect every finished proceeding of the term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withModule(cmd, func(ctx context.Context, p collectmod.Ports) error {
				rep, err := p.Runner.RunFull(ctx)
				printReport(cmd.OutOrStdout(), rep, err)
				return err
			})
		},
	}
}

func updateCmd() *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:     "update",
		Short:   "Collect proceedings after the checkpoint",
		Args:    cobra.NoArgs,
		Example: "  sejmcollect update\n  sejmcollect update --limit 1 --storage sqlite",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var lim *int
			if cmd.Flags().Changed("limit") {
				if limit < 0 {
					return fmt.Errorf("--limit must not be negative")
				}
				lim = &limit
			}
			return withModule(cmd, func(ctx context.Context, p collectmod.Ports) error {
				rep, err := p.Runner.RunIncremental(ctx, lim)
				printReport(cmd.OutOrStdout(), rep, err)
				return err
			})
		},
	}
	c.Flags().IntVar(&limit, "limit", 0, "process at most N new proceedings")
	return c
}

func membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "Refresh the member list of the term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withModule(cmd, func(ctx context.Context, p collectmod.Ports) error {
				n, err := p.Members.Members(ctx)
				if err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "stored %d members\n", n)
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize stored data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withModule(cmd, func(ctx context.Context, p collectmod.Ports) error {
				st, err := p.Stats.Stats(ctx)
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			bi := version.Info()
			label := color.New(color.FgGreen)
			w := cmd.OutOrStdout()
			color.New(color.FgCyan, color.Bold).Fprintf(w, "%s %s\n", bi.Service, bi.Version)
			label.Fprint(w, "Git commit: ")
			fmt.Fprintln(w, bi.Commit)
			label.Fprint(w, "Built:      ")
			fmt.Fprintln(w, bi.Date)
		},
	}
}

// withModule builds the collect module for one command and logs a failure with its proceeding
func withModule(cmd *cobra.Command, fn func(context.Context, collectmod.Ports) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	l := logger.Get()
	m, err := collectmod.New(ctx, modkit.Deps{Cfg: config.New(), Log: l})
	if err != nil {
		l.Error().Err(err).Msg("collect module setup failed")
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close storage")
		}
	}()

	if err := fn(ctx, module.MustPortsOf[collectmod.Ports](m)); err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		return err
	}
	return nil
}
