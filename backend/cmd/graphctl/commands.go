package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tablegraph/backend/internal/app"
	"tablegraph/backend/internal/relations"
	"tablegraph/backend/internal/seed"
	"tablegraph/backend/pkg/config"
	"tablegraph/backend/pkg/logger"
)

// env holds what PersistentPreRunE prepares for subcommands
type env struct {
	driver string
	app    *app.App
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "graphctl",
		Short:         "Seed, inspect and maintain a tablegraph store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if e.driver != "" {
				cfg.StoreDriver = e.driver
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if err := logger.Init(cfg.Env); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			e.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Sync()
			if e.app == nil {
				return nil
			}
			return e.app.Close(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&e.driver, "driver", "", "store driver override (neo4j, sqlite, memory)")

	root.AddCommand(
		newSeedCmd(e),
		newGraphCmd(e),
		newNeighborsCmd(e),
		newRegenerateCmd(e),
		newMigrateCmd(e),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSeedCmd(e *env) *cobra.Command {
	opts := seed.DefaultOptions()
	var randomSeed uint64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert synthetic tables and generate their relationships",
		RunE: func(cmd *cobra.Command, args []string) error {
			if randomSeed == 0 {
				randomSeed = uint64(time.Now().UnixNano())
			}
			rng := relations.Synchronized(relations.NewSeededSource(randomSeed))
			s := seed.NewSeeder(e.app.Store, e.app.Rules, e.app.Generator, rng)
			summary, err := s.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Tables, "tables", opts.Tables, "number of tables")
	f.IntVar(&opts.RowsPerTable, "rows", opts.RowsPerTable, "rows per table")
	f.IntVar(&opts.MinColumns, "min-columns", opts.MinColumns, "minimum columns per row")
	f.IntVar(&opts.MaxColumns, "max-columns", opts.MaxColumns, "maximum columns per row")
	f.IntVar(&opts.InjectPercent, "inject", opts.InjectPercent, "percent of values carrying a rule keyword")
	f.IntVar(&opts.Parallelism, "parallel", opts.Parallelism, "concurrent regenerations")
	f.BoolVar(&opts.Reset, "reset", false, "delete every existing row first")
	f.Uint64Var(&randomSeed, "seed", 0, "random seed for the generated values (0 picks one)")
	return cmd
}

func newGraphCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the assembled relationship graph as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := e.app.Service.Graph(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), g)
		},
	}
}

func newNeighborsCmd(e *env) *cobra.Command {
	var hops int

	cmd := &cobra.Command{
		Use:   "neighbors <node-id>",
		Short: "Print the nodes and links within --hops of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.app.Service.Neighborhood(cmd.Context(), args[0], hops)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), n)
		},
	}
	cmd.Flags().IntVar(&hops, "hops", -1, "maximum hops (negative uses DEFAULT_HOPS)")
	return cmd
}

func newRegenerateCmd(e *env) *cobra.Command {
	var (
		all      bool
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "regenerate [row-id...]",
		Short: "Regenerate relationships for the given rows, or every row with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args
			if all {
				rows, err := e.app.Store.FindRows(cmd.Context(), "")
				if err != nil {
					return err
				}
				ids = make([]string, 0, len(rows))
				for _, r := range rows {
					ids = append(ids, r.ID)
				}
			}
			if len(ids) == 0 {
				return fmt.Errorf("no rows given; pass row ids or --all")
			}

			if err := e.app.Generator.RegenerateAll(cmd.Context(), ids, parallel); err != nil {
				return err
			}
			logger.Get().Info("Regenerated relationships", zap.Int("rows", len(ids)))
			return writeJSON(cmd.OutOrStdout(), map[string]int{"regenerated": len(ids)})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "regenerate every stored row")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "concurrent regenerations")
	return cmd
}

// migrate relies on app.New, which creates the schema of every store driver
func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the store schema (tables, constraints and indexes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Get().Info("Schema ready", zap.String("store", e.app.Config.StoreDriver))
			return nil
		},
	}
}
