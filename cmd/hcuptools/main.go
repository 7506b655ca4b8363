package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vikrant31/HCUPtools/internal/config"
	"github.com/vikrant31/HCUPtools/internal/domain/mapping"
	"github.com/vikrant31/HCUPtools/internal/domain/report"
	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/cache"
	"github.com/vikrant31/HCUPtools/internal/platform/middleware"
	"github.com/vikrant31/HCUPtools/internal/platform/probe"
	"github.com/vikrant31/HCUPtools/internal/platform/store"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hcuptools",
		Short: "HCUP CCSR version resolution and code mapping",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(versionsCmd())
	rootCmd.AddCommand(mapCmd())
	rootCmd.AddCommand(loadCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// platform bundles the wired collaborators behind the domain services.
type platform struct {
	resolver *version.Resolver
	fetcher  *mapping.Fetcher
}

func buildPlatform(cfg *config.Config, logger zerolog.Logger) (*platform, error) {
	client := probe.NewClient(
		probe.WithExistsTimeout(cfg.ProbeTimeout()),
		probe.WithFetchTimeout(cfg.FetchTimeout()),
	)

	var artifacts cache.Store
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedis(cfg.RedisURL, "hcuptools")
		if err != nil {
			return nil, err
		}
		artifacts = redisStore
	} else {
		fsStore, err := cache.NewFS(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		artifacts = fsStore
	}

	resolver := version.NewResolver(client, version.NewStoreCache(artifacts),
		version.WithBaseURL(cfg.BaseURL),
		version.WithLogger(logger),
		version.WithTagTTL(cfg.VersionCacheTTL()),
		version.WithListTTL(cfg.VersionListTTL()),
	)

	fetcher := mapping.NewFetcher(resolver, client, artifacts,
		mapping.WithFetcherBaseURL(cfg.BaseURL),
		mapping.WithFetcherLogger(logger),
	)

	return &platform{resolver: resolver, fetcher: fetcher}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HCUP tools API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	plat, err := buildPlatform(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build platform")
	}

	versionSvc := version.NewService(plat.resolver)
	mappingSvc := mapping.NewService(plat.fetcher, logger)
	reportSvc := report.NewService(plat.resolver, plat.fetcher, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiV1 := e.Group("/api/v1")
	version.NewHandler(versionSvc).RegisterRoutes(apiV1)
	mapping.NewHandler(mappingSvc).RegisterRoutes(apiV1)
	report.NewHandler(reportSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a CCSR version (latest or explicit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			family, _ := cmd.Flags().GetString("family")
			requested, _ := cmd.Flags().GetString("version")
			refresh, _ := cmd.Flags().GetBool("refresh")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			plat, err := buildPlatform(cfg, logger)
			if err != nil {
				return err
			}

			tag, err := version.NewService(plat.resolver).Resolve(cmd.Context(), family, requested, refresh)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s (%s)\n", tag.Family.Prefix(), tag, tag.ArchiveName())
			return nil
		},
	}
	cmd.Flags().String("family", "dx", "Code family: dx or pr")
	cmd.Flags().String("version", "latest", "Requested version (latest or vYYYY.N)")
	cmd.Flags().Bool("refresh", false, "Bypass the version cache")
	return cmd
}

func versionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List published CCSR versions for a family",
		RunE: func(cmd *cobra.Command, args []string) error {
			family, _ := cmd.Flags().GetString("family")
			refresh, _ := cmd.Flags().GetBool("refresh")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			plat, err := buildPlatform(cfg, logger)
			if err != nil {
				return err
			}

			tags, err := version.NewService(plat.resolver).List(cmd.Context(), family, refresh)
			if err != nil {
				return err
			}
			for _, tag := range tags {
				fmt.Printf("%s\t%s\n", tag, tag.ArchiveName())
			}
			return nil
		},
	}
	cmd.Flags().String("family", "dx", "Code family: dx or pr")
	cmd.Flags().Bool("refresh", false, "Bypass the version cache")
	return cmd
}

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map a CSV file's code column to CCSR categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")
			codeColumn, _ := cmd.Flags().GetString("code-column")
			family, _ := cmd.Flags().GetString("family")
			requested, _ := cmd.Flags().GetString("version")
			mappingPath, _ := cmd.Flags().GetString("mapping")
			format, _ := cmd.Flags().GetString("format")
			defaultOnly, _ := cmd.Flags().GetBool("default-only")
			keepAll, _ := cmd.Flags().GetBool("keep-all-columns")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			in, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer in.Close()
			records, err := tabular.ReadCSV(in)
			if err != nil {
				return err
			}

			fam, err := version.ParseFamily(family)
			if err != nil {
				return err
			}
			opts := mapping.Options{
				Format:         mapping.OutputFormat(format),
				Family:         fam,
				DefaultOnly:    defaultOnly,
				KeepAllColumns: keepAll,
			}

			var res *mapping.Result
			if mappingPath != "" {
				mt, err := readLocalMapping(mappingPath, fam)
				if err != nil {
					return err
				}
				res, err = mapping.NewService(nil, logger).MapCodes(records, codeColumn, mt, opts)
				if err != nil {
					return err
				}
			} else {
				plat, err := buildPlatform(cfg, logger)
				if err != nil {
					return err
				}
				svc := mapping.NewService(plat.fetcher, logger)
				res, _, err = svc.MapAgainstVersion(cmd.Context(), records, codeColumn, fam, requested, false, opts)
				if err != nil {
					return err
				}
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			return tabular.WriteCSV(out, res.Table)
		},
	}
	cmd.Flags().String("input", "", "Input CSV file (required)")
	cmd.Flags().String("output", "", "Output CSV file (default stdout)")
	cmd.Flags().String("code-column", "code", "Name of the code column in the input")
	cmd.Flags().String("family", "dx", "Code family: dx or pr")
	cmd.Flags().String("version", "latest", "Mapping version (latest or vYYYY.N)")
	cmd.Flags().String("mapping", "", "Local mapping file (.csv or .zip) instead of downloading")
	cmd.Flags().String("format", "long", "Output format: long or wide")
	cmd.Flags().Bool("default-only", false, "Narrow to the default category per code")
	cmd.Flags().Bool("keep-all-columns", false, "Retain all input columns in the output")
	cmd.MarkFlagRequired("input")
	return cmd
}

// readLocalMapping parses a mapping table from a local CSV or ZIP file.
func readLocalMapping(path string, fam version.Family) (*mapping.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	var table *tabular.Table
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		table, err = tabular.ReadZipCSV(data, fam.Prefix())
	} else {
		table, err = tabular.ReadCSV(strings.NewReader(string(data)))
	}
	if err != nil {
		return nil, err
	}
	return &mapping.Table{Family: fam, Data: table}, nil
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a mapping table into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			family, _ := cmd.Flags().GetString("family")
			requested, _ := cmd.Flags().GetString("version")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for load")
			}
			logger := newLogger(cfg)
			plat, err := buildPlatform(cfg, logger)
			if err != nil {
				return err
			}

			fam, err := version.ParseFamily(family)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			mt, tag, err := plat.fetcher.MappingTable(ctx, fam, requested, false)
			if err != nil {
				return err
			}
			roles, err := mapping.InferColumns(mt.Data, fam, true)
			if err != nil {
				return err
			}

			pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			copied, err := store.LoadMapping(ctx, pool, tag, mt, roles)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d rows for %s %s.\n", copied, fam.Prefix(), tag)
			return nil
		},
	}
	cmd.Flags().String("family", "dx", "Code family: dx or pr")
	cmd.Flags().String("version", "latest", "Mapping version (latest or vYYYY.N)")
	return cmd
}
