package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/Sternrassler/rickmorty-client/internal/cliconfig"
	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	"github.com/Sternrassler/rickmorty-client/pkg/viewstate"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = ""

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app holds the resolved configuration and the API client shared by commands.
type app struct {
	cfg     cliconfig.Config
	cfgPath string
	client  *client.Client
	redis   *redis.Client
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "rickmorty",
		Short:         "Browse the Rick and Morty character list",
		Long:          "Fetches the paginated Rick and Morty character list, page by page, with manual retry on failures.",
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgPath, "config", "c", "", "config file (default is $HOME/.rickmorty/config.toml)")
	flags.StringVar(&a.cfg.BaseURL, "base-url", a.cfg.BaseURL, "API base URL")
	flags.StringVar(&a.cfg.UserAgent, "user-agent", a.cfg.UserAgent, "User-Agent header")
	flags.DurationVar(&a.cfg.Timeout, "timeout", a.cfg.Timeout, "per-request timeout")
	flags.StringVar(&a.cfg.RedisAddr, "redis-addr", a.cfg.RedisAddr, "Redis address for the response cache (disabled when empty)")
	flags.IntVar(&a.cfg.RedisDB, "redis-db", a.cfg.RedisDB, "Redis database")
	flags.IntVar(&a.cfg.PageSize, "page-size", a.cfg.PageSize, "items per page")
	flags.IntVar(&a.cfg.PrefetchDistance, "prefetch-distance", a.cfg.PrefetchDistance, "items from the edge that trigger the next page load")
	flags.BoolVar(&a.cfg.Dedup, "dedup", a.cfg.Dedup, "drop characters already loaded on another page")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&a.cfg.LogPretty, "log-pretty", a.cfg.LogPretty, "human-readable logs")

	root.AddCommand(newListCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newVersionCmd())

	return root
}

// init resolves the configuration (flags > env > file > defaults) and builds
// the API client.
func (a *app) init(cmd *cobra.Command) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, cliconfig.NewEnv(), changed); err != nil {
		return err
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logCfg := a.cfg.LoggingConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)
	log := logging.NewLogger(logging.ComponentCLI)
	log.Debug().Interface("config", a.cfg).Msg("configuration")

	clientCfg := client.DefaultConfig(a.cfg.UserAgent)
	clientCfg.BaseURL = a.cfg.BaseURL
	clientCfg.Timeout = a.cfg.Timeout

	if a.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr, DB: a.cfg.RedisDB})
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", a.cfg.RedisAddr).Msg("Redis unavailable, response cache disabled")
			rdb.Close()
		} else {
			log.Debug().Str("addr", a.cfg.RedisAddr).Msg("Connected to Redis")
			a.redis = rdb
			clientCfg.Redis = rdb
		}
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	a.client = c
	return nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// source returns the paging source over the API client.
func (a *app) source() *character.Source {
	return character.NewSource(a.client)
}

// pagerFactory builds a fresh pager per coordinator attempt.
func (a *app) pagerFactory() viewstate.PagerFactory {
	return func() (*pagination.Pager[character.Character], error) {
		return pagination.New[character.Character](a.source(), a.cfg.PagerConfig())
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rickmorty %s %s/%s\n", getVersion(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
