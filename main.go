package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"go.aimuz.me/echoflow/config"
	"go.aimuz.me/echoflow/internal/app"
	"go.aimuz.me/echoflow/internal/types"
	"go.aimuz.me/echoflow/notify"
	"go.aimuz.me/echoflow/router"
	"go.aimuz.me/echoflow/sanitize"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	verbose bool
	store   *config.Store
)

var rootCmd = &cobra.Command{
	Use:           "echoflow",
	Short:         "Voice dictation and command daemon",
	Long:          "EchoFlow records speech on a hotkey, transcribes it and either types the text into the focused field or runs it as a command.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(verbose)
		return loadStore()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dictation daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.New(store, app.Deps{Notifier: notify.Desktop()})
		if err != nil {
			return fmt.Errorf("create service: %w", err)
		}
		defer svc.Shutdown()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		slog.Info("echoflow started", "version", version)
		return svc.Run(ctx)
	},
}

var routeCmd = &cobra.Command{
	Use:   "route <text>",
	Short: "Route a transcript without executing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		text := sanitize.Sanitize(strings.Join(args, " "))
		result := router.New().Route(ctx, store.Snapshot(), text, nil)
		return printJSON(result)
	},
}

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize <text>",
	Short: "Show what leaves the machine for a transcript",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(sanitize.Sanitize(strings.Join(args, " ")))
	},
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Manage custom vocabulary",
}

var vocabAddCmd = &cobra.Command{
	Use:   "add <term>...",
	Short: "Add terms to the vocabulary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.Update(func(c *config.Config) error {
			for _, term := range args {
				if err := c.AddTerm(term); err != nil {
					return fmt.Errorf("add %q: %w", term, err)
				}
			}
			return nil
		})
	},
}

var vocabRemoveCmd = &cobra.Command{
	Use:   "remove <term>...",
	Short: "Remove terms from the vocabulary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.Update(func(c *config.Config) error {
			for _, term := range args {
				if err := c.RemoveTerm(term); err != nil {
					return fmt.Errorf("remove %q: %w", term, err)
				}
			}
			return nil
		})
	},
}

var vocabListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vocabulary terms",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, term := range store.Snapshot().Vocabulary {
			fmt.Println(term)
		}
	},
}

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Inspect the routing provider",
}

var providerTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that the active provider is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := store.Snapshot()
		if snap.Provider.Kind == types.ProviderDictationOnly {
			fmt.Println("dictation-only mode, no provider configured")
			return nil
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := app.TestProvider(ctx, snap); err != nil {
			return err
		}
		fmt.Printf("%s: OK\n", describeProvider(snap))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		store.View(func(c *config.Config) { path = c.Path() })
		s := store.Snapshot()
		fmt.Printf("Config file:     %s\n", path)
		fmt.Printf("Provider:        %s\n", describeProvider(s))
		fmt.Printf("Speech engine:   %s (%s)\n", s.Speech.Engine, s.Speech.Model)
		fmt.Printf("Recording mode:  %s\n", s.Mode)
		fmt.Printf("Hotkey:          %s\n", strings.Join(s.Hotkey, "+"))
		fmt.Printf("Gain:            %.2f\n", s.Gain)
		fmt.Printf("Live injection:  %t\n", s.LiveInjection)
		fmt.Printf("Route cache:     %t\n", s.RouteCache)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("echoflow %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/echoflow/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	vocabCmd.AddCommand(vocabAddCmd, vocabRemoveCmd, vocabListCmd)
	providerCmd.AddCommand(providerTestCmd)
	rootCmd.AddCommand(runCmd, routeCmd, sanitizeCmd, vocabCmd, providerCmd, configCmd, versionCmd)
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

func loadStore() error {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store = config.NewStore(cfg)
	return nil
}

func describeProvider(s *config.Settings) string {
	if s.Provider.Kind == types.ProviderDictationOnly {
		return "dictation only"
	}
	model := s.Provider.Model
	if model == "" {
		model = s.Provider.Kind.DefaultModel()
	}
	return fmt.Sprintf("%s (%s)", s.Provider.Kind, model)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
