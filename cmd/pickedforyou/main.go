package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	pickedforyou "github.com/kRYstall9/Picked-For-You"
	"github.com/kRYstall9/Picked-For-You/internal/output"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configPath   string
	cfg          *hostConfig
	outputFormat string
)

// hostConfig is the CLI host's YAML configuration. Engine settings (count,
// refresh window, provider) are not here: they live in the persistent store
// and are changed with the settings command.
type hostConfig struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	AniList struct {
		Token    string `yaml:"token"`
		Username string `yaml:"username"`
		BaseURL  string `yaml:"base_url,omitempty"`
	} `yaml:"anilist"`

	Sprout struct {
		BaseURL string `yaml:"base_url,omitempty"`
	} `yaml:"sprout"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func defaultHostConfig() *hostConfig {
	cfg := &hostConfig{}
	cfg.Database.Path = "./pickedforyou.db"
	cfg.Log.Level = "warn"
	return cfg
}

func loadConfig() error {
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg = defaultHostConfig()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func newEngine() (*pickedforyou.Engine, error) {
	logger := newLogger()
	return pickedforyou.NewEngine(pickedforyou.EngineConfig{
		DBPath:          cfg.Database.Path,
		AniListToken:    cfg.AniList.Token,
		AniListUsername: cfg.AniList.Username,
		AniListBaseURL:  cfg.AniList.BaseURL,
		SproutBaseURL:   cfg.Sprout.BaseURL,
		Logger:          &logger,
	})
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "pickedforyou",
		Short: "Personal anime recommendations from your AniList watch history",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "human", "output format: json, text, human")

	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(genresCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(initConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func showCmd() *cobra.Command {
	var (
		pageNumber int
		pageSize   int
		genre      string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current recommendation page",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine()
			if err != nil {
				return fmt.Errorf("failed to create engine: %w", err)
			}
			defer engine.Close()

			items, err := engine.Run(context.Background())
			if err != nil {
				if errors.Is(err, pickedforyou.ErrSetupRequired) {
					return fmt.Errorf("no settings saved yet, run: pickedforyou settings --provider anilist")
				}
				var provErr *pickedforyou.ProviderError
				if errors.As(err, &provErr) {
					// Degraded: show whatever the engine could fall back to.
					formatter.Warning("provider fetch failed (%v), showing cached results", provErr)
				} else {
					return err
				}
			}

			state := pickedforyou.NewPageState()
			if err := state.SetPageSize(pageSize); err != nil {
				return err
			}
			state.SetGenre(genre)
			page := state.View(items)
			state.SetPage(pageNumber, page.TotalPages)
			page = state.View(items)

			return formatter.OutputPage(activeProvider(engine), page, state.CurrentPage(), state.Genre())
		},
	}

	cmd.Flags().IntVarP(&pageNumber, "page", "p", 1, "page number")
	cmd.Flags().IntVarP(&pageSize, "page-size", "s", pickedforyou.DefaultPageSize, "items per page (6, 15 or 30)")
	cmd.Flags().StringVarP(&genre, "genre", "g", pickedforyou.GenreAll, "only show titles with this genre")
	return cmd
}

func genresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genres",
		Short: "List the genres present in the current recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine()
			if err != nil {
				return fmt.Errorf("failed to create engine: %w", err)
			}
			defer engine.Close()

			items, err := engine.Run(context.Background())
			if err != nil && !isDegraded(err) {
				return err
			}
			return formatter.OutputGenres(pickedforyou.Genres(items))
		},
	}
}

func settingsCmd() *cobra.Command {
	var (
		days     int
		count    int
		provider string
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the engine settings",
		Long: `Without flags, prints the stored settings. With flags, validates and
saves the new values, then refreshes the recommendations if needed.
Setting --days to 0 disables caching entirely.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(output.Format(outputFormat))

			engine, err := newEngine()
			if err != nil {
				return fmt.Errorf("failed to create engine: %w", err)
			}
			defer engine.Close()

			settings, configured, err := engine.Settings()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			if !cmd.Flags().Changed("days") && !cmd.Flags().Changed("count") && !cmd.Flags().Changed("provider") {
				return formatter.OutputSettings(settings, configured)
			}

			if cmd.Flags().Changed("days") {
				settings.RefreshIntervalDays = days
			}
			if cmd.Flags().Changed("count") {
				settings.RecommendationCount = count
			}
			if cmd.Flags().Changed("provider") {
				settings.Provider = pickedforyou.Provider(provider)
			}

			if err := engine.SaveSettings(settings); err != nil {
				var valErr *pickedforyou.ValidationError
				if errors.As(err, &valErr) {
					return fmt.Errorf("settings not saved: %v", valErr)
				}
				// Storage failures stay in the logs; the user gets a plain message.
				return fmt.Errorf("an error occurred while saving settings, check the logs")
			}

			// The save action is followed by a refresh so the next view is
			// current. Fetch failures degrade, they don't undo the save.
			if _, err := engine.Run(context.Background()); err != nil && !isDegraded(err) {
				formatter.Warning("settings saved but refresh failed: %v", err)
			}

			settings, configured, err = engine.Settings()
			if err != nil {
				return err
			}
			return formatter.OutputSettings(settings, configured)
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 1, "days before refreshing (0 = always refresh)")
	cmd.Flags().IntVarP(&count, "count", "n", 15, "number of recommendations to fetch")
	cmd.Flags().StringVarP(&provider, "provider", "P", "anilist", "recommendation provider: anilist or sprout")
	return cmd
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("config already exists at %s", configPath)
			}

			starter := defaultHostConfig()
			starter.AniList.Username = "your-anilist-username"
			data, err := yaml.Marshal(starter)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}

			if err := os.MkdirAll("./config", 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(configPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("Wrote %s. Fill in your AniList username and token.\n", configPath)
			return nil
		},
	}
}

// isDegraded reports whether err is a provider failure the engine already
// degraded from (stale or empty list returned alongside it).
func isDegraded(err error) bool {
	var provErr *pickedforyou.ProviderError
	return errors.As(err, &provErr)
}

func activeProvider(engine *pickedforyou.Engine) pickedforyou.Provider {
	settings, _, err := engine.Settings()
	if err != nil {
		return pickedforyou.ProviderAniList
	}
	return settings.Provider
}
