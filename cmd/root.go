// file: cmd/root.go
// version: 2.1.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pedramholi/iran-memorial/internal/backup"
	"github.com/pedramholi/iran-memorial/internal/config"
	"github.com/pedramholi/iran-memorial/internal/database"
	"github.com/pedramholi/iran-memorial/internal/fetch"
	"github.com/pedramholi/iran-memorial/internal/metrics"
	"github.com/pedramholi/iran-memorial/internal/models"
	"github.com/pedramholi/iran-memorial/internal/pipeline"
	"github.com/pedramholi/iran-memorial/internal/progress"
	"github.com/pedramholi/iran-memorial/internal/search"
	"github.com/pedramholi/iran-memorial/internal/server"
	"github.com/pedramholi/iran-memorial/internal/sources"
)

var cfgFile string
var databasePath string
var stateDir string
var dryRun bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iran-memorial",
	Short: "Enrich and deduplicate victim records from external memorial sources",
	Long: `iran-memorial reconciles victim biographical records from independent
external sources against a canonical record store: it matches incoming
records to existing ones, fills missing fields conservatively, and finds
duplicate records that should be merged.

Writes are cautious by design: an existing death date is never
overwritten, ambiguous matches go to a review queue instead of the
database, and dedup previews its merges unless told to apply them.`,
}

func reviewQueuePath() string {
	return filepath.Join(config.AppConfig.StateDir, "review.json")
}

func openStore() error {
	if err := database.InitializeStore(config.AppConfig.DatabasePath); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	return nil
}

// progressSource wraps a source and advances a progress bar per record.
type progressSource struct {
	sources.Source
	bar *progressbar.ProgressBar
}

func (p *progressSource) Fetch(ctx context.Context, emit func(*models.ExternalVictim) error) error {
	return p.Source.Fetch(ctx, func(v *models.ExternalVictim) error {
		_ = p.bar.Add(1)
		return emit(v)
	})
}

// enrichCmd runs one source through the matching pipeline.
var enrichCmd = &cobra.Command{
	Use:   "enrich <source>",
	Short: "Fetch a source and enrich matching canonical records",
	Long: `Fetch every record from the named source, match each against the
canonical store, and fill missing fields on confident matches. Ambiguous
matches are appended to the review queue. With --import-new, records that
match nothing become new unverified canonical records.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceName := args[0]
		importNew, _ := cmd.Flags().GetBool("import-new")

		if err := openStore(); err != nil {
			return err
		}
		defer database.CloseStore()

		tracker, err := progress.NewPebbleTracker(config.AppConfig.ProgressDir())
		if err != nil {
			return fmt.Errorf("failed to open progress tracker: %w", err)
		}
		defer tracker.Close()

		client := fetch.NewClient(
			fetch.WithCacheDir(config.AppConfig.CacheDir()),
			fetch.WithRateLimit(config.AppConfig.RateLimit),
			fetch.WithMaxRetries(config.AppConfig.MaxRetries),
		)
		src, err := sources.New(sourceName, client, config.AppConfig.Sources[sourceName])
		if err != nil {
			return err
		}

		metrics.Register()

		mode := pipeline.ModeEnrich
		if importNew {
			mode = pipeline.ModeImportNew
		}
		p := pipeline.New(database.GlobalStore, tracker, pipeline.Options{
			Workers:         config.AppConfig.Workers,
			BatchSize:       config.AppConfig.BatchSize,
			AutoThreshold:   config.AppConfig.AutoThreshold,
			ReviewThreshold: config.AppConfig.ReviewThreshold,
			Mode:            mode,
			DryRun:          config.AppConfig.DryRun,
		})

		bar := progressbar.Default(-1, fmt.Sprintf("enriching from %s", src.FullName()))
		result, err := p.Run(cmd.Context(), &progressSource{Source: src, bar: bar})
		_ = bar.Finish()
		if err != nil {
			return err
		}

		if !config.AppConfig.DryRun {
			if err := pipeline.SaveReview(reviewQueuePath(), result.Ambiguous); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not save review queue: %v\n", err)
			}
		}

		s := result.Stats
		fmt.Printf("\nProcessed:  %d\n", s.Processed)
		fmt.Printf("Matched:    %d (enriched %d, no new data %d)\n", s.Matched, s.Enriched, s.NoNewData)
		fmt.Printf("Ambiguous:  %d (queued for review)\n", s.Ambiguous)
		fmt.Printf("Unmatched:  %d (imported %d)\n", s.Unmatched, s.NewImported)
		fmt.Printf("Fields:     %d filled, %d sources, %d photos\n", s.FieldsFilled, s.SourcesAdded, s.PhotosAdded)
		if s.Skipped > 0 {
			fmt.Printf("Skipped:    %d (already processed)\n", s.Skipped)
		}
		if s.Errors > 0 {
			fmt.Printf("Errors:     %d\n", s.Errors)
		}
		return nil
	},
}

// dedupCmd scans the whole store for duplicates.
var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Find and merge duplicate canonical records",
	Long: `Group canonical records by normalized name, score every pair, and
merge duplicates into their most complete member. Previews by default;
pass --apply to write merges. Records with death dates more than one day
apart never merge.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		apply, _ := cmd.Flags().GetBool("apply")
		noBackup, _ := cmd.Flags().GetBool("no-backup")

		// Merges delete records; snapshot the store first.
		if apply && !noBackup {
			info, err := backup.Create(config.AppConfig.DatabasePath, backup.Config{
				BackupDir:  filepath.Join(config.AppConfig.StateDir, "backups"),
				MaxBackups: 10,
			})
			if err != nil {
				return fmt.Errorf("refusing to merge without a backup: %w", err)
			}
			fmt.Printf("Backup:     %s\n", info.Path)
		}

		if err := openStore(); err != nil {
			return err
		}
		defer database.CloseStore()

		metrics.Register()

		result, err := pipeline.RunDedup(database.GlobalStore, pipeline.DedupOptions{
			AutoThreshold:   config.AppConfig.AutoThreshold,
			ReviewThreshold: config.AppConfig.ReviewThreshold,
			Apply:           apply,
		})
		if err != nil {
			return err
		}

		s := result.Stats
		fmt.Printf("Groups:     %d candidate groups\n", s.GroupsFound)
		fmt.Printf("Clusters:   %d auto-merge, %d in review band\n", s.AutoMerge, s.Review)
		for _, cluster := range result.Merged {
			for _, loser := range cluster.Losers {
				fmt.Printf("  %s <- %s (score %d: %s)\n",
					cluster.WinnerSlug, loser.Slug, loser.Score, strings.Join(loser.Reasons, ", "))
			}
		}
		if apply {
			fmt.Printf("Merged:     %d records deleted, %d sources and %d photos migrated\n",
				s.VictimsDeleted, s.SourcesMigrated, s.PhotosMigrated)
		} else if s.AutoMerge > 0 {
			fmt.Println("\nPreview only. Rerun with --apply to merge.")
		}
		return nil
	},
}

// statusCmd reports store and progress state.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store totals and per-source progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore(); err != nil {
			return err
		}
		defer database.CloseStore()

		count, err := database.GlobalStore.CountVictims()
		if err != nil {
			return err
		}
		fmt.Printf("Canonical records: %d\n", count)

		review, err := pipeline.LoadReview(reviewQueuePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: review queue unreadable: %v\n", err)
		}
		fmt.Printf("Review queue:      %d\n", len(review))

		tracker, err := progress.NewPebbleTracker(config.AppConfig.ProgressDir())
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: progress tracker unreadable: %v\n", err)
			return nil
		}
		defer tracker.Close()

		for _, name := range sources.List() {
			pos, err := tracker.Checkpoint(name)
			if err != nil || pos == "" {
				continue
			}
			fmt.Printf("  %-14s %s\n", name, pos)
		}
		return nil
	},
}

// sourcesCmd lists the available adapters.
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available source adapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range sources.List() {
			configured := ""
			if _, ok := config.AppConfig.Sources[name]; ok {
				configured = " (configured)"
			}
			fmt.Printf("%s%s\n", name, configured)
		}
		return nil
	},
}

// searchCmd runs a full-text query over the canonical store.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over canonical records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		if err := openStore(); err != nil {
			return err
		}
		defer database.CloseStore()

		victims, err := database.GlobalStore.GetAllVictims()
		if err != nil {
			return err
		}
		idx, err := search.Build(victims)
		if err != nil {
			return err
		}
		defer idx.Close()

		hits, err := idx.Query(strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for _, h := range hits {
			v := h.Victim
			line := fmt.Sprintf("%-30s %s", v.Slug, v.NameLatin)
			if v.Province != nil {
				line += fmt.Sprintf("  [%s]", *v.Province)
			}
			if v.DateOfDeath != nil {
				line += "  " + v.DateOfDeath.Format("2006-01-02")
			}
			fmt.Println(line)
		}
		return nil
	},
}

// serveCmd starts the review/metrics HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review queue, record lookup, and metrics over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore(); err != nil {
			return err
		}
		defer database.CloseStore()

		srv := server.NewServer(database.GlobalStore, reviewQueuePath())
		return srv.Start(server.Config{Addr: config.AppConfig.ListenAddr})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yaml next to the database)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "memorial.db", "path to the SQLite canonical store")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", ".enricher-state", "directory for progress tracking and the HTTP cache")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log decisions without writing to the store")
	rootCmd.PersistentFlags().Int("workers", 2, "pipeline worker count")
	rootCmd.PersistentFlags().Int("batch-size", 100, "records per progress checkpoint")
	rootCmd.PersistentFlags().Int("auto-threshold", 50, "score for confident auto-match")
	rootCmd.PersistentFlags().Int("review-threshold", 30, "score for the ambiguous review band")

	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("state_dir", rootCmd.PersistentFlags().Lookup("state-dir"))
	viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("batch_size", rootCmd.PersistentFlags().Lookup("batch-size"))
	viper.BindPFlag("auto_threshold", rootCmd.PersistentFlags().Lookup("auto-threshold"))
	viper.BindPFlag("review_threshold", rootCmd.PersistentFlags().Lookup("review-threshold"))

	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)

	enrichCmd.Flags().Bool("import-new", false, "create canonical records for unmatched names")
	dedupCmd.Flags().Bool("apply", false, "write merges instead of previewing")
	dedupCmd.Flags().Bool("no-backup", false, "skip the store snapshot before merging")
	searchCmd.Flags().Int("limit", 10, "maximum results")
	serveCmd.Flags().String("listen", ":8880", "listen address")
	viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("MEMORIAL")
	viper.AutomaticEnv()

	config.InitConfig()
	if err := config.LoadConfigFromFile(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if config.AppConfig.StateDir != "" {
		if err := os.MkdirAll(config.AppConfig.StateDir, 0o755); err != nil {
			fmt.Printf("Error creating state directory: %v\n", err)
		}
	}
	if dbDir := filepath.Dir(config.AppConfig.DatabasePath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			fmt.Printf("Error creating database directory: %v\n", err)
		}
	}
}
