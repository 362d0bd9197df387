package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/poi-recon/internal/cache"
	"github.com/poi-recon/internal/config"
	"github.com/poi-recon/internal/enrich"
	"github.com/poi-recon/internal/export"
	"github.com/poi-recon/internal/ingest"
	"github.com/poi-recon/internal/match"
	"github.com/poi-recon/internal/review"
	"github.com/poi-recon/internal/session"
	"github.com/poi-recon/internal/suggest"
	"github.com/poi-recon/internal/web"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "reconciler",
		Short: "Restaurant POI reconciliation system",
		Long:  `Reconciles a map-extract restaurant dataset against business-listing records: scoring, auto-matching, human review, enrichment and export`,
	}

	rootCmd.AddCommand(createJobCmd())
	rootCmd.AddCommand(createImportCmd())
	rootCmd.AddCommand(createMatchCmd())
	rootCmd.AddCommand(createReviewCmd())
	rootCmd.AddCommand(createSuggestCmd())
	rootCmd.AddCommand(createLinkCmd())
	rootCmd.AddCommand(createFlagCmd())
	rootCmd.AddCommand(createEnrichCmd())
	rootCmd.AddCommand(createExportCmd())
	rootCmd.AddCommand(createCacheCmd())
	rootCmd.AddCommand(createServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func jobStore() *session.Store {
	return session.NewStore(config.JobStorePath())
}

func mustLoadJob(idOrName string) ([]*session.Job, *session.Job) {
	jobs, err := jobStore().Load()
	if err != nil {
		log.Fatalf("Failed to load jobs: %v", err)
	}
	job, err := session.Find(jobs, idOrName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return jobs, job
}

func mustSaveJobs(jobs []*session.Job) {
	if err := jobStore().Save(jobs); err != nil {
		log.Fatalf("Failed to save jobs: %v", err)
	}
}

// openCache loads the persistent unmatched memory cache. The caller closes
// the returned store.
func openCache() (*cache.Cache, *cache.Store) {
	store, err := cache.OpenStore(config.CachePath())
	if err != nil {
		log.Fatalf("Failed to open unmatched cache: %v", err)
	}
	entries, err := store.Load()
	if err != nil {
		log.Fatalf("Failed to load unmatched cache: %v", err)
	}
	return cache.New(entries), store
}

// createJobCmd creates job management subcommands
func createJobCmd() *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Manage reconciliation jobs",
	}

	var description string
	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new reconciliation job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			jobs, err := jobStore().Load()
			if err != nil {
				log.Fatalf("Failed to load jobs: %v", err)
			}
			job := session.NewJob(args[0], description, time.Now().UTC())
			jobs = append(jobs, job)
			mustSaveJobs(jobs)
			fmt.Printf("Created job %s (%s)\n", job.Name, job.ID)
		},
	}
	createCmd.Flags().StringVar(&description, "description", "", "Job description")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List reconciliation jobs",
		Run: func(cmd *cobra.Command, args []string) {
			jobs, err := jobStore().Load()
			if err != nil {
				log.Fatalf("Failed to load jobs: %v", err)
			}
			if len(jobs) == 0 {
				fmt.Println("No jobs found")
				return
			}
			for _, j := range jobs {
				fmt.Printf("%-36s  %-20s  %-12s  %d/%d matched\n",
					j.ID, j.Name, j.Status, len(j.Matches), len(j.Sources))
			}
		},
	}

	jobCmd.AddCommand(createCmd)
	jobCmd.AddCommand(listCmd)
	return jobCmd
}

// createImportCmd creates the import subcommand
func createImportCmd() *cobra.Command {
	var sourcesFile, listingsFile string

	importCmd := &cobra.Command{
		Use:   "import [job]",
		Short: "Import the two datasets into a job",
		Long:  `Import the map-extract CSV (dataset A) and the business-listing CSV (dataset B) into a job, replacing any previous matching state`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			jobs, job := mustLoadJob(args[0])

			sf, err := os.Open(sourcesFile)
			if err != nil {
				log.Fatalf("Failed to open sources file: %v", err)
			}
			defer sf.Close()
			sources, skippedA, err := ingest.ReadSources(sf)
			if err != nil {
				log.Fatalf("Failed to read sources: %v", err)
			}

			lf, err := os.Open(listingsFile)
			if err != nil {
				log.Fatalf("Failed to open listings file: %v", err)
			}
			defer lf.Close()
			listings, skippedB, err := ingest.ReadListings(lf)
			if err != nil {
				log.Fatalf("Failed to read listings: %v", err)
			}

			job.SetData(sources, listings, time.Now().UTC())
			mustSaveJobs(jobs)

			fmt.Printf("Imported %d source entities (%d skipped), %d listings (%d skipped)\n",
				len(sources), skippedA, len(listings), skippedB)
		},
	}

	importCmd.Flags().StringVar(&sourcesFile, "sources", "", "Map-extract CSV file")
	importCmd.Flags().StringVar(&listingsFile, "listings", "", "Business-listing CSV file")
	importCmd.MarkFlagRequired("sources")
	importCmd.MarkFlagRequired("listings")
	return importCmd
}

// createMatchCmd creates the auto-match subcommand
func createMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match [job]",
		Short: "Run the auto-matcher over a job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			jobs, job := mustLoadJob(args[0])
			if len(job.Sources) == 0 || len(job.Listings) == 0 {
				log.Fatalf("Job %s has no data; run import first", job.Name)
			}

			settings := config.MatchSettings()
			scorer := match.NewScorer(settings)

			start := time.Now()
			partition := match.AutoMatch(scorer, job.Sources, job.Listings, settings, time.Now().UTC())
			job.SetPartition(partition, time.Now().UTC())
			mustSaveJobs(jobs)

			stats := partition.Stats()
			fmt.Printf("Auto-match complete in %v\n\n", time.Since(start).Round(time.Millisecond))
			fmt.Printf("  Matched:            %d\n", stats.TotalMatched)
			fmt.Printf("    Auto-confirmed:   %d\n", stats.AutoConfirmed)
			fmt.Printf("    Needs review:     %d\n", stats.NeedsReview)
			fmt.Printf("  Confidence:         %d high / %d medium / %d low\n", stats.High, stats.Medium, stats.Low)
			fmt.Printf("  Unmatched sources:  %d\n", len(partition.UnmatchedSource))
			fmt.Printf("  Unmatched listings: %d\n", len(partition.UnmatchedListings))
		},
	}
}

// createReviewCmd creates the interactive review subcommand
func createReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review [job]",
		Short: "Interactively review pending matches",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			jobs, job := mustLoadJob(args[0])
			runInteractiveReview(jobs, job)
		},
	}
}

func runInteractiveReview(jobs []*session.Job, job *session.Job) {
	fmt.Printf("=== Reviewing job %s ===\n\n", job.Name)

	queue := review.NewQueue(job.Matches, job.ReviewIndex)
	reader := bufio.NewReader(os.Stdin)
	reviewed := 0

	for {
		m, idx, ok := queue.Current()
		if !ok {
			fmt.Println("No more matches requiring review!")
			break
		}

		fmt.Printf("--- Match %d (%d pending) ---\n", idx, queue.PendingCount())
		fmt.Printf("  Source:  %s", m.Source.Name)
		if m.Source.Street != "" {
			fmt.Printf(", %s", m.Source.Street)
		}
		fmt.Println()
		fmt.Printf("  Listing: %s", m.Listing.Title)
		if m.Listing.Street != "" {
			fmt.Printf(", %s", m.Listing.Street)
		}
		fmt.Println()
		fmt.Printf("  Score:   %.2f (%s, %s)\n", m.Score, m.Confidence, m.Method)

		fmt.Print("Confirm? (y)es / (n)o reject / (s)kip / (q)uit: ")
		response, _ := reader.ReadString('\n')
		choice := strings.ToLower(strings.TrimSpace(response))

		var target match.Status
		switch choice {
		case "y":
			target = match.StatusConfirmed
		case "n":
			target = match.StatusRejected
		case "s":
			target = match.StatusSkipped
		case "q":
			job.ReviewIndex = idx
			mustSaveJobs(jobs)
			fmt.Printf("\nReview session ended. Total reviewed: %d\n", reviewed)
			return
		default:
			fmt.Println("Please answer y, n, s or q")
			continue
		}

		cursor, err := queue.Apply(idx, target, time.Now().UTC())
		if err != nil {
			fmt.Printf("Error applying decision: %v\n", err)
			continue
		}
		reviewed++
		job.ReviewIndex = cursor
		if cursor < 0 {
			job.ReviewIndex = 0
		}
		mustSaveJobs(jobs)
		fmt.Printf("Decision recorded: %s\n\n", target)
	}

	fmt.Printf("\nReview session complete. Total reviewed: %d\n", reviewed)
}

// createSuggestCmd creates the suggestion subcommand
func createSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest [job] [external-id]",
		Short: "Rank unmatched listings against one unmatched source entity",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			_, job := mustLoadJob(args[0])

			src, err := job.FindUnmatchedSource(args[1])
			if err != nil {
				log.Fatalf("%v", err)
			}

			workingCache, store := openCache()
			defer store.Close()

			suggester := suggest.NewDeterministic(workingCache)
			suggestions, err := suggester.Suggest(context.Background(), src, job.UnmatchedListings)
			if err != nil {
				log.Fatalf("Suggestion failed: %v", err)
			}

			if len(suggestions) == 0 {
				fmt.Printf("No candidates above threshold for %q\n", src.Name)
				return
			}

			fmt.Printf("Candidates for %q:\n", src.Name)
			for i, s := range suggestions {
				seen := ""
				if s.SeenBefore {
					seen = fmt.Sprintf("  [seen %dx before]", s.SeenCount)
				}
				fmt.Printf("  %2d. %-40s %.2f  %s%s\n", i+1, s.Listing.Title, s.Confidence, s.Reason, seen)
			}
		},
	}
}

// createLinkCmd creates the manual link subcommand
func createLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link [job] [external-id] [listing-id]",
		Short: "Manually link an unmatched source entity to an unmatched listing",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			jobs, job := mustLoadJob(args[0])

			src, err := job.FindUnmatchedSource(args[1])
			if err != nil {
				log.Fatalf("%v", err)
			}
			listing, err := job.FindUnmatchedListing(args[2])
			if err != nil {
				log.Fatalf("%v", err)
			}

			settings := config.MatchSettings()
			m := job.Link(match.NewScorer(settings), src, listing, time.Now().UTC())
			mustSaveJobs(jobs)

			fmt.Printf("Linked %q to %q (score %.2f, %s)\n", src.Name, listing.Title, m.Score, m.Confidence)
		},
	}
}

// createFlagCmd creates the flag subcommand
func createFlagCmd() *cobra.Command {
	var side, reason, notes string

	flagCmd := &cobra.Command{
		Use:   "flag [job] [entity-id]",
		Short: "Set aside an unresolved entity with a reason",
		Long:  `Flag an unmatched entity, removing it from the pool and recording it in the unmatched memory cache so future sessions recognize it`,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			jobs, job := mustLoadJob(args[0])
			now := time.Now().UTC()

			workingCache, store := openCache()
			defer store.Close()

			var name string
			var key cache.Key
			switch side {
			case "map":
				src, err := job.FindUnmatchedSource(args[1])
				if err != nil {
					log.Fatalf("%v", err)
				}
				job.FlagSource(src, reason, notes, now)
				name = src.Name
				key = cache.Key{
					Name:    src.Name,
					Street:  src.Street,
					Lat:     src.Latitude,
					Lon:     src.Longitude,
					PlaceID: src.PlaceID,
				}
			case "listing":
				listing, err := job.FindUnmatchedListing(args[1])
				if err != nil {
					log.Fatalf("%v", err)
				}
				job.FlagListing(listing, reason, notes, now)
				name = listing.Title
				key = cache.Key{
					Name:    listing.Title,
					Street:  listing.Street,
					PlaceID: listing.KnownPlaceID(),
				}
				if listing.Latitude != nil && listing.Longitude != nil {
					key.Lat = *listing.Latitude
					key.Lon = *listing.Longitude
				}
			default:
				log.Fatalf("--side must be map or listing")
			}

			entry := workingCache.Record(key, side, now)
			if err := store.Replace(workingCache.Entries()); err != nil {
				log.Fatalf("Failed to persist unmatched cache: %v", err)
			}
			mustSaveJobs(jobs)

			fmt.Printf("Flagged %q (%s); cache has seen it %d time(s)\n", name, reason, entry.SeenCount)
		},
	}

	flagCmd.Flags().StringVar(&side, "side", "map", "Which pool the entity is in: map or listing")
	flagCmd.Flags().StringVar(&reason, "reason", "", "Why the entity cannot be resolved")
	flagCmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	flagCmd.MarkFlagRequired("reason")
	return flagCmd
}

// createEnrichCmd creates enrichment round-trip subcommands
func createEnrichCmd() *cobra.Command {
	enrichCmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrichment round trip for confirmed matches",
	}

	var out, area, city string
	exportCmd := &cobra.Command{
		Use:   "export [job]",
		Short: "Write the minimal projection CSV sent to the enrichment collaborator",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			_, job := mustLoadJob(args[0])

			f, err := os.Create(out)
			if err != nil {
				log.Fatalf("Failed to create output file: %v", err)
			}
			defer f.Close()

			rows := enrich.Project(job.Matches, area, city)
			if err := enrich.WriteProjectionCSV(f, rows); err != nil {
				log.Fatalf("Failed to write projection: %v", err)
			}
			fmt.Printf("Wrote %d rows to %s\n", len(rows), out)
		},
	}
	exportCmd.Flags().StringVar(&out, "out", "enrichment_projection.csv", "Output file")
	exportCmd.Flags().StringVar(&area, "area", "", "Area label")
	exportCmd.Flags().StringVar(&city, "city", "", "City label")

	applyCmd := &cobra.Command{
		Use:   "apply [job] [patches.csv]",
		Short: "Merge a returned patch CSV into the job's confirmed matches",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			jobs, job := mustLoadJob(args[0])

			f, err := os.Open(args[1])
			if err != nil {
				log.Fatalf("Failed to open patches file: %v", err)
			}
			defer f.Close()

			patches, skipped, err := enrich.ReadPatchesCSV(f)
			if err != nil {
				log.Fatalf("Failed to read patches: %v", err)
			}

			applied := enrich.Apply(job.Matches, patches)
			job.MarkEnriched(time.Now().UTC())
			mustSaveJobs(jobs)

			fmt.Printf("Applied %d of %d patches (%d rows skipped)\n", applied, len(patches), skipped)
		},
	}

	enrichCmd.AddCommand(exportCmd)
	enrichCmd.AddCommand(applyCmd)
	return enrichCmd
}

// createExportCmd creates export subcommands
func createExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export confirmed matches",
	}

	var out, area, city, country string
	csvCmd := &cobra.Command{
		Use:   "csv [job]",
		Short: "Export confirmed matches to CSV",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			_, job := mustLoadJob(args[0])

			f, err := os.Create(out)
			if err != nil {
				log.Fatalf("Failed to create output file: %v", err)
			}
			defer f.Close()

			records := export.Flatten(job.Matches, area, city, country)
			if err := export.WriteCSV(f, records); err != nil {
				log.Fatalf("Failed to write export: %v", err)
			}
			fmt.Printf("Exported %d confirmed matches to %s\n", len(records), out)
		},
	}
	csvCmd.Flags().StringVar(&out, "out", "reconciled.csv", "Output file")
	csvCmd.Flags().StringVar(&area, "area", "", "Area label")
	csvCmd.Flags().StringVar(&city, "city", "", "City label")
	csvCmd.Flags().StringVar(&country, "country", "", "Country label")

	var table string
	pgCmd := &cobra.Command{
		Use:   "postgres [job]",
		Short: "Upsert confirmed matches into a Postgres table",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			_, job := mustLoadJob(args[0])

			sink, err := export.OpenSink(table)
			if err != nil {
				log.Fatalf("Failed to connect to database: %v", err)
			}
			defer sink.Close()

			ctx := context.Background()
			if err := sink.EnsureSchema(ctx); err != nil {
				log.Fatalf("Failed to ensure schema: %v", err)
			}

			records := export.Flatten(job.Matches, area, city, country)
			n, err := sink.Upsert(ctx, records)
			if err != nil {
				log.Fatalf("Failed to upsert records: %v", err)
			}
			fmt.Printf("Upserted %d records\n", n)
		},
	}
	pgCmd.Flags().StringVar(&table, "table", "restaurants", "Destination table")
	pgCmd.Flags().StringVar(&area, "area", "", "Area label")
	pgCmd.Flags().StringVar(&city, "city", "", "City label")
	pgCmd.Flags().StringVar(&country, "country", "", "Country label")

	exportCmd.AddCommand(csvCmd)
	exportCmd.AddCommand(pgCmd)
	return exportCmd
}

// createCacheCmd creates unmatched-cache subcommands
func createCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the unmatched memory cache",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached unresolved entities",
		Run: func(cmd *cobra.Command, args []string) {
			workingCache, store := openCache()
			defer store.Close()

			entries := workingCache.Entries()
			if len(entries) == 0 {
				fmt.Println("Cache is empty")
				return
			}
			for _, e := range entries {
				fmt.Printf("%-30s  seen %dx  first %s  last %s\n",
					e.OriginalName, e.SeenCount,
					e.FirstSeenAt.Format("2006-01-02"), e.LastSeenAt.Format("2006-01-02"))
			}
		},
	}

	cacheCmd.AddCommand(listCmd)
	return cacheCmd
}

// createServeCmd creates the web server subcommand
func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the reconciliation HTTP API",
		Run: func(cmd *cobra.Command, args []string) {
			logger, err := zap.NewProduction()
			if err != nil {
				log.Fatalf("Failed to create logger: %v", err)
			}
			defer logger.Sync()

			server, err := web.NewServer(web.ConfigFromEnv(), jobStore(), config.MatchSettings(), config.CachePath(), logger)
			if err != nil {
				log.Fatalf("Failed to create server: %v", err)
			}
			if err := server.Start(); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		},
	}
}
