package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/mtgmeta/internal/app"
	"github.com/law-makers/mtgmeta/internal/deck"
	"github.com/law-makers/mtgmeta/internal/ui"
	"github.com/law-makers/mtgmeta/internal/utils/output"
	urlutil "github.com/law-makers/mtgmeta/internal/utils/url"
	"github.com/law-makers/mtgmeta/pkg/models"
)

// MaxTopLimit caps how many archetypes a single top run may scrape
const MaxTopLimit = 100

func newDeckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Scrape, list or show archetype deck lists",
		Long: `Scrape the representative deck list of archetypes and read stored ones.

Batch commands (top, all) are driven by the stored metagame of the format,
so run 'mtgmeta metagame scrape <format>' first.`,
	}

	cmd.AddCommand(
		newDeckScrapeCmd(),
		newDeckTopCmd(),
		newDeckAllCmd(),
		newDeckShowCmd(),
		newDeckListCmd(),
		newDeckHistoryCmd(),
	)
	return cmd
}

func newDeckScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <archetype-url>",
		Short: "Scrape the deck of a single archetype",
		Example: `  mtgmeta deck scrape /archetype/modern-boros-energy

  # Full links copied from the browser work too
  mtgmeta deck scrape "https://www.mtggoldfish.com/archetype/modern-boros-energy#paper"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := GetAppFromCmd(cmd)

			path, err := urlutil.SitePath(a.Config.BaseURL, args[0])
			if err != nil {
				return err
			}

			snap, err := a.Decks.ScrapeOne(cmd.Context(), path)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %d main, %d sideboard cards\n",
				ui.Success("✓"), ui.Bold(snap.ArchetypeSlug), len(snap.Mainboard), len(snap.Sideboard))
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
}

func newDeckTopCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top <format>",
		Short: "Scrape the decks of the top archetypes of a format",
		Example: `  # Scrape the five most played modern archetypes
  mtgmeta deck top modern --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatArg(args[0])
			if err != nil {
				return err
			}
			if limit < 1 || limit > MaxTopLimit {
				return fmt.Errorf("--limit must be between 1 and %d, got %d", MaxTopLimit, limit)
			}

			a := GetAppFromCmd(cmd)
			return runBatch(cmd, a, func(ctx context.Context, progress deck.ProgressFunc) (*models.BatchResult, error) {
				return a.Decks.ScrapeTop(ctx, format, limit, progress)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, fmt.Sprintf("Number of archetypes to scrape (1-%d)", MaxTopLimit))
	return cmd
}

func newDeckAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all <format>",
		Short: "Scrape the decks of every archetype of a format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatArg(args[0])
			if err != nil {
				return err
			}

			a := GetAppFromCmd(cmd)
			return runBatch(cmd, a, func(ctx context.Context, progress deck.ProgressFunc) (*models.BatchResult, error) {
				return a.Decks.ScrapeAll(ctx, format, progress)
			})
		},
	}
}

// runBatch drives a deck batch with a progress bar on stderr and prints the
// result, partial or not, on stdout.
func runBatch(cmd *cobra.Command, a *app.Application, scrape func(context.Context, deck.ProgressFunc) (*models.BatchResult, error)) error {
	errOut := cmd.ErrOrStderr()

	var bar *progressbar.ProgressBar
	progress := func(done, total int, name string) {
		if bar == nil {
			bar = newProgressBar(errOut, total, a.Config.LogLevel)
		}
		bar.Describe(name)
		_ = bar.Set(done)
	}

	result, err := scrape(cmd.Context(), progress)
	if bar != nil {
		_ = bar.Finish()
	}
	if result == nil {
		return err
	}

	printBatchSummary(errOut, result)
	if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
		return perr
	}
	return err
}

func newProgressBar(w io.Writer, total int, logLevel string) *progressbar.ProgressBar {
	// Debug logs and quiet mode both make a redrawn bar unwelcome
	visible := stderrIsTerminal(w) && logLevel != "debug" && logLevel != "error"

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionSetDescription("Scraping decks"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
}

func printBatchSummary(w io.Writer, result *models.BatchResult) {
	fmt.Fprintf(w, "%s %d decks scraped", ui.Success("✓"), len(result.Results))
	if len(result.Errors) == 0 {
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, ", %s\n", ui.Error(fmt.Sprintf("%d failed", len(result.Errors))))
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s %s\n", ui.Bold(e.Name), ui.Info(e.Error))
	}
}

func newDeckShowCmd() *cobra.Command {
	var date, outputFile string

	cmd := &cobra.Command{
		Use:   "show <format> <slug>",
		Short: "Show a stored deck snapshot",
		Example: `  # Latest snapshot
  mtgmeta deck show modern boros-energy

  # A specific day, exported as CSV
  mtgmeta deck show modern boros-energy --date 2024-03-01 --output burn.csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatArg(args[0])
			if err != nil {
				return err
			}
			slug := strings.ToLower(args[1])

			a := GetAppFromCmd(cmd)
			snap, err := a.Decks.GetFromFile(cmd.Context(), format, slug, date)
			if err != nil {
				return err
			}
			if snap == nil {
				return fmt.Errorf("no deck data found for %s/%s: run the scraper first", format, slug)
			}

			if outputFile != "" {
				if err := output.SaveDeck(snap, outputFile); err != nil {
					return fmt.Errorf("failed to save output: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s Saved to %s\n", ui.Success("✓"), outputFile)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Snapshot date (YYYY-MM-DD), latest when empty")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write to a file instead of stdout (.json or .csv)")
	return cmd
}

// deckList is the output of deck list
type deckList struct {
	Format models.Format `json:"format"`
	Decks  []string      `json:"decks"`
}

func newDeckListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <format>",
		Short: "List the archetypes with stored decks in a format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatArg(args[0])
			if err != nil {
				return err
			}

			slugs, err := GetAppFromCmd(cmd).Decks.ListFor(cmd.Context(), format)
			if err != nil {
				return err
			}
			if slugs == nil {
				slugs = []string{}
			}
			return printJSON(cmd.OutOrStdout(), deckList{Format: format, Decks: slugs})
		},
	}
}

// deckHistory is the output of deck history
type deckHistory struct {
	Format   models.Format `json:"format"`
	DeckSlug string        `json:"deckSlug"`
	Dates    []string      `json:"dates"`
}

func newDeckHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <format> <slug>",
		Short: "List the dates a deck was scraped on, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatArg(args[0])
			if err != nil {
				return err
			}
			slug := strings.ToLower(args[1])

			dates, err := GetAppFromCmd(cmd).Decks.History(cmd.Context(), format, slug)
			if err != nil {
				return err
			}
			if len(dates) == 0 {
				return fmt.Errorf("no history found for %s/%s: run the scraper first", format, slug)
			}
			return printJSON(cmd.OutOrStdout(), deckHistory{Format: format, DeckSlug: slug, Dates: dates})
		},
	}
}
