package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/law-makers/mtgmeta/internal/ui"
	"github.com/law-makers/mtgmeta/internal/utils/output"
	"github.com/law-makers/mtgmeta/pkg/models"
)

func newMetagameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metagame",
		Short: "Scrape or show the archetype breakdown of a format",
		Long: `Scrape or show the ranked archetype breakdown of a format.

Valid formats: ` + models.FormatList(),
	}

	cmd.AddCommand(newMetagameScrapeCmd(), newMetagameShowCmd())
	return cmd
}

func newMetagameScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <format>",
		Short: "Scrape the current metagame of a format",
		Example: `  # Scrape the modern metagame and store today's snapshot
  mtgmeta metagame scrape modern

  # Use plain HTTP instead of headless Chrome
  mtgmeta metagame scrape pauper --engine static`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatArg(args[0])
			if err != nil {
				return err
			}

			a := GetAppFromCmd(cmd)
			snap, err := a.Metagame.Scrape(cmd.Context(), format)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s %d archetypes scraped for %s\n",
				ui.Success("✓"), len(snap.Decks), ui.Bold(format.String()))
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
}

func newMetagameShowCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "show <format>",
		Short: "Show the stored metagame of a format",
		Example: `  mtgmeta metagame show modern

  # Export the breakdown as CSV
  mtgmeta metagame show modern --output modern.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatArg(args[0])
			if err != nil {
				return err
			}

			a := GetAppFromCmd(cmd)
			snap, err := a.Metagame.ReadLatest(cmd.Context(), format)
			if err != nil {
				return err
			}
			if snap == nil {
				return fmt.Errorf("no metagame data found for %s: run 'mtgmeta metagame scrape %s' first", format, format)
			}

			if outputFile != "" {
				if err := output.SaveMetagame(snap, outputFile); err != nil {
					return fmt.Errorf("failed to save output: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s Saved to %s\n", ui.Success("✓"), outputFile)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write to a file instead of stdout (.json or .csv)")
	return cmd
}
