package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/use-agent/termharvest/api/handler"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/models"
	"github.com/use-agent/termharvest/parser"
)

// flagValues holds command-line overrides of the environment config.
type flagValues struct {
	envFile    string
	listingURL string
	output     string
	maxRows    int
	pages      int
	headless   bool
	fetchMode  string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&flagValues{})
}

func newRootCmdWith(fv *flagValues) *cobra.Command {
	root := &cobra.Command{
		Use:   "termharvest",
		Short: "Harvest multilingual term records from the EUIPO term portal",
		Long: `termharvest opens the term search listing in a browser, visits every
term detail page and writes the Russian, English and Polish terms to an
xlsx workbook.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, fv)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&fv.envFile, "env-file", ".env", "dotenv file to load before reading HARVEST_* variables")

	runFlags := root.Flags()
	runFlags.StringVar(&fv.listingURL, "listing-url", "", "listing page URL (overrides HARVEST_LISTING_URL)")
	runFlags.StringVarP(&fv.output, "output", "o", "", "output workbook path (overrides HARVEST_OUTPUT)")
	runFlags.IntVar(&fv.maxRows, "max-rows", 0, "stop after this many listing rows, 0 for all")
	runFlags.IntVar(&fv.pages, "pages", 1, "number of listing pages to walk")
	runFlags.BoolVar(&fv.headless, "headless", false, "run the browser without a window")
	runFlags.StringVar(&fv.fetchMode, "fetch-mode", "", "browser or auto (overrides HARVEST_FETCH_MODE)")

	root.AddCommand(newVersionCmd(), newSelectorsCmd(fv))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "termharvest version %s\n", handler.Version)
		},
	}
}

func newSelectorsCmd(fv *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "selectors",
		Short: "Validate and print the configured CSS selectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnvFile(fv.envFile)
			sel := config.Load().Portal.Selectors
			if err := parser.ValidateSelectors(sel); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "row            %s\n", sel.Row)
			fmt.Fprintf(out, "detail link    %s\n", sel.DetailLink)
			fmt.Fprintf(out, "master title   %s\n", sel.MasterTitle)
			fmt.Fprintf(out, "details row    %s\n", sel.DetailsRow)
			fmt.Fprintf(out, "language cell  %d\n", sel.LanguageCell)
			fmt.Fprintf(out, "term cell      %d\n", sel.TermCell)
			fmt.Fprintf(out, "min cells      >%d\n", sel.MinCells)
			return nil
		},
	}
}

// loadConfig reads the environment (after the dotenv file) and applies
// the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, fv *flagValues) (*config.Config, error) {
	loadEnvFile(fv.envFile)
	cfg := config.Load()
	applyFlags(cmd, fv, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, models.NewHarvestError(models.ErrCodeInvalidConfig, "invalid configuration", err)
	}
	if err := parser.ValidateSelectors(cfg.Portal.Selectors); err != nil {
		return nil, models.NewHarvestError(models.ErrCodeInvalidConfig, "invalid selectors", err)
	}
	return cfg, nil
}

// loadEnvFile loads a dotenv file if present. Variables already set in the
// environment win.
func loadEnvFile(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	_ = godotenv.Load(path)
}

func applyFlags(cmd *cobra.Command, fv *flagValues, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("listing-url") {
		cfg.Portal.ListingURL = fv.listingURL
	}
	if changed("output") {
		cfg.Output.Path = fv.output
	}
	if changed("max-rows") {
		cfg.Harvest.MaxRows = fv.maxRows
	}
	if changed("pages") {
		cfg.Portal.ListingPages = fv.pages
	}
	if changed("headless") {
		cfg.Browser.Headless = fv.headless
	}
	if changed("fetch-mode") {
		cfg.Engine.FetchMode = fv.fetchMode
	}
}
