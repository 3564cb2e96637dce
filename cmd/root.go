package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Assemble and serve a fragment-built portfolio site",
	Long: `folio loads a portfolio page assembled from independently fetched HTML
fragments, hydrates it, and runs its interactive parts: a two-tier image
cache and the scroll-driven stacking deck. It works headlessly from the
command line and as a server in front of the static site.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".folio.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
