package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/folio/internal/stackfx"
)

var (
	deckCards    int
	deckGeometry stackfx.StaticGeometry
	deckSweep    int
	deckJSON     bool
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Print the deck pose for a track geometry",
	Long: `Computes scroll progress from the track geometry and prints each card's
arrival, burial depth and transform. With --sweep N the pose is printed at
N+1 evenly spaced progress values from 0 to 1 instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if deckCards < 1 {
			return fmt.Errorf("--cards must be at least 1")
		}
		params := stackfx.Params{StickyOffset: cfg.Deck.StickyOffset, ArrivalWindow: cfg.Deck.ArrivalWindow}

		type step struct {
			Progress float64             `json:"progress"`
			Cards    []stackfx.Transform `json:"cards"`
		}
		var steps []step
		if deckSweep > 0 {
			for i := 0; i <= deckSweep; i++ {
				p := float64(i) / float64(deckSweep)
				steps = append(steps, step{p, stackfx.Pose(deckCards, p, params.ArrivalWindow)})
			}
		} else {
			p := stackfx.Progress(deckGeometry, params.StickyOffset)
			steps = append(steps, step{p, stackfx.Pose(deckCards, p, params.ArrivalWindow)})
		}

		if deckJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(steps)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, s := range steps {
			fmt.Fprintf(w, "progress %.4f\n", s.Progress)
			fmt.Fprintln(w, "CARD\tARRIVAL\tBURIAL\tSTYLE")
			for _, t := range s.Cards {
				fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%s\n", t.Index, t.Arrival, t.Burial, t.CSS())
			}
			fmt.Fprintln(w)
		}
		return w.Flush()
	},
}

func init() {
	deckCmd.Flags().IntVar(&deckCards, "cards", 4, "number of cards in the deck")
	deckCmd.Flags().Float64Var(&deckGeometry.Top, "track-top", 0, "track top relative to the viewport")
	deckCmd.Flags().Float64Var(&deckGeometry.Height, "track-height", 2000, "track height in pixels")
	deckCmd.Flags().Float64Var(&deckGeometry.Viewport, "viewport", 800, "viewport height in pixels")
	deckCmd.Flags().IntVar(&deckSweep, "sweep", 0, "print the pose at N+1 progress steps")
	deckCmd.Flags().BoolVar(&deckJSON, "json", false, "print JSON")
	rootCmd.AddCommand(deckCmd)
}
