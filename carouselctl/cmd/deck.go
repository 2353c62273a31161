package cmd

import (
	"fmt"

	"github.com/bokamoso/signin/slide"
	"github.com/spf13/cobra"
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Check and print slide decks.",
}

var deckValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check that a deck file can be shown by the carousel.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deck, source, err := deckFromArgs(cmd, args)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d slides\n", source, deck.Len())

		return nil
	},
}

var deckShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print a deck. Without a file, prints the configured deck.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deck, _, err := deckFromArgs(cmd, args)
		if err != nil {
			return err
		}

		return slide.WriteDeck(cmd.OutOrStdout(), deck)
	},
}

func init() {
	rootCmd.AddCommand(deckCmd)
	deckCmd.AddCommand(deckValidateCmd)
	deckCmd.AddCommand(deckShowCmd)
}

// deckFromArgs loads the deck named on the command line, the configured deck
// file, or the built-in deck, in that order.
func deckFromArgs(cmd *cobra.Command, args []string) (slide.Deck, string, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return slide.Deck{}, "", err
		}

		path = cfg.DeckFile
	}

	if path == "" {
		return slide.DefaultDeck(), "built-in deck", nil
	}

	deck, err := slide.LoadDeck(path)
	if err != nil {
		return slide.Deck{}, "", fmt.Errorf("%s: %w", path, err)
	}

	return deck, path, nil
}
