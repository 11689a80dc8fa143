package cmd

import (
	"fmt"
	"io"
	"strings"

	"sidehug/internal/textsplit"

	"github.com/spf13/cobra"
)

var (
	splitMax       int
	splitNarrative bool
)

// splitCmd previews how a reply would be chunked. Reads the text from the
// arguments or stdin.
var splitCmd = &cobra.Command{
	Use:   "split [text]",
	Short: "Show how a long reply is split into posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if text == "" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text = string(b)
		}
		max := splitMax
		if max <= 0 {
			max = GetConfig().Bot.MaxLength
		}
		chunks := textsplit.Split(text, max)
		if splitNarrative {
			chunks = textsplit.Narrative(chunks)
		}
		out := cmd.OutOrStdout()
		for i, c := range chunks {
			fmt.Fprintf(out, "--- %d/%d (%d chars)\n%s\n", i+1, len(chunks), len([]rune(c)), c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().IntVar(&splitMax, "max", 0, "max characters per post (default bot.max_length)")
	splitCmd.Flags().BoolVar(&splitNarrative, "narrative", false, "print chunks in reading order")
}
