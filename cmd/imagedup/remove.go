package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "rm ID...",
	Aliases: []string{"remove"},
	Short:   "Remove images from the library",
	Long: `Remove stored images by record ID. The stored file and the index
entry are deleted together, so the fingerprint no longer blocks future
uploads of the same image.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := getContext()
	for _, id := range args {
		if err := detector.Remove(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		fmt.Printf("removed %s\n", id)
	}
	return nil
}
