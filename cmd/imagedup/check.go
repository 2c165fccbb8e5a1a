package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkThreshold int

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Look up an image without registering it",
	Long: `Fingerprint an image and report the closest stored match, if any,
without writing anything to the library.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVarP(&checkThreshold, "threshold", "t", -1, "duplicate threshold (default: configured value)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	threshold := checkThreshold
	if threshold < 0 {
		threshold = viper.GetInt("threshold")
	}

	match, err := detector.FindDuplicate(getContext(), data, threshold)
	if err != nil {
		return err
	}
	if match == nil {
		fmt.Printf("%s: no duplicate within distance %d\n", args[0], threshold)
		return nil
	}

	fmt.Printf("%s: matches %s (%s)\n", args[0], match.Record.ID, match.Record.OriginalName)
	fmt.Printf("  distance:   %d\n", match.Distance)
	fmt.Printf("  similarity: %.1f%%\n", match.Similarity)
	fmt.Printf("  stored at:  %s\n", match.Record.StoragePath)
	return nil
}
