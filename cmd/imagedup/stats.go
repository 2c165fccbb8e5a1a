package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	recs, err := detector.Records(getContext())
	if err != nil {
		return err
	}

	var totalBytes int64
	unique := make(map[string]bool)
	formats := make(map[string]int)
	for _, rec := range recs {
		totalBytes += rec.Size
		unique[rec.Fingerprint.String()] = true
		formats[rec.Format]++
	}

	fmt.Printf("Images:              %d\n", len(recs))
	fmt.Printf("Unique fingerprints: %d\n", len(unique))
	fmt.Printf("Total size:          %.1f MB\n", float64(totalBytes)/(1<<20))
	fmt.Printf("Grid size:           %d (%d-bit fingerprints)\n",
		detector.GridSize(), detector.GridSize()*detector.GridSize())
	fmt.Printf("Threshold:           %d\n", detector.Threshold())
	fmt.Printf("Library:             %s\n", viper.GetString("library"))
	fmt.Printf("Index:               %s\n", viper.GetString("database"))
	if len(formats) > 0 {
		fmt.Println("Formats:")
		for format, n := range formats {
			if format == "" {
				format = "unknown"
			}
			fmt.Printf("  %-8s %d\n", format, n)
		}
	}
	return nil
}
