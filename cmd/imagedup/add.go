package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	imagedup "github.com/anatolykoptev/go-imagedup"
)

var (
	addAllowDuplicates bool
	addThreshold       int
	addExact           bool
)

var addCmd = &cobra.Command{
	Use:   "add FILE...",
	Short: "Register images in the library",
	Long: `Register one or more image files.

Each file is fingerprinted and compared against the library; files that
match a stored image within the duplicate threshold are rejected and the
closest match is shown. Already-registered files in the same invocation do
not stop the remaining ones from being processed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&addAllowDuplicates, "allow-duplicates", false, "store the image even when a duplicate exists")
	addCmd.Flags().IntVarP(&addThreshold, "threshold", "t", 0, "override the duplicate threshold for this run")
	addCmd.Flags().BoolVar(&addExact, "exact", false, "only bit-identical fingerprints count as duplicates")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := getContext()
	var failed bool

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}

		opts := imagedup.RegisterOpts{
			OriginalName:    filepath.Base(path),
			AllowDuplicates: addAllowDuplicates,
			Threshold:       addThreshold,
		}
		if addExact {
			opts.Threshold = imagedup.ExactOnly
		}

		rec, err := detector.Register(ctx, data, opts)
		if match, ok := imagedup.AsDuplicate(err); ok {
			fmt.Printf("%s: duplicate of %s (%s, distance %d, %.1f%% similar)\n",
				path, match.Record.ID, match.Record.OriginalName, match.Distance, match.Similarity)
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("%s: added as %s\n", path, rec.ID)
	}

	if failed {
		return fmt.Errorf("some files could not be added")
	}
	return nil
}
