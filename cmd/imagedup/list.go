package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered images",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	recs, err := detector.Records(getContext())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("Library is empty.")
		return nil
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].UploadedAt.Before(recs[j].UploadedAt)
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tDIMENSIONS\tUPLOADED\tFINGERPRINT")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%dx%d\t%s\t%s\n",
			rec.ID,
			rec.OriginalName,
			rec.Size,
			rec.Width, rec.Height,
			rec.UploadedAt.Format("2006-01-02 15:04"),
			rec.Fingerprint,
		)
	}
	return w.Flush()
}
