package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dhcgn/inbox-triage/model"
	"github.com/dhcgn/inbox-triage/output"
	"github.com/dhcgn/inbox-triage/stats"
)

// reportFields are the record fields tallied by the report, in print order.
var reportFields = []string{"priority", "category", "sender"}

// NewReportCommand builds the "report" subcommand, which summarises a results file.
func NewReportCommand() *cobra.Command {
	var (
		reportDir string
		topN      int
		noCSV     bool
	)

	cmd := &cobra.Command{
		Use:   "report [results file]",
		Short: "Show priority, category and sender statistics for a results file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := output.ReadRecords(args[0])
			if err != nil {
				return err
			}

			counter := Tally(records)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Records in %s: %d\n\n", args[0], len(records))
			for _, field := range reportFields {
				fmt.Fprintf(out, "Top %d %s:\n", topN, field)
				stats.PrettyPrintTop(out, counter[field], topN)
				fmt.Fprintln(out)
			}

			if noCSV {
				return nil
			}
			if err := saveCSVReports(counter, reportFields, reportDir, 1000); err != nil {
				return fmt.Errorf("error saving CSV reports: %w", err)
			}
			fmt.Fprintf(out, "Reports saved to directory: %s\n", reportDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reportDir, "output", "o", ".", "Output directory for CSV reports")
	cmd.Flags().IntVarP(&topN, "top", "t", 10, "Number of top items to display in statistics")
	cmd.Flags().BoolVar(&noCSV, "no-csv", false, "Only print statistics, do not write CSV files")
	return cmd
}

// Tally counts the values of each report field across records.
func Tally(records []model.Record) map[string]map[string]int {
	counter := make(map[string]map[string]int, len(reportFields))
	for _, field := range reportFields {
		counter[field] = make(map[string]int)
	}
	for _, rec := range records {
		counter["priority"][string(rec.Priority)]++
		counter["category"][string(rec.Category)]++
		if rec.Sender != "" {
			counter["sender"][rec.Sender]++
		}
	}
	return counter
}

func saveCSVReports(counter map[string]map[string]int, fields []string, dir string, limit int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, field := range fields {
		filePath := filepath.Join(dir, fmt.Sprintf("report_%s.csv", field))
		file, err := os.Create(filePath)
		if err != nil {
			return err
		}

		if err := writeCSV(file, counter[field], limit); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
	}

	return nil
}

func writeCSV(w io.Writer, counts map[string]int, limit int) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Value", "Count"}); err != nil {
		return err
	}
	for _, p := range stats.Top(counts, limit) {
		if err := writer.Write([]string{p.Key, strconv.Itoa(p.Value)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
