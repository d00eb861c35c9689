package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/service"
	"github.com/spf13/cobra"
)

var jsonOutput bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the sales report",
	Long: `Scan every order and print the same sales report the admin API serves.

Examples:
  farmfresh report          # human readable tables
  farmfresh report --json   # JSON, as returned by /api/admin/reports/sales`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd)
	},
}

func init() {
	reportCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	report, err := service.NewReportService(newRepositories(db).orders, loc).SalesReport(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(cmd.OutOrStdout(), report)
}

func printReport(out io.Writer, r *domain.SalesReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Orders\t%d\n", r.TotalOrders)
	fmt.Fprintf(w, "Revenue\t%.2f\n", r.TotalRevenue)
	fmt.Fprintf(w, "Delivered revenue\t%.2f\n", r.DeliveredRevenue)
	fmt.Fprintf(w, "Today\t%.2f\n", r.TodayRevenue)
	fmt.Fprintf(w, "This month\t%.2f\n", r.MonthRevenue)

	fmt.Fprintln(w, "\nSTATUS\tORDERS")
	for _, s := range r.StatusBreakdown {
		fmt.Fprintf(w, "%s\t%d\n", s.Status, s.Count)
	}

	fmt.Fprintln(w, "\nDATE\tREVENUE")
	for _, d := range r.DailySales {
		fmt.Fprintf(w, "%s\t%.2f\n", d.Date, d.Revenue)
	}

	fmt.Fprintln(w, "\nPRODUCT\tUNITS")
	for _, p := range r.TopProducts {
		fmt.Fprintf(w, "%s\t%g\n", p.Name, p.Units)
	}
	return w.Flush()
}
