// reconcile-invoices recomputes header totals from item and promotion lines and reports drift.
//
// Usage:
//
//	go run ./cmd/reconcile-invoices -from 2026-01-01 -to 2026-01-31
//	go run ./cmd/reconcile-invoices -from 2026-01-01 -apply
//	go run ./cmd/reconcile-invoices -xlsx drift.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/refinehaus/clinic_backend/config"
	"github.com/refinehaus/clinic_backend/models"
	"github.com/refinehaus/clinic_backend/promotion"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type drift struct {
	Invoice  models.SellInvoice
	Computed models.InvoiceTotals
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code: 0 ok, 1 runtime failure, 2 bad arguments.
func run(args []string) int {
	fs := flag.NewFlagSet("reconcile-invoices", flag.ContinueOnError)
	from := fs.String("from", "", "Optional: first issue date (YYYY-MM-DD, inclusive).")
	to := fs.String("to", "", "Optional: last issue date (YYYY-MM-DD, inclusive).")
	apply := fs.Bool("apply", false, "Rewrite drifted invoice headers (default: report only).")
	xlsx := fs.String("xlsx", "", "Optional: write the drift report to this .xlsx file.")
	attempts := fs.Int("connect-attempts", 5, "Database connect attempts before giving up.")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	fromDate, err := parseDay(*from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from: %v\n", err)
		return 2
	}
	toDate, err := parseDay(*to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -to: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := config.ConnectDatabaseWithRetry(ctx, *attempts); err != nil {
		fmt.Fprintf(os.Stderr, "database not available: %v. Set DB_* env vars.\n", err)
		return 1
	}
	defer config.CloseDatabase()
	db := config.GetDB()

	q := db.WithContext(ctx).Model(&models.SellInvoice{}).Where("status <> ?", models.InvoiceStatusVoided)
	if fromDate != nil {
		q = q.Where("issue_at >= ?", *fromDate)
	}
	if toDate != nil {
		q = q.Where("issue_at < ?", toDate.AddDate(0, 0, 1))
	}

	var invoices []models.SellInvoice
	if err := q.Order("sell_invoice_id").Find(&invoices).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list invoices: %v\n", err)
		return 1
	}

	var drifts []drift
	for _, inv := range invoices {
		store := models.NewBookingTx(db)
		items, err := store.ListInvoiceItems(ctx, inv.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invoice %s: %v\n", inv.InvoiceNo, err)
			continue
		}
		lines, err := store.ListPromotionLines(ctx, inv.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invoice %s: %v\n", inv.InvoiceNo, err)
			continue
		}
		computed := promotion.ComputeTotals(items, lines)
		if sameTotals(inv.Totals(), computed) {
			continue
		}
		drifts = append(drifts, drift{Invoice: inv, Computed: computed})
		fmt.Printf("%s stored total=%s discount=%s final=%s computed total=%s discount=%s final=%s\n",
			inv.InvoiceNo,
			inv.TotalAmount.StringFixed(2), inv.DiscountAmount.StringFixed(2), inv.FinalAmount.StringFixed(2),
			computed.TotalAmount.StringFixed(2), computed.DiscountAmount.StringFixed(2), computed.FinalAmount.StringFixed(2))

		if *apply {
			err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				_, err := promotion.NewReconciler(models.NewBookingTx(tx)).Reconcile(ctx, inv.ID)
				return err
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "invoice %s: reconcile failed: %v\n", inv.InvoiceNo, err)
			}
		}
	}

	fmt.Printf("checked=%d drifted=%d applied=%v\n", len(invoices), len(drifts), *apply)

	if strings.TrimSpace(*xlsx) != "" {
		if err := exportDrifts(drifts, strings.TrimSpace(*xlsx)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", *xlsx, err)
			return 1
		}
	}
	return 0
}

// parseDay reads a YYYY-MM-DD flag value; empty means unbounded.
func parseDay(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func sameTotals(a, b models.InvoiceTotals) bool {
	return a.TotalAmount.Equal(b.TotalAmount) &&
		a.DiscountAmount.Equal(b.DiscountAmount) &&
		a.FinalAmount.Equal(b.FinalAmount)
}

func exportDrifts(drifts []drift, filename string) error {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headings := []string{"InvoiceNo", "IssueAt", "StoredTotal", "StoredDiscount", "StoredFinal", "ComputedTotal", "ComputedDiscount", "ComputedFinal"}
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	for i, d := range drifts {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, d.Invoice.InvoiceNo)
		f.SetCellValue(sheetName, "B"+row, d.Invoice.IssueAt.Format(time.RFC3339))
		f.SetCellValue(sheetName, "C"+row, d.Invoice.TotalAmount.InexactFloat64())
		f.SetCellValue(sheetName, "D"+row, d.Invoice.DiscountAmount.InexactFloat64())
		f.SetCellValue(sheetName, "E"+row, d.Invoice.FinalAmount.InexactFloat64())
		f.SetCellValue(sheetName, "F"+row, d.Computed.TotalAmount.InexactFloat64())
		f.SetCellValue(sheetName, "G"+row, d.Computed.DiscountAmount.InexactFloat64())
		f.SetCellValue(sheetName, "H"+row, d.Computed.FinalAmount.InexactFloat64())
	}

	return f.SaveAs(filename)
}
