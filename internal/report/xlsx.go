// Package report exports a dashboard summary as an Excel workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ecommerce-dashboard/internal/models"
)

const (
	SheetSummary    = "Summary"
	SheetDaily      = "Daily Orders"
	SheetProducts   = "Products"
	SheetStates     = "States"
	SheetReviews    = "Reviews"
	SheetCategories = "Categories"
)

// ContentType is the MIME type of the workbook produced by Write.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name    string
	headers []string
	rows    [][]any
}

// Write renders s as a workbook with one sheet per aggregate and writes it to w.
func Write(w io.Writer, s models.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := sheetsOf(s)
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if err := fill(f, sh); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func fill(f *excelize.File, sh sheet) error {
	header := make([]any, len(sh.headers))
	for i, h := range sh.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sh.name, err)
	}

	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sh.name, i+2, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(sh.headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sh.name, "A", last, 24)
}

func sheetsOf(s models.Summary) []sheet {
	summary := sheet{
		name:    SheetSummary,
		headers: []string{"Metric", "Value"},
		rows: [][]any{
			{"Start", s.Range.Start.Format(models.DayLayout)},
			{"End", s.Range.End.Format(models.DayLayout)},
			{"Rows", s.Rows},
			{"Total Revenue", s.TotalRevenue.InexactFloat64()},
			{"Average Daily Revenue", s.AverageDaily.InexactFloat64()},
		},
	}

	daily := sheet{name: SheetDaily, headers: []string{"order_approved_at", "total_orders", "total_revenue"}}
	for _, d := range s.DailyOrders {
		daily.rows = append(daily.rows, []any{d.Day.Format(models.DayLayout), d.TotalOrders, d.TotalRevenue.InexactFloat64()})
	}

	products := sheet{name: SheetProducts, headers: []string{"product_category_name_english", "total_sold"}}
	for _, p := range s.ProductSales {
		products.rows = append(products.rows, []any{p.Category, p.TotalSold})
	}

	states := sheet{name: SheetStates, headers: []string{"customer_state", "num_customers"}}
	for _, st := range s.StateCustomers {
		states.rows = append(states.rows, []any{st.State, st.NumCustomers})
	}

	reviews := sheet{name: SheetReviews, headers: []string{"rating", "count"}}
	for _, r := range s.Reviews.Counts {
		reviews.rows = append(reviews.rows, []any{r.Score, r.Count})
	}

	categories := sheet{name: SheetCategories, headers: []string{"product_category_name_english", "products"}}
	for _, c := range s.CategoryOrders {
		categories.rows = append(categories.rows, []any{c.Category, c.Products})
	}

	return []sheet{summary, daily, products, states, reviews, categories}
}
