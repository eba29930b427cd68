package reports

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pgEdge/pgedge-salesdw/internal/db"
)

// Sums are cast to DOUBLE PRECISION so both backends scan into float64.

// YearTotal is total sales for one year.
type YearTotal struct {
	Year   int64
	Orders int64
	Sales  float64
	Profit float64
}

// SalesByYear sums sales and profit per order year.
func SalesByYear(ctx context.Context, q db.Querier) ([]YearTotal, error) {
	rows, err := q.Query(ctx, `
        SELECT d.order_year,
               COUNT(DISTINCT f.order_number),
               CAST(SUM(f.calc_sales) AS DOUBLE PRECISION),
               CAST(SUM(f.profit) AS DOUBLE PRECISION)
        FROM fact_sales f
        JOIN dim_date d ON d.date_key = f.date_key
        GROUP BY d.order_year
        ORDER BY d.order_year
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by year: %w", err)
	}
	defer rows.Close()

	var out []YearTotal
	for rows.Next() {
		var r YearTotal
		if err := rows.Scan(&r.Year, &r.Orders, &r.Sales, &r.Profit); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CustomerProfit is a customer's total profit.
type CustomerProfit struct {
	CustomerID int64
	Name       string
	Country    string
	Sales      float64
	Profit     float64
}

// TopCustomers ranks customers by profit.
func TopCustomers(ctx context.Context, q db.Querier, n int) ([]CustomerProfit, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := q.Query(ctx, `
        SELECT c.customer_id, c.customer_name, COALESCE(c.country, ''),
               CAST(SUM(f.calc_sales) AS DOUBLE PRECISION),
               CAST(SUM(f.profit) AS DOUBLE PRECISION) AS total_profit
        FROM fact_sales f
        JOIN dim_customer c ON c.customer_id = f.customer_id
        GROUP BY c.customer_id, c.customer_name, c.country
        ORDER BY total_profit DESC, c.customer_id
        LIMIT ?
    `, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top customers: %w", err)
	}
	defer rows.Close()

	var out []CustomerProfit
	for rows.Next() {
		var r CustomerProfit
		if err := rows.Scan(&r.CustomerID, &r.Name, &r.Country, &r.Sales, &r.Profit); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MonthTotal is total sales for one month.
type MonthTotal struct {
	Year  int64
	Month int64
	Lines int64
	Sales float64
}

// MonthlyTrend sums sales per year and month.
func MonthlyTrend(ctx context.Context, q db.Querier) ([]MonthTotal, error) {
	rows, err := q.Query(ctx, `
        SELECT d.order_year, d.order_month, COUNT(*),
               CAST(SUM(f.calc_sales) AS DOUBLE PRECISION)
        FROM fact_sales f
        JOIN dim_date d ON d.date_key = f.date_key
        GROUP BY d.order_year, d.order_month
        ORDER BY d.order_year, d.order_month
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly trend: %w", err)
	}
	defer rows.Close()

	var out []MonthTotal
	for rows.Next() {
		var r MonthTotal
		if err := rows.Scan(&r.Year, &r.Month, &r.Lines, &r.Sales); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LineTotal is total sales for one product line.
type LineTotal struct {
	ProductLine string
	Quantity    int64
	Sales       float64
	Profit      float64
}

// ProductLineTotals sums sales per product line.
func ProductLineTotals(ctx context.Context, q db.Querier) ([]LineTotal, error) {
	rows, err := q.Query(ctx, `
        SELECT COALESCE(p.product_line, ''),
               CAST(SUM(f.quantity_ordered) AS BIGINT),
               CAST(SUM(f.calc_sales) AS DOUBLE PRECISION) AS total_sales,
               CAST(SUM(f.profit) AS DOUBLE PRECISION)
        FROM fact_sales f
        JOIN dim_product p ON p.product_code = f.product_code
        GROUP BY p.product_line
        ORDER BY total_sales DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query product line totals: %w", err)
	}
	defer rows.Close()

	var out []LineTotal
	for rows.Next() {
		var r LineTotal
		if err := rows.Scan(&r.ProductLine, &r.Quantity, &r.Sales, &r.Profit); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DealSizeShare is the count and sales of one deal-size category.
type DealSizeShare struct {
	Category string
	Lines    int64
	Sales    float64
}

// DealSizeDistribution counts fact rows per deal-size category.
func DealSizeDistribution(ctx context.Context, q db.Querier) ([]DealSizeShare, error) {
	rows, err := q.Query(ctx, `
        SELECT deal_size_cat, COUNT(*),
               CAST(SUM(calc_sales) AS DOUBLE PRECISION)
        FROM fact_sales
        GROUP BY deal_size_cat
        ORDER BY CASE deal_size_cat WHEN 'Small' THEN 1 WHEN 'Medium' THEN 2 WHEN 'Large' THEN 3 ELSE 4 END
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query deal size distribution: %w", err)
	}
	defer rows.Close()

	var out []DealSizeShare
	for rows.Next() {
		var r DealSizeShare
		if err := rows.Scan(&r.Category, &r.Lines, &r.Sales); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func init() {
	Register(Definition{
		Name:        "sales_by_year",
		Description: "Total sales and profit per order year",
		Run: func(ctx context.Context, q db.Querier, _ Params) (*Table, error) {
			res, err := SalesByYear(ctx, q)
			if err != nil {
				return nil, err
			}
			t := &Table{Title: "Sales by year", Columns: []string{"YEAR", "ORDERS", "SALES", "PROFIT"}}
			for _, r := range res {
				t.Rows = append(t.Rows, []string{
					strconv.FormatInt(r.Year, 10), strconv.FormatInt(r.Orders, 10), money(r.Sales), money(r.Profit),
				})
			}
			return t, nil
		},
	})

	Register(Definition{
		Name:        "top_customers",
		Description: "Customers ranked by total profit",
		Run: func(ctx context.Context, q db.Querier, p Params) (*Table, error) {
			res, err := TopCustomers(ctx, q, p.TopN)
			if err != nil {
				return nil, err
			}
			t := &Table{Title: "Top customers by profit", Columns: []string{"ID", "CUSTOMER", "COUNTRY", "SALES", "PROFIT"}}
			for _, r := range res {
				t.Rows = append(t.Rows, []string{
					strconv.FormatInt(r.CustomerID, 10), r.Name, r.Country, money(r.Sales), money(r.Profit),
				})
			}
			return t, nil
		},
	})

	Register(Definition{
		Name:        "monthly_trend",
		Description: "Sales per month",
		Run: func(ctx context.Context, q db.Querier, _ Params) (*Table, error) {
			res, err := MonthlyTrend(ctx, q)
			if err != nil {
				return nil, err
			}
			t := &Table{Title: "Monthly trend", Columns: []string{"YEAR", "MONTH", "LINES", "SALES"}}
			for _, r := range res {
				t.Rows = append(t.Rows, []string{
					strconv.FormatInt(r.Year, 10), fmt.Sprintf("%02d", r.Month), strconv.FormatInt(r.Lines, 10), money(r.Sales),
				})
			}
			return t, nil
		},
	})

	Register(Definition{
		Name:        "product_lines",
		Description: "Quantity, sales, and profit per product line",
		Run: func(ctx context.Context, q db.Querier, _ Params) (*Table, error) {
			res, err := ProductLineTotals(ctx, q)
			if err != nil {
				return nil, err
			}
			t := &Table{Title: "Product line totals", Columns: []string{"PRODUCT LINE", "QUANTITY", "SALES", "PROFIT"}}
			for _, r := range res {
				t.Rows = append(t.Rows, []string{
					r.ProductLine, strconv.FormatInt(r.Quantity, 10), money(r.Sales), money(r.Profit),
				})
			}
			return t, nil
		},
	})

	Register(Definition{
		Name:        "deal_sizes",
		Description: "Order lines and sales per deal-size category",
		Run: func(ctx context.Context, q db.Querier, _ Params) (*Table, error) {
			res, err := DealSizeDistribution(ctx, q)
			if err != nil {
				return nil, err
			}
			t := &Table{Title: "Deal size distribution", Columns: []string{"DEAL SIZE", "LINES", "SALES"}}
			for _, r := range res {
				t.Rows = append(t.Rows, []string{r.Category, strconv.FormatInt(r.Lines, 10), money(r.Sales)})
			}
			return t, nil
		},
	})
}
