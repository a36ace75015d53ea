// Package warehouse runs the dashboard's read queries against the case table.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/capitalize-ai/covid-dashboard/internal/model"
	"github.com/capitalize-ai/covid-dashboard/pkg/metrics"
	"github.com/capitalize-ai/covid-dashboard/pkg/tracing"
)

// ErrUnsupportedDate is returned when a DATE column cannot be read as a date.
var ErrUnsupportedDate = errors.New("unsupported date value")

// Gateway executes the country and case-series queries.
type Gateway struct {
	db    *sql.DB
	table string
}

// NewGateway wraps an open database. table is trusted configuration and is
// placed into the query text as is.
func NewGateway(db *sql.DB, table string) *Gateway {
	return &Gateway{db: db, table: table}
}

// Countries returns the distinct country labels, sorted.
func (g *Gateway) Countries(ctx context.Context) (countries []string, err error) {
	ctx, done := g.observe(ctx, "countries")
	defer func() { done(err) }()

	query := fmt.Sprintf("SELECT COUNTRY_REGION FROM %s GROUP BY COUNTRY_REGION", g.table)
	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var country sql.NullString
		if err := rows.Scan(&country); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		if country.Valid && country.String != "" {
			countries = append(countries, country.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read countries: %w", err)
	}

	sort.Strings(countries)
	return countries, nil
}

// CaseSeries returns one country's rows ordered by date. Rows without a case
// count are skipped and negative corrections are reported as zero.
func (g *Gateway) CaseSeries(ctx context.Context, country string) (series []model.CaseSeriesRow, err error) {
	ctx, done := g.observe(ctx, "case_series")
	defer func() { done(err) }()

	query := fmt.Sprintf(
		"SELECT DATE, CASES, COUNTRY_REGION FROM %s WHERE COUNTRY_REGION = ? ORDER BY DATE",
		g.table,
	)
	rows, err := g.db.QueryContext(ctx, query, country)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases for %q: %w", country, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rawDate any
			cases   sql.NullInt64
			label   string
		)
		if err := rows.Scan(&rawDate, &cases, &label); err != nil {
			return nil, fmt.Errorf("failed to scan case row: %w", err)
		}
		if !cases.Valid {
			continue
		}
		date, err := parseDate(rawDate)
		if err != nil {
			return nil, err
		}
		series = append(series, model.CaseSeriesRow{
			Date:    date,
			Cases:   max(cases.Int64, 0),
			Country: label,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read case rows: %w", err)
	}

	return series, nil
}

// CaseSeriesFor concatenates the series of each country in selection order.
func (g *Gateway) CaseSeriesFor(ctx context.Context, countries []string) ([]model.CaseSeriesRow, error) {
	var all []model.CaseSeriesRow
	for _, country := range countries {
		rows, err := g.CaseSeries(ctx, country)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// Ping checks the warehouse connection.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// Close closes the underlying database.
func (g *Gateway) Close() error {
	return g.db.Close()
}

func (g *Gateway) observe(ctx context.Context, query string) (context.Context, func(error)) {
	ctx, span := tracing.Tracer().Start(ctx, "warehouse."+query)
	span.SetAttributes(attribute.String("warehouse.table", g.table))
	start := time.Now()

	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.RecordQuery(query, status, time.Since(start).Seconds())
		span.End()
	}
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, time.DateTime}

func parseDate(v any) (time.Time, error) {
	var s string
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		s = d
	case []byte:
		s = string(d)
	default:
		return time.Time{}, fmt.Errorf("%w: %T", ErrUnsupportedDate, v)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedDate, s)
}
