// Package chart turns case-series rows into a multi-series line chart.
package chart

import (
	"errors"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/capitalize-ai/covid-dashboard/internal/model"
)

// ErrNoSeries is returned when the rows contain no country label to plot.
var ErrNoSeries = errors.New("no series to plot")

const dateLayout = time.DateOnly

const legendTitle = "country"

// missing marks a day without data for a country.
const missing = "-"

// Series is one country's counts aligned to the chart's x axis.
type Series struct {
	Country string
	Values  []any
}

// Data is the chart's axis and series, before any rendering.
type Data struct {
	Dates  []string
	Series []Series
}

// Build aligns rows to a shared date axis: the ascending union of every row's
// date. Series follow the order in which countries first appear.
func Build(rows []model.CaseSeriesRow) (*Data, error) {
	var countries []string
	byCountry := make(map[string]map[string]int64)
	dateSet := make(map[string]struct{})

	for _, r := range rows {
		if r.Country == "" {
			continue
		}
		counts, ok := byCountry[r.Country]
		if !ok {
			counts = make(map[string]int64)
			byCountry[r.Country] = counts
			countries = append(countries, r.Country)
		}
		d := r.Date.Format(dateLayout)
		counts[d] += r.Cases
		dateSet[d] = struct{}{}
	}

	if len(countries) == 0 {
		return nil, ErrNoSeries
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	data := &Data{Dates: dates}
	for _, country := range countries {
		counts := byCountry[country]
		values := make([]any, len(dates))
		for i, d := range dates {
			if v, ok := counts[d]; ok {
				values[i] = v
			} else {
				values[i] = missing
			}
		}
		data.Series = append(data.Series, Series{Country: country, Values: values})
	}

	return data, nil
}

// CaseChart builds the line chart: x is the date, y the case count, one line
// per country.
func CaseChart(rows []model.CaseSeriesRow) (*charts.Line, error) {
	data, err := Build(rows)
	if err != nil {
		return nil, err
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "COVID-19 cases",
			Width:     "100%",
			Height:    "420px",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Left: "center", Bottom: "0"}),
		// echarts legends carry no heading of their own.
		charts.WithTitleOpts(opts.Title{
			Title:      legendTitle,
			Left:       "center",
			Bottom:     "24",
			TitleStyle: &opts.TextStyle{FontSize: 12},
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "date", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "number of cases", Type: "value"}),
	)

	line.SetXAxis(data.Dates)
	for _, s := range data.Series {
		points := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			points[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.Country, points)
	}

	return line, nil
}

// Render writes the chart as a standalone HTML page.
func Render(w io.Writer, rows []model.CaseSeriesRow) error {
	line, err := CaseChart(rows)
	if err != nil {
		return err
	}
	return line.Render(w)
}
