package service

import (
	"bytes"
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/capitalize-ai/covid-dashboard/internal/chart"
	"github.com/capitalize-ai/covid-dashboard/internal/model"
	"github.com/capitalize-ai/covid-dashboard/pkg/logger"
	"github.com/capitalize-ai/covid-dashboard/pkg/metrics"
)

// NoCountryMessage replaces the chart when nothing can be plotted.
const NoCountryMessage = "⛔ Please select at least one country."

// CaseSource is the warehouse side of the dashboard.
type CaseSource interface {
	Countries(ctx context.Context) ([]string, error)
	CaseSeriesFor(ctx context.Context, countries []string) ([]model.CaseSeriesRow, error)
}

// ChartResult holds either a rendered chart page or the fallback message.
type ChartResult struct {
	HTML     []byte
	Fallback string
}

// CaseService answers country and case-series requests.
type CaseService struct {
	source   CaseSource
	defaults []string
	logger   *logger.Logger
}

// NewCaseService creates a new case service. defaults is the initial
// country selection.
func NewCaseService(source CaseSource, defaults []string, log *logger.Logger) *CaseService {
	return &CaseService{
		source:   source,
		defaults: append([]string(nil), defaults...),
		logger:   log,
	}
}

// Countries lists the selectable country labels.
func (s *CaseService) Countries(ctx context.Context) ([]string, error) {
	return s.source.Countries(ctx)
}

// DefaultSelection returns the preselected countries.
func (s *CaseService) DefaultSelection() []string {
	return append([]string(nil), s.defaults...)
}

// Series returns the rows of every selected country. Repeated selections are
// queried once.
func (s *CaseService) Series(ctx context.Context, countries []string) ([]model.CaseSeriesRow, error) {
	return s.source.CaseSeriesFor(ctx, dedupe(countries))
}

// Chart renders the selected countries. When there is nothing to plot the
// result carries NoCountryMessage instead of an error.
func (s *CaseService) Chart(ctx context.Context, countries []string) (*ChartResult, error) {
	rows, err := s.Series(ctx, countries)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = chart.Render(&buf, rows)
	if errors.Is(err, chart.ErrNoSeries) {
		metrics.ChartFallbacksTotal.Inc()
		s.logger.Debug("chart fallback", zap.Strings("countries", countries))
		return &ChartResult{Fallback: NoCountryMessage}, nil
	}
	if err != nil {
		return nil, err
	}

	return &ChartResult{HTML: buf.Bytes()}, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
