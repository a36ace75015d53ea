package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/covid-dashboard/internal/model"
	"github.com/capitalize-ai/covid-dashboard/pkg/logger"
)

type fakeSource struct {
	rows    map[string][]model.CaseSeriesRow
	queried [][]string
	err     error
}

func (s *fakeSource) Countries(context.Context) ([]string, error) {
	return []string{"France", "India", "United States"}, s.err
}

func (s *fakeSource) CaseSeriesFor(_ context.Context, countries []string) ([]model.CaseSeriesRow, error) {
	s.queried = append(s.queried, countries)
	if s.err != nil {
		return nil, s.err
	}
	var out []model.CaseSeriesRow
	for _, c := range countries {
		out = append(out, s.rows[c]...)
	}
	return out, nil
}

func newCaseService() (*CaseService, *fakeSource) {
	d := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{rows: map[string][]model.CaseSeriesRow{
		"France": {{Date: d, Cases: 10, Country: "France"}},
		"India":  {{Date: d, Cases: 4, Country: "India"}},
	}}
	return NewCaseService(src, []string{"United States", "India", "France"}, logger.NewNop()), src
}

func TestCaseService_ChartFallbackWithoutCountries(t *testing.T) {
	svc, _ := newCaseService()

	res, err := svc.Chart(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NoCountryMessage, res.Fallback)
	assert.Empty(t, res.HTML)
}

func TestCaseService_ChartFallbackWhenNoRows(t *testing.T) {
	svc, _ := newCaseService()

	res, err := svc.Chart(context.Background(), []string{"Atlantis"})
	require.NoError(t, err)
	assert.Equal(t, NoCountryMessage, res.Fallback)
}

func TestCaseService_Chart(t *testing.T) {
	svc, _ := newCaseService()

	res, err := svc.Chart(context.Background(), []string{"France", "India"})
	require.NoError(t, err)
	assert.Empty(t, res.Fallback)
	assert.Contains(t, string(res.HTML), "France")
	assert.Contains(t, string(res.HTML), "India")
}

func TestCaseService_SeriesDedupes(t *testing.T) {
	svc, src := newCaseService()

	rows, err := svc.Series(context.Background(), []string{"India", "", "India", "France"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, [][]string{{"India", "France"}}, src.queried)
}

func TestCaseService_SourceError(t *testing.T) {
	svc, src := newCaseService()
	src.err = errors.New("warehouse unreachable")

	_, err := svc.Chart(context.Background(), []string{"France"})
	assert.Error(t, err)
}

func TestCaseService_DefaultSelectionIsACopy(t *testing.T) {
	svc, _ := newCaseService()

	sel := svc.DefaultSelection()
	sel[0] = "Mars"
	assert.Equal(t, []string{"United States", "India", "France"}, svc.DefaultSelection())
}
