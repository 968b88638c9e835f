package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/modules/analysis"
	"github.com/aristath/folio/internal/modules/charts"
	"github.com/aristath/folio/internal/modules/portfolio"
)

type stubValuation struct {
	valuation portfolio.Valuation
}

func (s *stubValuation) GetValuation() (*portfolio.Valuation, error) {
	return &s.valuation, nil
}

type stubTables struct {
	runCtx   *analysis.RunContext
	build    analysis.BuildResult
	rangeErr bool
}

func (s *stubTables) Tables(rangeSpec string) (*analysis.RunContext, analysis.BuildResult, error) {
	if s.rangeErr {
		return nil, analysis.BuildResult{}, fmt.Errorf("%w: %q", analysis.ErrInvalidRange, rangeSpec)
	}
	return s.runCtx, s.build, nil
}

type stubHistory struct {
	series map[string][]analysis.PricePoint
}

func (s *stubHistory) EnsureHistory(tickers []string, rangeSpec string) ([]string, error) {
	return nil, nil
}

func (s *stubHistory) GetCloses(tickers []string, rangeSpec string) (map[string][]analysis.PricePoint, error) {
	out := make(map[string][]analysis.PricePoint)
	for _, ticker := range tickers {
		out[ticker] = s.series[ticker]
	}
	return out, nil
}

type envelope struct {
	Data     json.RawMessage        `json:"data"`
	Metadata map[string]interface{} `json:"metadata"`
	Error    string                 `json:"error"`
}

func value(v float64) *float64 { return &v }

func setupRouter(valuation *stubValuation, tables *stubTables, history *stubHistory) chi.Router {
	service := charts.NewService(valuation, tables, history, "5y", zerolog.Nop())
	handler := NewHandler(service, zerolog.Nop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func seededRouter() chi.Router {
	valuation := &stubValuation{valuation: portfolio.Valuation{
		Positions: []portfolio.PositionValuation{
			{Ticker: "AAA", MarketValue: value(1500), WeightPct: value(62.5)},
			{Ticker: "BBB", MarketValue: value(900), WeightPct: value(37.5)},
		},
	}}
	tables := &stubTables{
		runCtx: &analysis.RunContext{
			RangeSpec: "5y",
			Shares:    map[string]float64{"AAA": 10},
		},
		build: analysis.BuildResult{
			Prices: analysis.PriceTable{
				Dates:   []string{"2024-01-02", "2024-01-03"},
				Columns: map[string][]float64{"AAA": {100, 110}},
			},
			Returns: analysis.ReturnTable{
				Dates:   []string{"2024-01-03"},
				Columns: map[string][]float64{"AAA": {0.1}},
			},
		},
	}
	history := &stubHistory{series: map[string][]analysis.PricePoint{
		"AAA": {
			{Date: "2024-01-02", Close: 100},
			{Date: "2024-01-03", Close: 110},
		},
	}}
	return setupRouter(valuation, tables, history)
}

func doGet(t *testing.T, router chi.Router, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestRegisterRoutes(t *testing.T) {
	router := seededRouter()

	paths := []string{
		"/charts/composition",
		"/charts/portfolio-value",
		"/charts/cumulative-returns",
		"/charts/price/AAA",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusNotFound, rec.Code, "route %s not registered", path)
	}
}

func TestHandleComposition(t *testing.T) {
	rec, env := doGet(t, seededRouter(), "/charts/composition")
	require.Equal(t, http.StatusOK, rec.Code)

	var slices []charts.CompositionSlice
	require.NoError(t, json.Unmarshal(env.Data, &slices))
	require.Len(t, slices, 2)
	assert.Equal(t, "AAA", slices[0].Ticker)
}

func TestHandlePortfolioValue(t *testing.T) {
	rec, env := doGet(t, seededRouter(), "/charts/portfolio-value?range=5y")
	require.Equal(t, http.StatusOK, rec.Code)

	var points []charts.ChartDataPoint
	require.NoError(t, json.Unmarshal(env.Data, &points))
	require.Len(t, points, 2)
	assert.Equal(t, 1000.0, points[0].Value)
	assert.Equal(t, 1100.0, points[1].Value)
}

func TestHandleCumulativeReturns(t *testing.T) {
	rec, env := doGet(t, seededRouter(), "/charts/cumulative-returns")
	require.Equal(t, http.StatusOK, rec.Code)

	var chart charts.CumulativeReturnsChart
	require.NoError(t, json.Unmarshal(env.Data, &chart))
	require.Contains(t, chart.Series, "AAA")
	assert.InDelta(t, 10.0, chart.Series["AAA"][0].Value, 1e-9)
	require.Len(t, chart.Portfolio, 2)
	assert.InDelta(t, 0.0, chart.Portfolio[0].Value, 1e-9)
}

func TestHandlePriceChart(t *testing.T) {
	rec, env := doGet(t, seededRouter(), "/charts/price/AAA?range=1y")
	require.Equal(t, http.StatusOK, rec.Code)

	var chart charts.PriceChart
	require.NoError(t, json.Unmarshal(env.Data, &chart))
	assert.Equal(t, "AAA", chart.Ticker)
	assert.Len(t, chart.Points, 2)
	assert.Nil(t, chart.SMA)
}

func TestHandlePriceChartInvalidRange(t *testing.T) {
	rec, env := doGet(t, seededRouter(), "/charts/price/AAA?range=weekly")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "invalid chart range")
}

func TestHandlePriceChartInvalidOverlayPeriod(t *testing.T) {
	rec, env := doGet(t, seededRouter(), "/charts/price/AAA?sma=abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "invalid sma period")

	rec, env = doGet(t, seededRouter(), "/charts/price/AAA?ema=-5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "invalid ema period")
}

func TestHandlePortfolioValueInvalidRange(t *testing.T) {
	router := setupRouter(&stubValuation{}, &stubTables{rangeErr: true}, &stubHistory{})

	rec, env := doGet(t, router, "/charts/portfolio-value?range=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "invalid analysis range")
}
