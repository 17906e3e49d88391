package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/query"
	"github.com/newthinker/optlab/internal/render"
)

// StrategyOption is one entry of the strategy select.
type StrategyOption struct {
	Value    core.Strategy
	Label    string
	Selected bool
}

// Form holds the values shown in the input form.
type Form struct {
	Strategies []StrategyOption
	Ticker     string
	MinExp     int
	MaxExp     int
	Delta      string
	Width      string
	Chart      bool
	Stats      bool
}

// IndexData is the data for index.html
type IndexData struct {
	Title     string
	Form      Form
	Submitted bool
	Error     string
	Result    *dto.BacktestResponse
	Chart     *Chart
	ExportURL string
}

var strategyLabels = map[core.Strategy]string{
	core.StrategyCoveredCall:    "Covered Call",
	core.StrategyCashSecuredPut: "Cash-Secured Put",
	core.StrategyIronCondor:     "Iron Condor",
}

// formDefaults is what the form shows before the first submit.
func formDefaults() query.BacktestRequest {
	req := query.Defaults()
	req.Ticker = "AAPL"
	return req
}

func newForm(req query.BacktestRequest, values url.Values) Form {
	f := Form{
		Ticker: req.Ticker,
		MinExp: req.MinExp,
		MaxExp: req.MaxExp,
		Delta:  render.Number(req.Delta),
		Width:  render.Number(req.Width),
		Chart:  values.Get("chart") == "on",
		Stats:  values.Get("stats") == "on",
	}
	for _, s := range core.Strategies() {
		f.Strategies = append(f.Strategies, StrategyOption{
			Value:    s,
			Label:    strategyLabels[s],
			Selected: s == req.Strategy,
		})
	}
	return f
}

// submitted reports whether the query carries any form field
func submitted(values url.Values) bool {
	for _, key := range []string{"strategy", "ticker", "min_exp", "max_exp", "delta", "width"} {
		if values.Has(key) {
			return true
		}
	}
	return false
}

// Index renders the form and, once submitted, the results.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	data := IndexData{Title: "Options Strategy Backtester"}

	if !submitted(values) {
		data.Form = newForm(formDefaults(), values)
		h.render(w, http.StatusOK, "index.html", data)
		return
	}

	data.Submitted = true
	req, err := decodeForm(values)
	data.Form = newForm(req, values)
	if err != nil {
		data.Error = errorText(err)
		h.render(w, http.StatusBadRequest, "index.html", data)
		return
	}

	resp, err := h.runner.Run(r.Context(), req)
	switch {
	case err != nil:
		h.logger.Warn("web backtest failed", zap.String("ticker", req.Ticker), zap.Error(err))
		data.Error = errorText(err)
	case resp.Failed():
		data.Error = resp.Error
	default:
		data.Result = resp
		if data.Form.Chart {
			data.Chart = NewChart(resp.ChartData)
		}
		if qs, err := req.QueryString(); err == nil {
			data.ExportURL = "/export.csv?" + qs
		}
	}
	h.render(w, http.StatusOK, "index.html", data)
}

// ExportCSV runs the backtest and returns the trades as CSV.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	req, err := decodeForm(r.URL.Query())
	if err != nil {
		http.Error(w, errorText(err), http.StatusBadRequest)
		return
	}

	resp, err := h.runner.Run(r.Context(), req)
	if err == nil && resp.Failed() {
		err = &core.Error{Code: resp.Code, Message: resp.Error}
	}
	if err != nil {
		h.logger.Warn("csv export failed", zap.String("ticker", req.Ticker), zap.Error(err))
		http.Error(w, errorText(err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		"attachment; filename="+strconv.Quote(req.Ticker+"-"+string(req.Strategy)+".csv"))
	if err := render.CSV(w, resp); err != nil {
		h.logger.Error("writing csv", zap.Error(err))
	}
}

// decodeForm reads the form on top of the form defaults.
func decodeForm(values url.Values) (query.BacktestRequest, error) {
	req, err := query.Decode(values)
	if err != nil {
		return req, err
	}
	if !values.Has("ticker") {
		req.Ticker = formDefaults().Ticker
	}
	return req, req.Validate()
}

// errorText is the message shown after "Error:". Transport failures get the
// generic fetch message.
func errorText(err error) string {
	var ce *core.Error
	if errors.As(err, &ce) && !errors.Is(err, core.ErrBackendUnavailable) {
		return ce.Detail()
	}
	return render.FetchFailed
}
