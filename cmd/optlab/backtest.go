package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/app"
	"github.com/newthinker/optlab/internal/client"
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/logger"
	"github.com/newthinker/optlab/internal/query"
	"github.com/newthinker/optlab/internal/render"
	"github.com/newthinker/optlab/internal/service"
)

type backtestFlags struct {
	strategy string
	ticker   string
	minExp   int
	maxExp   int
	delta    float64
	width    float64
	riskFree float64
	backend  string
	chart    bool
	stats    bool
	csv      bool
	json     bool
}

var btFlags backtestFlags

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest and print the results",
	Long: `Run one backtest, either in-process or against a remote backend
(--backend or backend.url), and print the results block.`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&btFlags.strategy, "strategy", string(core.StrategyCoveredCall), "covered_call, cash_secured_put or iron_condor")
	f.StringVarP(&btFlags.ticker, "ticker", "t", "AAPL", "underlying symbol")
	f.IntVar(&btFlags.minExp, "min-exp", 30, "minimum days to expiration")
	f.IntVar(&btFlags.maxExp, "max-exp", 90, "maximum days to expiration")
	f.Float64Var(&btFlags.delta, "delta", 0.3, "target absolute delta")
	f.Float64Var(&btFlags.width, "width", 5, "iron condor wing width")
	f.Float64Var(&btFlags.riskFree, "risk-free", 0, "risk-free rate (default: configured source)")
	f.StringVar(&btFlags.backend, "backend", "", "backend base URL, e.g. http://127.0.0.1:5000")
	f.BoolVar(&btFlags.chart, "chart", false, "draw the profit chart")
	f.BoolVar(&btFlags.stats, "stats", false, "print summary statistics")
	f.BoolVar(&btFlags.csv, "csv", false, "write trades as CSV")
	f.BoolVar(&btFlags.json, "json", false, "write the raw JSON response")

	rootCmd.AddCommand(backtestCmd)
}

func (f backtestFlags) request(riskFreeSet bool) query.BacktestRequest {
	req := query.BacktestRequest{
		Strategy: core.Strategy(f.strategy),
		Ticker:   f.ticker,
		MinExp:   f.minExp,
		MaxExp:   f.maxExp,
		Delta:    f.delta,
		Width:    f.width,
	}
	if riskFreeSet {
		rf := f.riskFree
		req.RiskFree = &rf
	}
	req.Normalize()
	return req
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	req := btFlags.request(cmd.Flags().Changed("risk-free"))
	if err := req.Validate(); err != nil {
		return err
	}

	runner, err := newRunner(log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	resp, err := runner.Run(cmd.Context(), req)
	if err != nil {
		log.Debug("backtest failed", zap.Error(err))
		resp = failure(err)
	}
	if err := write(out, resp, btFlags); err != nil {
		return err
	}
	if resp == nil || resp.Failed() {
		return errReported
	}
	return nil
}

// newRunner picks the remote client or the in-process service
func newRunner(log *zap.Logger) (service.Runner, error) {
	cfg, err := loadConfig(log)
	if err != nil {
		return nil, err
	}
	if btFlags.backend != "" {
		cfg.Backend.URL = btFlags.backend
	}
	if cfg.Backend.URL != "" {
		return client.New(cfg.Backend.URL,
			client.WithTimeout(cfg.Backend.Timeout),
			client.WithLogger(logger.Named(log, "client"))), nil
	}

	// Archive and review only matter to the server
	cfg.Storage.Archive.Enabled = false
	cfg.LLM.Provider = ""
	application, err := app.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	return application.Service(), nil
}

// failure turns a run error into what the results block shows. Transport
// failures render as the generic fetch message.
func failure(err error) *dto.BacktestResponse {
	var ce *core.Error
	if !errors.As(err, &ce) || errors.Is(err, core.ErrBackendUnavailable) {
		return nil
	}
	return dto.ErrorResponse(ce.Code, ce.Detail())
}

func write(w io.Writer, resp *dto.BacktestResponse, f backtestFlags) error {
	switch {
	case f.json:
		if resp == nil {
			resp = dto.ErrorResponse(core.ErrBackendUnavailable.Code, render.FetchFailed)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case f.csv && resp != nil && !resp.Failed():
		return render.CSV(w, resp)
	}

	if err := render.Text(w, resp); err != nil {
		return err
	}
	if resp == nil || resp.Failed() {
		return nil
	}
	if f.stats {
		fmt.Fprintln(w)
		render.Stats(w, resp.Stats)
	}
	if f.chart {
		fmt.Fprintln(w)
		render.Chart(w, resp.ChartData)
	}
	return nil
}
