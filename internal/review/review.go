// Package review asks an LLM for a short narrative on a backtest result.
package review

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/llm"
)

const systemPrompt = `You are an options trading analyst reviewing a systematic backtest of a
short-premium strategy. Be concise and concrete. Comment on profitability,
consistency, tail risk and what the trade log suggests about the chosen delta
and expiration window. Do not give personalised financial advice.`

// maxLogLines caps how much of the trade log goes into the prompt
const maxLogLines = 60

// Reviewer produces narrative commentary
type Reviewer struct {
	provider  llm.Provider
	logger    *zap.Logger
	maxTokens int
}

// New creates a reviewer. A nil provider yields a reviewer that always
// returns core.ErrLLMUnavailable.
func New(provider llm.Provider, logger *zap.Logger) *Reviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{provider: provider, logger: logger, maxTokens: 600}
}

// Enabled reports whether a provider is configured
func (r *Reviewer) Enabled() bool {
	return r != nil && r.provider != nil
}

// Provider returns the provider name, or "" when disabled
func (r *Reviewer) Provider() string {
	if !r.Enabled() {
		return ""
	}
	return r.provider.Name()
}

// Review returns the model's commentary on resp
func (r *Reviewer) Review(ctx context.Context, resp *dto.BacktestResponse) (string, error) {
	if !r.Enabled() {
		return "", core.ErrLLMUnavailable
	}
	if resp == nil || resp.Failed() {
		return "", core.WrapError(core.ErrInvalidParams, fmt.Errorf("nothing to review"))
	}

	text, err := llm.Ask(ctx, r.provider, systemPrompt, Prompt(resp), r.maxTokens)
	if err != nil {
		r.logger.Warn("review failed", zap.String("provider", r.provider.Name()), zap.Error(err))
		return "", core.WrapError(core.ErrLLMFailed, err)
	}
	if text == "" {
		return "", core.WrapError(core.ErrLLMFailed, fmt.Errorf("empty reply from %s", r.provider.Name()))
	}
	return text, nil
}

// Prompt renders the result as the user message
func Prompt(resp *dto.BacktestResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticker: %s\n", resp.Ticker)
	fmt.Fprintf(&b, "Parameters: %s\n", resp.Parameters)
	fmt.Fprintf(&b, "Total profit: $%.2f over %d trades\n", resp.TotalProfit, resp.TradeCount)
	if s := resp.Stats; s != nil {
		fmt.Fprintf(&b, "Win rate: %.2f%% (%d wins, %d losses)\n", s.WinRate, s.Wins, s.Losses)
		fmt.Fprintf(&b, "Average profit: $%.2f, best $%.2f, worst $%.2f\n", s.AverageProfit, s.BestTrade, s.WorstTrade)
		fmt.Fprintf(&b, "Max drawdown: $%.2f, Sharpe ratio: %.2f\n", s.MaxDrawdown, s.SharpeRatio)
	}

	b.WriteString("\nTrade log:\n")
	lines := resp.TradeLog
	if len(lines) > maxLogLines {
		fmt.Fprintf(&b, "(last %d of %d trades)\n", maxLogLines, len(lines))
		lines = lines[len(lines)-maxLogLines:]
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(resp.TradeLog) == 0 {
		b.WriteString("(no trades)\n")
	}
	return b.String()
}
