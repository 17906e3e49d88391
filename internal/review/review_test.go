package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/llm"
)

type stubProvider struct {
	reply string
	err   error
	req   llm.ChatRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.reply}, nil
}

func sample() *dto.BacktestResponse {
	return &dto.BacktestResponse{
		Ticker:      "MSFT",
		Parameters:  "strategy=covered_call, min_exp=30, max_exp=90, delta=0.3",
		TotalProfit: 1200,
		TradeCount:  2,
		TradeLog:    []string{"line one", "line two"},
		Stats:       &dto.Stats{Wins: 2, WinRate: 100},
	}
}

func TestReviewer_Review(t *testing.T) {
	p := &stubProvider{reply: "  Consistent income.  \n"}
	r := New(p, nil)

	text, err := r.Review(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, "Consistent income.", text)

	require.Len(t, p.req.Messages, 1)
	assert.Equal(t, llm.RoleUser, p.req.Messages[0].Role)
	assert.Contains(t, p.req.Messages[0].Content, "Ticker: MSFT")
	assert.Contains(t, p.req.Messages[0].Content, "line two")
	assert.NotEmpty(t, p.req.SystemPrompt)
	assert.Equal(t, "stub", r.Provider())
}

func TestReviewer_Disabled(t *testing.T) {
	r := New(nil, nil)
	assert.False(t, r.Enabled())
	assert.Equal(t, "", r.Provider())

	_, err := r.Review(context.Background(), sample())
	assert.True(t, errors.Is(err, core.ErrLLMUnavailable))
}

func TestReviewer_Failures(t *testing.T) {
	_, err := New(&stubProvider{err: errors.New("rate limited")}, nil).Review(context.Background(), sample())
	assert.True(t, errors.Is(err, core.ErrLLMFailed))

	_, err = New(&stubProvider{reply: "   "}, nil).Review(context.Background(), sample())
	assert.True(t, errors.Is(err, core.ErrLLMFailed))

	_, err = New(&stubProvider{reply: "x"}, nil).Review(context.Background(), dto.ErrorResponse("NO_DATA", "none"))
	assert.True(t, errors.Is(err, core.ErrInvalidParams))
}

func TestPrompt_TruncatesLog(t *testing.T) {
	resp := sample()
	resp.TradeLog = nil
	for i := 0; i < maxLogLines+5; i++ {
		resp.TradeLog = append(resp.TradeLog, fmt.Sprintf("trade %d", i))
	}

	prompt := Prompt(resp)
	assert.Contains(t, prompt, fmt.Sprintf("(last %d of %d trades)", maxLogLines, maxLogLines+5))
	assert.NotContains(t, prompt, "trade 4\n")
	assert.Contains(t, prompt, "trade 5\n")
	assert.True(t, strings.HasSuffix(prompt, fmt.Sprintf("trade %d\n", maxLogLines+4)))
}

func TestPrompt_NoTrades(t *testing.T) {
	resp := sample()
	resp.TradeLog = []string{}
	resp.Stats = nil
	assert.Contains(t, Prompt(resp), "(no trades)")
}
