package web

import (
	"math"

	"github.com/newthinker/optlab/internal/dto"
	"github.com/newthinker/optlab/internal/render"
)

const (
	chartHeight = 240.0
	chartPad    = 20.0
	barSlot     = 14.0
	minWidth    = 320.0
)

// Bar is one rect of the SVG chart.
type Bar struct {
	X, Y, W, H float64
	Label      string
	Value      string
	Loss       bool
}

// Chart is an SVG bar chart of profit per trade.
type Chart struct {
	Width    float64
	Height   float64
	Baseline float64
	Bars     []Bar
}

// NewChart lays out one bar per label. Profits rise from the zero line,
// losses hang below it. Returns nil when there is nothing to draw.
func NewChart(data dto.ChartData) *Chart {
	n := len(data.Labels)
	if len(data.Data) < n {
		n = len(data.Data)
	}
	if n == 0 {
		return nil
	}

	maxV, minV := 0.0, 0.0
	for _, v := range data.Data[:n] {
		maxV = math.Max(maxV, v)
		minV = math.Min(minV, v)
	}
	span := maxV - minV
	if span == 0 {
		span = 1
	}

	plot := chartHeight - 2*chartPad
	c := &Chart{
		Width:    math.Max(minWidth, float64(n)*barSlot+2*chartPad),
		Height:   chartHeight,
		Baseline: chartPad + plot*maxV/span,
	}
	for i := 0; i < n; i++ {
		v := data.Data[i]
		h := plot * math.Abs(v) / span
		y := c.Baseline - h
		if v < 0 {
			y = c.Baseline
		}
		c.Bars = append(c.Bars, Bar{
			X:     chartPad + float64(i)*barSlot + 2,
			Y:     y,
			W:     barSlot - 4,
			H:     h,
			Label: data.Labels[i],
			Value: render.Number(v),
			Loss:  v < 0,
		})
	}
	return c
}
