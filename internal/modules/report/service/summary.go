package service

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"backtester/internal/backtest"
	"backtester/pkg/logger"
)

// SummaryLine: одна строка итога по прогону.
func SummaryLine(o backtest.Outcome) string {
	if o.Err != nil {
		return fmt.Sprintf("%-10s %-12s FAILED: %v", o.Task.Symbol, o.Task.Profile.Name, o.Err)
	}
	m := o.Result.Metrics
	line := fmt.Sprintf("%-10s %-12s trades=%-4d win=%6.2f%% pnl=%10.2f dd=%7.2f%% sharpe=%6.2f final=%.2f",
		o.Result.Symbol, o.Result.Profile, m.TotalTrades, m.WinRate, m.TotalPnL, m.MaxDrawdown, m.SharpeRatio, m.FinalBalance)
	if o.Result.OpenPosition != nil {
		line += " (open " + string(o.Result.OpenPosition.Direction) + ")"
	}
	return line
}

func Summary(outcomes []backtest.Outcome) string {
	failed := lo.CountBy(outcomes, func(o backtest.Outcome) bool { return o.Err != nil })
	var b strings.Builder
	fmt.Fprintf(&b, "runs=%d ok=%d failed=%d\n", len(outcomes), len(outcomes)-failed, failed)
	for _, o := range outcomes {
		b.WriteString(SummaryLine(o))
		b.WriteByte('\n')
	}
	return b.String()
}

func LogSummary(outcomes []backtest.Outcome) {
	for _, line := range strings.Split(strings.TrimRight(Summary(outcomes), "\n"), "\n") {
		logger.Info("[BT] %s", line)
	}
}
