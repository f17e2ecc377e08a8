package display

import (
	"fmt"
	"strings"

	"github.com/dyike/rsi-backtest/internal/trading"
)

// MarkdownReport renders a run as a standalone markdown document
func MarkdownReport(o *trading.BacktestOutcome) string {
	var b strings.Builder

	name := o.Symbol
	if o.CompanyName != "" {
		name = fmt.Sprintf("%s (%s)", o.CompanyName, o.Symbol)
	}
	fmt.Fprintf(&b, "# RSI Backtest: %s\n\n", name)
	fmt.Fprintf(&b, "- Range: %s to %s (end exclusive), %d trading days\n",
		o.Start.Format("2006-01-02"), o.End.Format("2006-01-02"), len(o.Series))
	fmt.Fprintf(&b, "- Source: %s\n", o.Provider)
	fmt.Fprintf(&b, "- RSI period %d, overbought %.0f, oversold %.0f\n", o.Params.Period, o.Params.Overbought, o.Params.Oversold)
	fmt.Fprintf(&b, "- Initial capital %s, fee %s of notional\n", Money(o.Params.InitialCapital), Percent(o.Params.FeeRate))
	fmt.Fprintf(&b, "- Run `%s`\n\n", o.RunID)

	b.WriteString("## Performance\n\n")
	b.WriteString("| Metric | RSI-Strategy | Buy-n-Hold |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, row := range metricRows(o.Report) {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", row[0], row[1], row[2])
	}

	fmt.Fprintf(&b, "\n## Trades (%d)\n\n", len(o.Trades))
	if len(o.Trades) == 0 {
		b.WriteString("No trades executed.\n")
		return b.String()
	}
	b.WriteString("| Date | Side | Shares | Price | Fee | Cash After |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|\n")
	for _, tr := range o.Trades {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			tr.Date.Format("2006-01-02"), tr.Side, Count(int(tr.Shares)),
			Money(tr.Price), Money(tr.Fee), Money(tr.CashAfter))
	}
	return b.String()
}
