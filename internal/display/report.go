package display

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dyike/rsi-backtest/internal/trading"
	"github.com/dyike/rsi-backtest/pkg/backtest"
)

const notApplicable = "N/A"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = cellStyle.Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	buyStyle    = cellStyle.Foreground(lipgloss.Color("#10B981"))
	sellStyle   = cellStyle.Foreground(lipgloss.Color("#EF4444"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
)

// ResultsDisplay handles the display of backtest results
type ResultsDisplay struct {
	w      io.Writer
	chart  Chart
	charts bool
}

// NewResultsDisplay writes to w, or stdout when w is nil
func NewResultsDisplay(w io.Writer, charts bool) *ResultsDisplay {
	if w == nil {
		w = os.Stdout
	}
	return &ResultsDisplay{w: w, chart: DefaultChart(), charts: charts}
}

// DisplayBacktestResults shows the header, metrics, trade log and charts
func (d *ResultsDisplay) DisplayBacktestResults(o *trading.BacktestOutcome) {
	d.showHeader(o)
	fmt.Fprintln(d.w, MetricsTable(o.Report))
	fmt.Fprintln(d.w)

	fmt.Fprintln(d.w, titleStyle.Render(fmt.Sprintf("📒 TRADES (%d)", len(o.Trades))))
	fmt.Fprintln(d.w, TradeLog(o.Trades))

	if d.charts {
		d.showCharts(o)
	}
}

func (d *ResultsDisplay) showHeader(o *trading.BacktestOutcome) {
	name := o.Symbol
	if o.CompanyName != "" {
		name = fmt.Sprintf("%s (%s)", o.CompanyName, o.Symbol)
	}
	p := o.Params
	fmt.Fprintln(d.w)
	fmt.Fprintln(d.w, titleStyle.Render("📊 RSI BACKTEST: "+name))
	fmt.Fprintf(d.w, "📅 %s to %s  •  %d trading days  •  source: %s\n",
		o.Start.Format("2006-01-02"), o.End.Format("2006-01-02"), len(o.Series), o.Provider)
	fmt.Fprintf(d.w, "⚙️  RSI(%d)  overbought %.0f  oversold %.0f  capital %s  fee %s\n",
		p.Period, p.Overbought, p.Oversold, Money(p.InitialCapital), Percent(p.FeeRate))
	fmt.Fprintf(d.w, "🆔 %s\n\n", o.RunID)
}

func (d *ResultsDisplay) showCharts(o *trading.BacktestOutcome) {
	fmt.Fprintln(d.w)
	fmt.Fprintln(d.w, titleStyle.Render("📈 PRICE  (B = buy, S = sell)"))
	fmt.Fprint(d.w, d.chart.Price(o.Result.Steps))
	fmt.Fprintln(d.w)
	fmt.Fprintln(d.w, titleStyle.Render(fmt.Sprintf("📉 RSI(%d)  (levels %.0f / %.0f)", o.Params.Period, o.Params.Overbought, o.Params.Oversold)))
	fmt.Fprint(d.w, d.chart.RSI(o.RSI, o.Params.Overbought, o.Params.Oversold))
	fmt.Fprintln(d.w)
	fmt.Fprintln(d.w, titleStyle.Render("💰 PORTFOLIO VALUE  (* = RSI-Strategy, + = Buy-n-Hold)"))
	fmt.Fprint(d.w, d.chart.Equity(o.Result.Values(), o.Baseline))
}

// MetricsTable compares the strategy with the buy-and-hold baseline
func MetricsTable(r backtest.PerformanceReport) string {
	rows := metricRows(r)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Metric", "RSI-Strategy", "Buy-n-Hold").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return labelStyle
			default:
				return cellStyle.Align(lipgloss.Right)
			}
		})
	return t.Render()
}

func metricRows(r backtest.PerformanceReport) [][]string {
	s, b := r.Strategy, r.BuyAndHold
	return [][]string{
		{"Portfolio Value", Money(s.FinalValue), Money(b.FinalValue)},
		{"Total Return", Percent(s.TotalReturn), Percent(b.TotalReturn)},
		{"Max. Drawdown", Percent(s.MaxDrawdown), Percent(b.MaxDrawdown)},
		{"Volatility", Percent(s.Volatility), Percent(b.Volatility)},
		{"Sharpe Ratio", Ratio(s.SharpeRatio), Ratio(b.SharpeRatio)},
		{"Fees Paid", Money(s.FeesPaid), notApplicable},
		{"Number of Trades", Count(s.NumTrades), notApplicable},
	}
}

// TradeLog lists executed fills oldest first
func TradeLog(trades []backtest.TradeRecord) string {
	if len(trades) == 0 {
		return "   (no trades executed)"
	}
	rows := make([][]string, 0, len(trades))
	for _, tr := range trades {
		rows = append(rows, []string{
			tr.Date.Format("2006-01-02"),
			tr.Side.String(),
			Count(int(tr.Shares)),
			Money(tr.Price),
			Money(tr.Fee),
			Money(tr.CashAfter),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Date", "Side", "Shares", "Price", "Fee", "Cash After").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && rows[row][1] == backtest.Buy.String():
				return buyStyle
			case col == 1:
				return sellStyle
			case col >= 2:
				return cellStyle.Align(lipgloss.Right)
			default:
				return cellStyle
			}
		})
	return t.Render()
}
