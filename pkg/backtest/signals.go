package backtest

// GenerateSignals turns RSI values into crossing events.
//
// Buy fires when the RSI rises through the oversold line
// (rsi[t] > oversold && rsi[t-1] <= oversold) and Sell fires when it
// falls through the overbought line (rsi[t] < overbought &&
// rsi[t-1] >= overbought). Both rules read as "recovery" crosses, not
// the textbook buy-when-oversold rule; they are kept exactly as the
// strategy was originally specified. Step 0 is always Hold.
func GenerateSignals(rsi []float64, overbought, oversold float64) []Signal {
	signals := make([]Signal, len(rsi))
	for t := 1; t < len(rsi); t++ {
		prev, cur := rsi[t-1], rsi[t]
		if cur > oversold && prev <= oversold {
			signals[t] = Buy
		}
		// evaluated second so a sell overrides; unreachable while oversold < overbought
		if cur < overbought && prev >= overbought {
			signals[t] = Sell
		}
	}
	return signals
}
