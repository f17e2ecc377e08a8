package backtest

// NeutralRSI is used wherever the oscillator is undefined
const NeutralRSI = 50.0

// RSI computes the relative strength index of the series' closes.
//
// Gains and losses are averaged with a simple trailing window of the
// given period. The first period-1 values use every observation seen so
// far rather than waiting for a full window, so the output is always the
// same length as the input. A window with no movement at all yields
// NeutralRSI, as does step 0 where no price change exists. A window with
// gains but no losses saturates at 100.
func RSI(series PriceSeries, period int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 {
		return out
	}
	if period <= 0 {
		period = DefaultPeriod
	}

	gains := make([]float64, len(series))
	losses := make([]float64, len(series))
	for i := 1; i < len(series); i++ {
		delta := series[i].Close - series[i-1].Close
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	out[0] = NeutralRSI
	var w window
	for i := 1; i < len(series); i++ {
		w.add(gains[i], losses[i])
		if from := i - period + 1; from > 0 {
			w.drop(gains[from-1], losses[from-1])
		}
		n := float64(min(i+1, period))
		out[i] = rsiValue(w.gainSum/n, w.lossSum/n)
	}
	return out
}

// window keeps running sums over the trailing period. The nonzero counts
// snap a sum back to exactly zero once its last contribution leaves, so
// float residue never turns a quiet window into a move.
type window struct {
	gainSum, lossSum float64
	gainN, lossN     int
}

func (w *window) add(gain, loss float64) {
	if gain > 0 {
		w.gainSum += gain
		w.gainN++
	}
	if loss > 0 {
		w.lossSum += loss
		w.lossN++
	}
}

func (w *window) drop(gain, loss float64) {
	if gain > 0 {
		w.gainN--
		w.gainSum -= gain
		if w.gainN == 0 {
			w.gainSum = 0
		}
	}
	if loss > 0 {
		w.lossN--
		w.lossSum -= loss
		if w.lossN == 0 {
			w.lossSum = 0
		}
	}
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return NeutralRSI
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
