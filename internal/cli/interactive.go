package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/dyike/rsi-backtest/config"
	"github.com/dyike/rsi-backtest/internal/trading"
	"github.com/dyike/rsi-backtest/pkg/backtest"
)

// runInteractiveMode prompts for a backtest, runs it and offers to repeat.
// The last answers are saved to config.json and become the next defaults.
func runInteractiveMode(ctx context.Context, w io.Writer, cfg *config.Config, configDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	DisplayWelcomeBanner(w)

	var opts []config.ManagerOption
	if configDir != "" {
		opts = append(opts, config.WithConfigDir(configDir))
	}
	mgr, err := config.NewManager(cfg, opts...)
	if err != nil {
		slog.Warn("config file unavailable, using in-memory defaults", "error", err)
	} else if err := mgr.Watch(ctx, func(config.Config) {
		printWarning(w, "config.json changed on disk, new defaults apply to the next run")
	}); err != nil {
		slog.Warn("config watch disabled", "error", err)
	}

	var mem runMemory
	if mgr != nil {
		mem = mgr
	}

	b := newBacktester(w, cfg)
	defer b.Close()

	for {
		current := cfg
		if mgr != nil {
			merged := mgr.Get()
			current = &merged
		}

		req, err := promptForRequest(current)
		if errors.Is(err, terminal.InterruptErr) {
			fmt.Fprintln(w, "\n👋 Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}

		outcome, err := b.run(ctx, current, req, runOptions{charts: true})
		recordRun(w, mem, req, outcome, err)

		again, err := PromptConfirm("Run another backtest?", true)
		if err != nil || !again {
			fmt.Fprintln(w, "👋 Goodbye!")
			return nil
		}
	}
}

// runMemory keeps the defaults offered by the next prompt
type runMemory interface {
	RememberRun(symbol string, start, end time.Time, params backtest.Params) error
}

// recordRun reports a failed run or keeps a completed one as the next
// defaults. A run that found no prices has a nil outcome and is not kept.
func recordRun(w io.Writer, mem runMemory, req trading.BacktestRequest, outcome *trading.BacktestOutcome, err error) {
	if err != nil {
		printError(w, describeError(err))
		return
	}
	if outcome == nil || mem == nil {
		return
	}
	if err := mem.RememberRun(req.Symbol, req.Start, req.End, req.Params); err != nil {
		slog.Warn("could not save defaults", "error", err)
	}
}

func promptForRequest(cfg *config.Config) (trading.BacktestRequest, error) {
	var req trading.BacktestRequest

	symbol, err := PromptForCompany(cfg.DefaultSymbol)
	if err != nil {
		return req, err
	}
	start, err := PromptForDate("Start date (inclusive):", cfg.StartDate)
	if err != nil {
		return req, err
	}
	end, err := PromptForDate("End date (exclusive):", cfg.EndDate)
	if err != nil {
		return req, err
	}
	capital, err := PromptForCapital(cfg.InitialCapital)
	if err != nil {
		return req, err
	}
	fee, err := PromptForFeePercent(cfg.FeePercent)
	if err != nil {
		return req, err
	}
	overbought, err := PromptForThreshold("Overbought level:", cfg.Overbought)
	if err != nil {
		return req, err
	}
	oversold, err := PromptForThreshold("Oversold level:", cfg.Oversold)
	if err != nil {
		return req, err
	}
	period, err := PromptForPeriod(cfg.RSIPeriod)
	if err != nil {
		return req, err
	}

	return trading.BacktestRequest{
		Symbol: symbol,
		Start:  start,
		End:    end,
		Params: backtest.Params{
			Period:         period,
			Overbought:     overbought,
			Oversold:       oversold,
			InitialCapital: capital,
			FeeRate:        backtest.FeeRateFromPercent(fee),
		},
	}, nil
}
