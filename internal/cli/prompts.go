package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/rsi-backtest/config"
	"github.com/dyike/rsi-backtest/pkg/dataflows"
)

const otherCompanyOption = "Other (enter ticker)"

// PromptForCompany offers the built-in companies and falls back to a raw ticker
func PromptForCompany(defaultSymbol string) (string, error) {
	options := append(config.CompanyLabels(), otherCompanyOption)

	defaultOption := otherCompanyOption
	if c, ok := config.LookupCompany(defaultSymbol); ok {
		defaultOption = c.Label()
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select a company:",
		Options: options,
		Default: defaultOption,
		Help:    "Pick a company from the list or choose Other to type any ticker",
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	if selected != otherCompanyOption {
		c, _ := config.LookupCompany(selected)
		return c.Ticker, nil
	}
	return PromptForTicker(defaultSymbol)
}

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker(defaultSymbol string) (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., AAPL, MSFT, GOOGL):",
		Help:    "Any symbol your price provider understands",
		Default: defaultSymbol,
	}

	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		return dataflows.ValidateSymbol(val.(string))
	}))
	if err != nil {
		return "", err
	}
	return dataflows.NormalizeSymbol(ticker), nil
}

// PromptForDate asks for a YYYY-MM-DD date
func PromptForDate(message, defaultDate string) (time.Time, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: message,
		Help:    "Format: YYYY-MM-DD (e.g., 2021-06-30)",
		Default: defaultDate,
	}

	err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
		if _, err := dataflows.ParseDateString(val.(string)); err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		return nil
	}))
	if err != nil {
		return time.Time{}, err
	}
	return dataflows.ParseDateString(dateStr)
}

// PromptForCapital asks for the starting cash
func PromptForCapital(defaultCapital float64) (float64, error) {
	return promptFloat("Initial capital ($):", "Cash available on the first day", defaultCapital, func(v float64) error {
		if v <= 0 {
			return fmt.Errorf("initial capital must be positive")
		}
		return nil
	})
}

// PromptForFeePercent asks for the fee as a percentage of notional
func PromptForFeePercent(defaultPercent float64) (float64, error) {
	return promptFloat("Transaction fee (%):", "Charged on every buy and sell, 0.1 means 0.1%", defaultPercent, func(v float64) error {
		if v < 0 {
			return fmt.Errorf("fee cannot be negative")
		}
		return nil
	})
}

// PromptForThreshold asks for an RSI level strictly between 0 and 100
func PromptForThreshold(message string, defaultLevel float64) (float64, error) {
	return promptFloat(message, "RSI level between 0 and 100 (exclusive)", defaultLevel, func(v float64) error {
		if v <= 0 || v >= 100 {
			return fmt.Errorf("threshold must be between 0 and 100")
		}
		return nil
	})
}

// PromptForPeriod asks for the RSI lookback in days
func PromptForPeriod(defaultPeriod int) (int, error) {
	var periodStr string
	prompt := &survey.Input{
		Message: "RSI period (days):",
		Default: strconv.Itoa(defaultPeriod),
	}

	err := survey.AskOne(prompt, &periodStr, survey.WithValidator(func(val interface{}) error {
		n, err := strconv.Atoi(strings.TrimSpace(val.(string)))
		if err != nil || n < 1 {
			return fmt.Errorf("period must be a positive whole number")
		}
		return nil
	}))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(periodStr))
}

// PromptConfirm asks a yes/no question
func PromptConfirm(message string, defaultValue bool) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	err := survey.AskOne(prompt, &confirmed)
	return confirmed, err
}

func promptFloat(message, help string, defaultValue float64, check func(float64) error) (float64, error) {
	var raw string
	prompt := &survey.Input{
		Message: message,
		Help:    help,
		Default: strconv.FormatFloat(defaultValue, 'f', -1, 64),
	}

	err := survey.AskOne(prompt, &raw, survey.WithValidator(func(val interface{}) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(val.(string)), 64)
		if err != nil {
			return fmt.Errorf("enter a number")
		}
		return check(v)
	}))
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
