// Package setup runs the interactive wizard that writes a config file.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sigengine/config"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

// DefaultOutput is the file written by the wizard.
const DefaultOutput = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// Answers holds the values collected by the wizard.
type Answers struct {
	Platform      string
	Pair          string
	Interval      string
	Lookback      string
	PollInterval  string
	ReplayFile    string
	Predictor     string
	LLMAPIURL     string
	LLMAPIKey     string
	Model         string
	SQLitePath    string
	MinConfidence string
}

// DefaultAnswers returns the pre-filled values of every step.
func DefaultAnswers() Answers {
	return Answers{
		Platform:      config.PlatformBinance,
		Pair:          "BTC_USDT",
		Interval:      "1h",
		Lookback:      "200",
		PollInterval:  "5m",
		Predictor:     "rules",
		LLMAPIURL:     "https://openrouter.ai/api/v1/chat/completions",
		Model:         "deepseek/deepseek-chat",
		MinConfidence: "0",
	}
}

// RunTUI launches the terminal configuration wizard and writes the result
// to output.
func RunTUI(output string) error {
	a := DefaultAnswers()
	var confirm bool

	step := func(title string) {
		fmt.Print("\033[H\033[2J") // Clear screen
		fmt.Println(headerStyle.Render("SIGENGINE CONFIG WIZARD"))
		fmt.Println(stepStyle.Render(title))
	}

	step("STEP 1: MARKET DATA")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Where candles and prices come from.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select market data platform").
				Options(
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
					huh.NewOption("Hyperliquid", config.PlatformHyperliquid),
					huh.NewOption("Replay (CSV history)", config.PlatformReplay),
				).
				Value(&a.Platform),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 2: ASSET")
	fields := []huh.Field{
		huh.NewInput().
			Title("Trading Pair").
			Description("Must contain underscore (e.g. BTC_USDT)").
			Value(&a.Pair).
			Validate(validatePair),
		huh.NewInput().
			Title("Interval").
			Description("Primary candle interval (e.g. 15m, 1h, 4h)").
			Value(&a.Interval).
			Validate(validateInterval),
		huh.NewInput().
			Title("Lookback").
			Description("Primary candles per decision (50-1000)").
			Value(&a.Lookback).
			Validate(validateLookback),
	}
	if a.Platform == config.PlatformReplay {
		fields = append(fields, huh.NewInput().
			Title("Replay CSV file").
			Value(&a.ReplayFile).
			Validate(validateFile))
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	step("STEP 3: TIMING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Poll Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&a.PollInterval).
				Validate(validateDuration),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 4: AI SUB-SIGNAL")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("AI predictor").
				Options(
					huh.NewOption("Rule ensemble (offline)", "rules"),
					huh.NewOption("LLM with rule ensemble fallback", "llm"),
				).
				Value(&a.Predictor),
		),
	).Run()
	if err != nil {
		return err
	}
	if a.Predictor == "llm" {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("LLM API URL").
					Value(&a.LLMAPIURL),
				huh.NewInput().
					Title("LLM API Key").
					Description("Leave empty to read LLM_API_KEY from the environment").
					Value(&a.LLMAPIKey).
					EchoMode(huh.EchoModePassword),
				huh.NewInput().
					Title("Model Name").
					Value(&a.Model),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	step("STEP 5: STORAGE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("SQLite database").
				Description("Optional; signals always go to the WAL journal").
				Value(&a.SQLitePath),
			huh.NewInput().
				Title("Minimum confidence to persist").
				Description("25-95, 0 keeps every signal").
				Value(&a.MinConfidence).
				Validate(validateConfidence),
		),
	).Run()
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Platform: %s\nPair: %s\nInterval: %s\nLookback: %s\nPoll: %s\nPredictor: %s\n",
		a.Platform, a.Pair, a.Interval, a.Lookback, a.PollInterval, a.Predictor,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := Write(output, a); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", output)))
	return nil
}

// Build converts answers into a config entry.
func Build(a Answers) (config.ConfigTmp, error) {
	poll, err := time.ParseDuration(a.PollInterval)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("invalid poll interval: %w", err)
	}

	tmp := config.ConfigTmp{
		Platform:         a.Platform,
		Pair:             strings.ToUpper(a.Pair),
		Interval:         a.Interval,
		LookbackStr:      a.Lookback,
		PollInterval:     poll,
		ReplayFile:       a.ReplayFile,
		SQLitePath:       a.SQLitePath,
		MinConfidenceStr: a.MinConfidence,
	}
	if a.Predictor == "llm" {
		tmp.LLMAPIURL = a.LLMAPIURL
		tmp.LLMAPIKey = a.LLMAPIKey
		tmp.Model = a.Model
	}
	return tmp, nil
}

// Write builds the entry, checks that it parses and saves it to path.
func Write(path string, a Answers) error {
	tmp, err := Build(a)
	if err != nil {
		return err
	}

	data, err := config.Marshal([]config.ConfigTmp{tmp})
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if _, err := config.Parse(data, config.Credentials{LLMAPIKey: a.LLMAPIKey}); err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func validatePair(s string) error {
	if s == "" {
		return fmt.Errorf("pair cannot be empty")
	}
	if _, err := domain.ParsePair(s); err != nil {
		return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. BTC_USDT)")
	}
	return nil
}

func validateInterval(s string) error {
	_, err := domain.ParseInterval(s)
	return err
}

func validateLookback(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 50 || n > 1000 {
		return fmt.Errorf("must be between 50 and 1000")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateFile(s string) error {
	if _, err := os.Stat(s); err != nil {
		return fmt.Errorf("cannot read %s", s)
	}
	return nil
}

func validateConfidence(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(95)) {
		return fmt.Errorf("must be between 0 and 95")
	}
	return nil
}
