package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	telemetry "atmotube-export/internal/telemetry/domain"
)

const (
	// PromptText asks for the start date.
	PromptText = "Please input start date (YYYY-MM-DD): "
	// InvalidDateText is printed before re-prompting.
	InvalidDateText = "Invalid date format. Please use the format YYYY-MM-DD."
)

// ErrNoInput is returned when the console closes before a valid date is read.
var ErrNoInput = errors.New("console: no start date entered")

// Prompter reads the start date interactively.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter constructs a prompter over in/out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// StartDate prompts until the answer parses as YYYY-MM-DD.
func (p *Prompter) StartDate() (time.Time, error) {
	for {
		fmt.Fprint(p.out, PromptText)
		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return time.Time{}, err
		}
		answer := strings.TrimSpace(line)
		if answer == "" && errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return time.Time{}, ErrNoInput
		}
		parsed, parseErr := telemetry.ParseDate(answer)
		if parseErr == nil {
			return parsed, nil
		}
		fmt.Fprintln(p.out, InvalidDateText)
		if errors.Is(err, io.EOF) {
			return time.Time{}, ErrNoInput
		}
	}
}

// StartDateFlag is the parsed state of the --start_date flag.
type StartDateFlag struct {
	Set   bool
	Value string
}

// ResolveStartDate picks the start date: a flag value wins, an empty flag
// falls back to the configured default, and no flag prompts interactively.
func ResolveStartDate(flag StartDateFlag, configured string, prompter *Prompter) (time.Time, error) {
	if flag.Set {
		value := strings.TrimSpace(flag.Value)
		if value == "" {
			value = configured
		}
		parsed, err := telemetry.ParseDate(value)
		if err != nil {
			return time.Time{}, fmt.Errorf("start_date: %w", err)
		}
		return parsed, nil
	}
	if prompter == nil {
		return time.Time{}, ErrNoInput
	}
	return prompter.StartDate()
}

// StartDateFlagName is the command-line flag carrying the start date.
const StartDateFlagName = "start_date"

// NormalizeArgs rewrites a bare --start_date that has no value into
// --start_date= so the flag package treats it as set and empty. A value
// counts as missing when the flag is last or the next argument is a flag.
// Arguments after "--" are left alone.
func NormalizeArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i, arg := range out {
		if arg == "--" {
			break
		}
		if arg != "-"+StartDateFlagName && arg != "--"+StartDateFlagName {
			continue
		}
		if i+1 == len(out) || strings.HasPrefix(out[i+1], "-") {
			out[i] = arg + "="
		}
	}
	return out
}
