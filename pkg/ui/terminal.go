// Package ui holds the small terminal output helpers the commands
// print through. Structured logging goes to the logger; these are the
// human-facing lines.
package ui

import (
	"fmt"
	"time"
)

// ASCII banner printed at command startup.
const ASCIIBanner = `
  ┌─────────────────────────────────────────────┐
  │  feedarchiver · content acquisition utility │
  └─────────────────────────────────────────────┘
`

// Color functions for terminal output
var (
	Cyan   = colorize("\033[36m%s\033[0m")
	Yellow = colorize("\033[33m%s\033[0m")
	Red    = colorize("\033[31m%s\033[0m")
	Green  = colorize("\033[32m%s\033[0m")
	Dim    = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintBanner prints the startup banner.
func PrintBanner() {
	fmt.Print(Cyan(ASCIIBanner))
}

// PrintError prints an error message in red.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Red(msg))
	}
}

// PrintSuccess prints a success message in green.
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a labeled value in cyan and yellow.
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow.
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}

// Tally is the end-of-run summary a command prints.
type Tally struct {
	Success   int
	Failed    int
	Skipped   int
	StartTime time.Time
}

// NewTally starts a tally clock.
func NewTally() *Tally {
	return &Tally{StartTime: time.Now()}
}

// Print renders the run summary.
func (t *Tally) Print() {
	fmt.Println()
	PrintInfo("Succeeded", fmt.Sprintf("%d", t.Success))
	if t.Failed > 0 {
		PrintError(fmt.Sprintf("Failed: %d", t.Failed))
	} else {
		PrintInfo("Failed", "0")
	}
	PrintInfo("Skipped", fmt.Sprintf("%d", t.Skipped))
	PrintInfo("Elapsed", time.Since(t.StartTime).Round(time.Second).String())
}
