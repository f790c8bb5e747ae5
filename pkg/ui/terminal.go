// Package ui prints the banner and colored status lines for the CLI.
package ui

import (
	"fmt"
	"os"
)

const logo = `
   _       _                                _
  (_) __ _| |__   __ _ _ ____   _____  ___| |_
  | |/ _' | '_ \ / _' | '__\ \ / / _ \/ __| __|
  | | (_| | | | | (_| | |   \ V /  __/\__ \ |_
  |_|\__, |_| |_|\__,_|_|    \_/ \___||___/\__|
     |___/        profile harvest pipeline
`

// noColor honors the NO_COLOR convention and dumb terminals.
var noColor = os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"

// paint wraps text in the given SGR attribute unless color is disabled.
func paint(sgr int) func(string) string {
	return func(text string) string {
		if noColor {
			return text
		}
		return fmt.Sprintf("\033[%dm%s\033[0m", sgr, text)
	}
}

var (
	Dim     = paint(2)
	Red     = paint(31)
	Green   = paint(32)
	Yellow  = paint(33)
	Magenta = paint(35)
	Cyan    = paint(36)
)

// PrintLogo writes the startup banner.
func PrintLogo() {
	fmt.Print(Cyan(logo))
}

// PrintError writes a red error line, with an optional detail appended
// after the message.
func PrintError(msg string, detail ...interface{}) {
	fmt.Println(Red(line(msg, detail)))
}

// PrintWarning writes a yellow warning line.
func PrintWarning(msg string, detail ...interface{}) {
	fmt.Println(Yellow(line(msg, detail)))
}

// PrintSuccess writes a green status line.
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo writes a labeled value, label colored, value plain yellow.
func PrintInfo(label, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

func line(msg string, detail []interface{}) string {
	if len(detail) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, detail[0])
}
