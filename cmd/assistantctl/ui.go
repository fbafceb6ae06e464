package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.Faint)
	promptColor  = color.New(color.FgMagenta, color.Bold)
)

func success(format string, a ...any) { successColor.Printf("✓ "+format+"\n", a...) }
func info(format string, a ...any)    { infoColor.Printf(format+"\n", a...) }
func warn(format string, a ...any)    { warnColor.Printf("! "+format+"\n", a...) }
func failure(format string, a ...any) { errorColor.Fprintf(os.Stderr, "✗ "+format+"\n", a...) }

// table prints tab separated rows under a header.
func table(header string, rows []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	for _, r := range rows {
		fmt.Fprintln(w, r)
	}
	_ = w.Flush()
}
