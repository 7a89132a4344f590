// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI styles, applied only when stdout is a terminal.
const (
	styleBold  = "\033[1m"
	styleDim   = "\033[2m"
	styleGreen = "\033[32m"
	styleReset = "\033[0m"
)

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// style wraps s in an ANSI style when talking to a terminal, so piped
// output stays clean.
func style(code, s string) string {
	if !stdoutIsTerminal() {
		return s
	}
	return code + s + styleReset
}

func printHeading(format string, args ...any) {
	fmt.Println(style(styleBold, fmt.Sprintf(format, args...)))
}

func printOK(format string, args ...any) {
	fmt.Println(style(styleGreen, fmt.Sprintf(format, args...)))
}

func printDetail(format string, args ...any) {
	fmt.Println("  " + fmt.Sprintf(format, args...))
}

func printMuted(format string, args ...any) {
	fmt.Println(style(styleDim, fmt.Sprintf(format, args...)))
}
