package logger

import (
	"fmt"
	"strings"
)

// ANSI color codes. Windows 10+ terminals and all unix terminals handle these.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
)

func printTagged(color, symbol, tag, msg string) {
	fmt.Printf("%s%s%s %s[%s]%s %s\n", color, symbol, reset, bold, tag, reset, msg)
}

// Info logs a neutral progress message.
func Info(tag, msg string) {
	printTagged(blue, "•", tag, msg)
}

// Success logs a completed step.
func Success(tag, msg string) {
	printTagged(green, "✓", tag, msg)
}

// Warn logs a recoverable problem.
func Warn(tag, msg string) {
	printTagged(yellow, "!", tag, msg)
}

// Error logs a failure.
func Error(tag, msg string) {
	printTagged(red, "✗", tag, msg)
}

// Banner prints the startup banner with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Printf("%s%seve-appraiser%s %s%s%s\n", bold, cyan, reset, dim, version, reset)
}

// Section prints an underlined section header.
func Section(title string) {
	fmt.Printf("\n%s%s%s\n%s\n", bold, title, reset, strings.Repeat("─", len(title)))
}

// Stats prints a single aligned key/value statistic.
func Stats(key string, value interface{}) {
	fmt.Printf("  %-16s %v\n", key, value)
}

// Server announces the run target (region set, db path, etc).
func Server(addr string) {
	fmt.Printf("%s➜%s %s\n", green, reset, addr)
}
