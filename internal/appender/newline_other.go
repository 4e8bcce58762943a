//go:build !windows

package appender

const platformNewline = "\n"
