//go:build windows

package appender

const platformNewline = "\r\n"
