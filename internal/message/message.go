// Package message prints user-facing status lines. Diagnostics go through
// slog instead.
package message

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/praetorian-inc/aztopo/version"
)

var (
	quiet     bool
	noColor   bool
	mutex     sync.RWMutex
	outWriter io.Writer = os.Stdout

	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	bannerColor  = color.New(color.FgHiBlue, color.Bold)
)

const asciiBanner = `
  __ _ ___| |_ ___  _ __   ___
 / _' |_  / __/ _ \| '_ \ / _ \
| (_| |/ /| || (_) | |_) | (_) |
 \__,_/___|\__\___/| .__/ \___/
                   |_|
`

func init() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		SetNoColor(true)
	}
}

// SetQuiet suppresses everything except warnings, errors and results.
func SetQuiet(q bool) {
	mutex.Lock()
	defer mutex.Unlock()
	quiet = q
}

func SetNoColor(nc bool) {
	mutex.Lock()
	defer mutex.Unlock()
	noColor = nc
	color.NoColor = nc
}

// SetOutput changes the output writer (useful for testing)
func SetOutput(w io.Writer) {
	mutex.Lock()
	defer mutex.Unlock()
	outWriter = w
}

func printf(c *color.Color, prefix string, always bool, format string, args ...any) {
	mutex.RLock()
	defer mutex.RUnlock()

	if quiet && !always {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if noColor {
		fmt.Fprintf(outWriter, "%s%s\n", prefix, msg)
	} else {
		c.Fprintf(outWriter, "%s%s\n", prefix, msg)
	}
}

func Info(format string, args ...any) {
	printf(infoColor, "[*] ", false, format, args...)
}

func Success(format string, args ...any) {
	printf(successColor, "[+] ", false, format, args...)
}

func Warning(format string, args ...any) {
	printf(warningColor, "[!] ", true, format, args...)
}

func Error(format string, args ...any) {
	printf(errorColor, "[-] ", true, format, args...)
}

// JSON writes v as indented JSON. Results are printed even in quiet mode.
func JSON(v any) error {
	mutex.RLock()
	defer mutex.RUnlock()

	enc := json.NewEncoder(outWriter)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func Banner() {
	mutex.RLock()
	defer mutex.RUnlock()

	if quiet {
		return
	}
	if noColor {
		fmt.Fprint(outWriter, asciiBanner, version.AbbreviatedVersion(), "\n")
	} else {
		bannerColor.Fprint(outWriter, asciiBanner, version.AbbreviatedVersion(), "\n")
	}
}
