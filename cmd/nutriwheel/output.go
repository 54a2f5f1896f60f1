package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	colorBold   = color.New(color.Bold)
	colorGreen  = color.New(color.FgGreen)
	colorRed    = color.New(color.FgRed)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
	colorFaint  = color.New(color.Faint)
)

// stderr is where status lines go; tests swap it for a buffer.
var stderr io.Writer = os.Stderr

func colorize(c *color.Color, text string) string {
	return c.Sprint(text)
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorCyan, "→ "+fmt.Sprintf(format, args...)))
}

// Output formats accepted by -o and --format.
const (
	formatHuman = "human"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(f string, allowHuman bool) error {
	switch f {
	case formatJSON, formatYAML:
		return nil
	case formatHuman:
		if allowHuman {
			return nil
		}
	}
	if allowHuman {
		return fmt.Errorf("unknown output format %q (want human, json or yaml)", f)
	}
	return fmt.Errorf("unknown format %q (want json or yaml)", f)
}

// writeStructured encodes v as indented JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
