package cli

import (
	"fmt"
	"os"
)

const (
	ResetCode = "\033[0m"
	Bold      = "\033[1m"
	DimCode   = "\033[2m"
	Black     = "\033[90m"
	Red       = "\033[31m"
	Green     = "\033[32m"
	Yellow    = "\033[33m"
	Blue      = "\033[34m"
	Purple    = "\033[35m"
	Cyan      = "\033[36m"
)

// disableColor is a cached check for the environment variable
var disableColor = checkNoColor()

func checkNoColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	if val := os.Getenv("LOG_COLOR"); val != "" {
		return val != "true" && val != "1"
	}
	return false
}

// enabled reports whether ANSI styling should be emitted.
func enabled() bool {
	return !disableColor
}

// Stylize wraps text in a color code unless colors are disabled.
func Stylize(text string, colorCode string) string {
	if disableColor {
		return text
	}
	return fmt.Sprintf("%s%s%s", colorCode, text, ResetCode)
}

func CheckMark() string {
	return Stylize("✔", Green)
}

func CrossMark() string {
	return Stylize("✘", Red)
}

func WarningSign() string {
	return Stylize("⚠", Yellow)
}

func Arrow() string {
	return Stylize("➜", Blue)
}

// ProviderLine renders a single aligned bootstrap line, e.g. "✔ groq   llama-3.1-8b-instant".
func ProviderLine(mark, id, detail string) string {
	return fmt.Sprintf("%s %s %s", mark, Stylize(fmt.Sprintf("%-12s", id), Bold), Stylize(detail, Black))
}
