package hover

import (
	"strconv"
	"strings"

	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotANumber is shown when a register value is not hexadecimal.
const NotANumber = "n/a"

// DecimalFormatter renders register values in decimal.
type DecimalFormatter struct {
	printer *message.Printer
}

// NewDecimalFormatter creates a formatter. With group set, digits are
// grouped for localeName, or for the system locale when localeName is
// empty.
func NewDecimalFormatter(group bool, localeName string) *DecimalFormatter {
	if !group {
		return &DecimalFormatter{}
	}
	return &DecimalFormatter{printer: message.NewPrinter(resolveLanguage(localeName))}
}

func resolveLanguage(name string) language.Tag {
	candidates := []string{name}
	if name == "" {
		if locales, err := locale.GetLocales(); err == nil {
			candidates = locales
		}
	}
	for _, c := range candidates {
		if tag, err := language.Parse(c); err == nil && c != "" {
			return tag
		}
	}
	return language.AmericanEnglish
}

// Format parses value as hexadecimal, with or without a 0x prefix and
// ignoring any trailing annotation, and renders it in decimal. An empty
// value renders as 0.
func (f *DecimalFormatter) Format(value string) string {
	n, ok := ParseHex(value)
	if !ok {
		return NotANumber
	}
	if f.printer == nil {
		return strconv.FormatUint(n, 10)
	}
	return f.printer.Sprintf("%d", n)
}

// ParseHex parses the leading hexadecimal number of a register value.
func ParseHex(value string) (uint64, bool) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, true
	}
	s := strings.ToLower(fields[0])
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
