// Package extstring provides the Strings static class: case conversion,
// searching, splitting, templating and locale-aware number formatting.
package extstring

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/ext/extutil"
	"github.com/sandrolain/gognl/pkg/functions"
)

// Strings marks the Strings class.
type Strings struct{}

// Class returns the Strings class.
func Class() functions.Class {
	return extutil.Class[Strings]("Strings", All())
}

// All returns all string function definitions.
func All() []functions.Func {
	return []functions.Func{
		StartsWith(),
		EndsWith(),
		IndexOf(),
		LastIndexOf(),
		Capitalize(),
		TitleCase(),
		CamelCase(),
		SnakeCase(),
		KebabCase(),
		Repeat(),
		Words(),
		Join(),
		Pad(),
		Template(),
		FormatNumber(),
	}
}

// StartsWith returns the definition for startsWith(str, prefix).
func StartsWith() functions.Func { return extutil.Fn("startsWith", strings.HasPrefix) }

// EndsWith returns the definition for endsWith(str, suffix).
func EndsWith() functions.Func { return extutil.Fn("endsWith", strings.HasSuffix) }

// IndexOf returns the definition for indexOf(str, search [, start]).
// Positions count runes; -1 when not found.
func IndexOf() functions.Func {
	return extutil.Fn("indexOf",
		func(str, search string) int { return runeIndex(str, search, 0) },
		func(str, search string, start int) int { return runeIndex(str, search, start) },
	)
}

func runeIndex(str, search string, start int) int {
	runes := []rune(str)
	if start < 0 {
		start = max(0, len(runes)+start)
	}
	if start > len(runes) {
		return -1
	}
	i := strings.Index(string(runes[start:]), search)
	if i < 0 {
		return -1
	}
	return start + len([]rune(string(runes[start:])[:i]))
}

// LastIndexOf returns the definition for lastIndexOf(str, search).
func LastIndexOf() functions.Func {
	return extutil.Fn("lastIndexOf", func(str, search string) int {
		i := strings.LastIndex(str, search)
		if i < 0 {
			return -1
		}
		return len([]rune(str[:i]))
	})
}

// Capitalize returns the definition for capitalize(str).
// Uppercases the first character, lowercases the rest.
func Capitalize() functions.Func {
	return extutil.Fn("capitalize", func(str string) string {
		if str == "" {
			return str
		}
		runes := []rune(strings.ToLower(str))
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	})
}

// TitleCase returns the definition for titleCase(str).
// Uppercases the first character of each space-separated word.
func TitleCase() functions.Func {
	return extutil.Fn("titleCase", func(str string) string {
		runes := []rune(strings.ToLower(str))
		start := true
		for i, r := range runes {
			if unicode.IsSpace(r) {
				start = true
				continue
			}
			if start {
				runes[i] = unicode.ToUpper(r)
				start = false
			}
		}
		return string(runes)
	})
}

var splitWordsRe = regexp.MustCompile(`[_\-\s]+|([a-z])([A-Z])`)

// splitIntoWords splits on camelCase humps, underscores, dashes and spaces.
func splitIntoWords(str string) []string {
	expanded := splitWordsRe.ReplaceAllStringFunc(str, func(s string) string {
		if len(s) == 2 && s[0] >= 'a' && s[0] <= 'z' {
			return string(s[0]) + " " + string(s[1])
		}
		return " "
	})
	return strings.Fields(expanded)
}

// CamelCase returns the definition for camelCase(str).
func CamelCase() functions.Func {
	return extutil.Fn("camelCase", func(str string) string {
		words := splitIntoWords(str)
		if len(words) == 0 {
			return ""
		}
		var b strings.Builder
		b.WriteString(strings.ToLower(words[0]))
		for _, w := range words[1:] {
			runes := []rune(strings.ToLower(w))
			runes[0] = unicode.ToUpper(runes[0])
			b.WriteString(string(runes))
		}
		return b.String()
	})
}

// SnakeCase returns the definition for snakeCase(str).
func SnakeCase() functions.Func {
	return extutil.Fn("snakeCase", func(str string) string { return joinLower(str, "_") })
}

// KebabCase returns the definition for kebabCase(str).
func KebabCase() functions.Func {
	return extutil.Fn("kebabCase", func(str string) string { return joinLower(str, "-") })
}

func joinLower(str, sep string) string {
	words := splitIntoWords(str)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, sep)
}

// Repeat returns the definition for repeat(str, n).
func Repeat() functions.Func {
	return extutil.Fn("repeat", func(str string, n int) (string, error) {
		if n < 0 {
			return "", fmt.Errorf("repeat: count must not be negative")
		}
		return strings.Repeat(str, n), nil
	})
}

// Words returns the definition for words(str): the whitespace-separated
// fields of str.
func Words() functions.Func {
	return extutil.Fn("words", func(str string) []any {
		parts := strings.Fields(str)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out
	})
}

// Join returns the definition for join(list [, sep]).
func Join() functions.Func {
	join := func(items []any, sep string) string {
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = coerce.StringValue(it)
		}
		return strings.Join(parts, sep)
	}
	return extutil.Fn("join",
		func(items []any) string { return join(items, "") },
		join,
	)
}

// Pad returns the definition for pad(str, width [, char]). A positive
// width pads on the right, a negative one on the left.
func Pad() functions.Func {
	pad := func(str string, width int, char string) string {
		if char == "" {
			char = " "
		}
		n := len([]rune(str))
		w := width
		if w < 0 {
			w = -w
		}
		if n >= w {
			return str
		}
		fill := []rune(strings.Repeat(char, w-n))[:w-n]
		if width < 0 {
			return string(fill) + str
		}
		return str + string(fill)
	}
	return extutil.Fn("pad",
		func(str string, width int) string { return pad(str, width, " ") },
		pad,
	)
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Template returns the definition for template(str, bindings).
// Replaces {{key}} placeholders with values from the bindings map; unknown
// keys are left in place.
func Template() functions.Func {
	return extutil.Fn("template", func(tmpl string, bindings any) (string, error) {
		vars, err := extutil.AsObjectMap(bindings)
		if err != nil {
			return "", fmt.Errorf("template: %w", err)
		}
		return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
			if v, ok := vars[match[2:len(match)-2]]; ok {
				return coerce.StringValue(v)
			}
			return match
		}), nil
	})
}

// FormatNumber returns the definition for formatNumber(n [, locale
// [, decimals]]). Digits are grouped the way the locale groups them; the
// default locale is en-US and by default up to three decimals are kept.
func FormatNumber() functions.Func {
	format := func(n float64, locale string, decimals int) (string, error) {
		tag, err := language.Parse(locale)
		if err != nil {
			return "", fmt.Errorf("formatNumber: unknown locale %q", locale)
		}
		var opts []number.Option
		if decimals >= 0 {
			opts = append(opts, number.Scale(decimals))
		}
		return message.NewPrinter(tag).Sprint(number.Decimal(n, opts...)), nil
	}
	return extutil.Fn("formatNumber",
		func(n float64) (string, error) { return format(n, "en-US", -1) },
		func(n float64, locale string) (string, error) { return format(n, locale, -1) },
		format,
	)
}
