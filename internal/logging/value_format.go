package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// maxListItems bounds how many elements of a slice attribute the console
// handler prints.
const maxListItems = 5

func attrString(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindString {
		return v.String()
	}
	if err, ok := v.Any().(error); ok && v.Kind() == slog.KindAny {
		return err.Error()
	}
	return formatValue("", v)
}

// formatValue renders v for console output. Keys ending in _seconds are
// timestamps or durations in seconds and print with millisecond precision.
func formatValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return formatFloat(key, v.Float64())
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(consoleTimestampLayout)
	case slog.KindAny:
		switch value := v.Any().(type) {
		case error:
			return quoteIfNeeded(value.Error())
		case []float64:
			return formatFloats(key, value)
		case []int:
			items := make([]string, len(value))
			for i, n := range value {
				items[i] = strconv.Itoa(n)
			}
			return joinList(items)
		case []string:
			return joinList(value)
		default:
			return quoteIfNeeded(fmt.Sprint(value))
		}
	default:
		return quoteIfNeeded(v.String())
	}
}

func formatFloat(key string, f float64) string {
	if strings.HasSuffix(key, "_seconds") {
		return strconv.FormatFloat(f, 'f', 3, 64)
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func formatFloats(key string, values []float64) string {
	items := make([]string, len(values))
	for i, f := range values {
		items[i] = formatFloat(key, f)
	}
	return joinList(items)
}

func joinList(items []string) string {
	if len(items) <= maxListItems {
		return "[" + strings.Join(items, ", ") + "]"
	}
	return fmt.Sprintf("[%s, ... +%d more]", strings.Join(items[:maxListItems], ", "), len(items)-maxListItems)
}

func quoteIfNeeded(s string) string {
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
