package app

import (
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	ansiReset   = "\x1b[0m"
	ansiDim     = "\x1b[2m"
	ansiBright  = "\x1b[1m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

const (
	defaultLogWidth = 100
	minLogWidth     = 40
	ellipsis        = "…"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func paint(s, code string, color bool) string {
	if !color || code == "" {
		return s
	}
	return code + s + ansiReset
}

func colorizeHTTPMethod(m string, color bool) string {
	var code string
	switch m {
	case "GET", "HEAD":
		code = ansiGreen
	case "POST":
		code = ansiBlue
	case "PUT", "PATCH":
		code = ansiYellow
	case "DELETE":
		code = ansiRed
	default:
		code = ansiMagenta
	}
	return paint(m, code, color)
}

func colorizeStatusCode(status int, color bool) string {
	return paint(strconv.Itoa(status), statusColor(status), color)
}

func statusColor(status int) string {
	switch {
	case status >= 500:
		return ansiRed
	case status >= 400:
		return ansiYellow
	case status >= 300:
		return ansiCyan
	case status >= 200:
		return ansiGreen
	default:
		return ""
	}
}

func colorizeStatusClass(class string, color bool) string {
	var code string
	switch class {
	case "2xx":
		code = ansiGreen
	case "3xx":
		code = ansiCyan
	case "4xx":
		code = ansiYellow
	case "5xx":
		code = ansiRed
	}
	return paint(class, code, color)
}

func colorizeDurationMS(ms int64, color bool) string {
	s := strconv.FormatInt(ms, 10) + "ms"
	switch {
	case ms < 100:
		return paint(s, ansiGreen, color)
	case ms < 1000:
		return paint(s, ansiYellow, color)
	default:
		return paint(s, ansiRed, color)
	}
}

func colorizeResult(result string, color bool) string {
	var code string
	switch result {
	case "success":
		code = ansiGreen
	case "redirect":
		code = ansiCyan
	case "client_error":
		code = ansiYellow
	case "server_error":
		code = ansiRed
	}
	return paint(result, code, color)
}

func valueToInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		u := v.Uint64()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	case slog.KindFloat64:
		return int64(v.Float64()), true
	case slog.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func visualLen(s string) int {
	return utf8.RuneCountInString(stripANSI(s))
}

// truncateVisual cuts s to at most width visible runes, ending in an ellipsis.
// Color codes are dropped from truncated output.
func truncateVisual(s string, width int) string {
	if visualLen(s) <= width {
		return s
	}
	if width <= 1 {
		return ellipsis
	}
	runes := []rune(stripANSI(s))
	return string(runes[:width-1]) + ellipsis
}

// wrapSegments packs segs into lines no wider than width, joined by sep.
// Continuation lines start with indent.
func wrapSegments(segs []string, sep string, width int, indent string) []string {
	var (
		lines []string
		cur   string
	)
	for _, seg := range segs {
		var candidate string
		switch {
		case cur != "":
			candidate = cur + sep + seg
		case len(lines) == 0:
			candidate = seg
		default:
			candidate = indent + seg
		}

		if visualLen(candidate) <= width {
			cur = candidate
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = truncateVisual(indent+seg, width)
			continue
		}
		cur = truncateVisual(candidate, width)
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// terminalWidth prefers MARQUEE_LOG_WIDTH, then COLUMNS.
// Values below a usable minimum fall back to the default.
func (h *prettyHandler) terminalWidth() int {
	for _, key := range []string{"MARQUEE_LOG_WIDTH", "COLUMNS"} {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < minLogWidth {
			continue
		}
		return n
	}
	return defaultLogWidth
}
