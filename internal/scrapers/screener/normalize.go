package screener

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const scanClauseKey = "scan_clause"

type NormalizeShape string

const (
	SHAPE_JSON        NormalizeShape = "json"
	SHAPE_PREFIX      NormalizeShape = "prefix"
	SHAPE_PASSTHROUGH NormalizeShape = "passthrough"
)

// Normalize decodes a captured request body into the scan clause.
func Normalize(raw string) string {
	clause, _ := NormalizeShaped(raw)
	return clause
}

// NormalizeShaped is Normalize but also reports which shape matched. The
// body is percent-decoded first ('+' is left alone), then read as a json
// object with a string scan_clause field, then as a `scan_clause=` prefixed
// form body, and finally passed through unchanged. Leading and trailing
// whitespace is ignored by the json and prefix checks.
func NormalizeShaped(raw string) (string, NormalizeShape) {
	decoded := unquote(raw)

	trimmed := strings.TrimSpace(decoded)
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]json.RawMessage
		if json.Unmarshal([]byte(trimmed), &obj) == nil {
			var clause string
			field, ok := obj[scanClauseKey]
			if ok && json.Unmarshal(field, &clause) == nil && clause != "" {
				return clause, SHAPE_JSON
			}
		}
	}

	prefix := scanClauseKey + "="
	if strings.HasPrefix(trimmed, prefix) {
		return strings.TrimPrefix(trimmed, prefix), SHAPE_PREFIX
	}

	return decoded, SHAPE_PASSTHROUGH
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// unquote decodes every well formed %XX escape and copies malformed ones
// literally, so one stray '%' does not keep the rest of the body encoded.
// Decoded bytes that are not valid utf-8 become U+FFFD.
func unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, s[i])
	}
	if !utf8.Valid(out) {
		return strings.ToValidUTF8(string(out), string(utf8.RuneError))
	}
	return string(out)
}
