package csv

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// canonicalHeader cleans one header cell: NFC normalization and trimming,
// optional diacritic folding, then HeaderMap lookup on both the raw and the
// cleaned spelling.
func canonicalHeader(raw string, opt Options) string {
	if mapped, ok := opt.HeaderMap[raw]; ok && mapped != "" {
		return mapped
	}
	h := strings.TrimSpace(norm.NFC.String(raw))
	if opt.FoldHeaders {
		h = foldDiacritics(h)
	}
	if mapped, ok := opt.HeaderMap[h]; ok && mapped != "" {
		return mapped
	}
	return h
}

// foldDiacritics strips combining marks, e.g. "Částka" -> "Castka".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// normalizeHeaders canonicalizes every header cell and rejects empty or
// repeated names, which would make column lookup ambiguous.
func normalizeHeaders(hdr []string, opt Options) ([]string, error) {
	hdr = StripHeaderBOM(hdr)
	out := make([]string, len(hdr))
	seen := make(map[string]int, len(hdr))
	for i, h := range hdr {
		name := canonicalHeader(h, opt)
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("header column %d %q repeats column %d", i+1, name, prev+1)
		}
		seen[name] = i
		out[i] = name
	}
	return out, nil
}
