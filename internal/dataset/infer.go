package dataset

import (
	"strconv"
	"strings"
	"time"
)

// inferColumn guesses a column type from its raw cells and returns the
// layout to use when the type is Date or Timestamp.
// Heuristic: every non-empty value must satisfy the narrower type. An
// all-empty column is Text.
func inferColumn(values []string) (ColumnType, string) {
	nonEmpty := nonEmptyTrimmed(values)
	if len(nonEmpty) == 0 {
		return Text, ""
	}
	if allMatch(nonEmpty, isInt) {
		return Integer, ""
	}
	if allMatch(nonEmpty, isBool) {
		return Boolean, ""
	}
	if allMatch(nonEmpty, isFloat) {
		return Float, ""
	}

	// Prefer timestamp when any value carries a time component.
	allDate, anyTime := true, false
	for _, v := range nonEmpty {
		ok, hasTime := parseDateOrTimestamp(v)
		if !ok {
			allDate = false
			break
		}
		if hasTime {
			anyTime = true
		}
	}
	if !allDate {
		return Text, ""
	}
	if anyTime {
		if lay := selectLayout(nonEmpty, timestampLayouts, timestampLayoutPreference); lay != "" {
			return Timestamp, lay
		}
		return Text, ""
	}
	if lay := selectLayout(nonEmpty, dateLayouts, dateLayoutPreference); lay != "" {
		return Date, lay
	}
	return Text, ""
}

// convert turns a raw cell into the Go value for typ. Empty cells are nil.
// ok is false when the cell does not parse; inference guarantees this only
// happens for mixed date/timestamp columns, which callers treat as a data error.
func convert(raw string, typ ColumnType, layout string) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, true
	}
	switch typ {
	case Integer:
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case Boolean:
		switch strings.ToLower(s) {
		case "true", "t", "yes", "y", "1":
			return true, true
		case "false", "f", "no", "n", "0":
			return false, true
		}
		return nil, false
	case Date, Timestamp:
		if tm, err := time.Parse(layout, s); err == nil {
			return tm, true
		}
		// Mixed layouts inside one column: fall back to any known layout.
		layouts := dateLayouts
		if typ == Timestamp {
			layouts = append(append([]string{}, timestampLayouts...), dateLayouts...)
		}
		for _, l := range layouts {
			if tm, err := time.Parse(l, s); err == nil {
				return tm, true
			}
		}
		return nil, false
	default:
		return raw, true
	}
}

func nonEmptyTrimmed(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isBool accepts common textual booleans. 1/0 are listed too but columns of
// only 1/0 are caught by isInt first.
func isBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "t", "f", "yes", "no", "y", "n", "1", "0":
		return true
	default:
		return false
	}
}

// isInt requires a signed base-10 integer that fits in int64.
func isInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// isFloat accepts decimal or scientific notation. Integers are not floats,
// but a column mixing both is Float because isFloat is only consulted after
// the all-int check failed.
func isFloat(s string) bool {
	s = strings.TrimSpace(s)
	if isInt(s) {
		return true
	}
	if strings.EqualFold(s, "nan") || strings.Contains(strings.ToLower(s), "inf") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func parseDateOrTimestamp(s string) (ok bool, hasTime bool) {
	st := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, st); err == nil {
			return true, true
		}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, st); err == nil {
			return true, false
		}
	}
	return false, false
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01.02.2006",
	"02/01/2006",
	"01/02/2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2006/01/02",
	"20060102",
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
}

// dateLayoutPreference breaks ties between layouts matching the same number
// of samples. ISO wins, then DMY, then MDY.
func dateLayoutPreference(layout string) int {
	switch layout {
	case "2006-01-02", "2006/01/02", "20060102":
		return 3
	case "02.01.2006", "02/01/2006", "2 Jan 2006", "02-Jan-2006":
		return 2
	case "01.02.2006", "01/02/2006":
		return 1
	default:
		return 0
	}
}

func timestampLayoutPreference(layout string) int {
	switch layout {
	case time.RFC3339Nano:
		return 3
	case time.RFC3339:
		return 2
	default:
		return 1
	}
}

// selectLayout scores each layout by how many samples it parses and picks
// the best by (score, preference, declaration order).
func selectLayout(samples []string, layouts []string, pref func(string) int) string {
	if len(samples) == 0 || len(layouts) == 0 {
		return ""
	}
	scores := make([]int, len(layouts))
	for _, s := range samples {
		for i, lay := range layouts {
			if _, err := time.Parse(lay, s); err == nil {
				scores[i]++
			}
		}
	}

	bestIdx, bestScore, bestPref := -1, -1, -1
	for i := range layouts {
		sc := scores[i]
		if sc < bestScore {
			continue
		}
		if sc > bestScore {
			bestIdx, bestScore, bestPref = i, sc, pref(layouts[i])
			continue
		}
		if p := pref(layouts[i]); p > bestPref {
			bestIdx, bestPref = i, p
		}
	}
	if bestIdx >= 0 && bestScore > 0 {
		return layouts[bestIdx]
	}
	return ""
}
