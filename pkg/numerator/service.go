// Package numerator formats and parses human-readable document codes.
// It has no storage dependency; the PostgreSQL generator in
// internal/infrastructure/numerator builds on it.
package numerator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	corenumerator "docflow/internal/core/numerator"
)

// Format renders the code for sequence value num.
func Format(cfg corenumerator.Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth <= 0 {
		padWidth = corenumerator.DefaultPadWidth
	}

	if cfg.ScopeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseSuffix extracts the trailing numeric part of a code.
// Returns -1 if the code does not end in digits.
func ParseSuffix(code string) int64 {
	code = strings.TrimSpace(code)
	end := len(code)
	start := end
	for start > 0 && code[start-1] >= '0' && code[start-1] <= '9' {
		start--
	}
	if start == end {
		return -1
	}

	num, err := strconv.ParseInt(code[start:end], 10, 64)
	if err != nil {
		return -1
	}
	return num
}

// Following returns the sequence value after lastCode.
// An empty or unparseable lastCode restarts the sequence at 1.
func Following(lastCode string) int64 {
	if lastCode == "" {
		return 1
	}
	n := ParseSuffix(lastCode)
	if n < 0 {
		return 1
	}
	return n + 1
}

// Next renders the code that follows lastCode.
func Next(cfg corenumerator.Config, period time.Time, lastCode string) string {
	return Format(cfg, period, Following(lastCode))
}
