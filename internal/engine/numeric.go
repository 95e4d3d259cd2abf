package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mockredis/mockredis/internal/reply"
)

var (
	intPattern   = regexp.MustCompile(`^(0|-?[1-9][0-9]*)$`)
	floatPattern = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// parseInt parses a strict decimal integer argument.
func parseInt(s string) (int64, error) {
	return parseIntAs(s, reply.ErrNotInteger)
}

func parseIntAs(s string, fail *reply.Error) (int64, error) {
	if !intPattern.MatchString(s) {
		return 0, fail
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fail
	}
	return n, nil
}

func parseIndex(s string) (int, error) {
	n, err := parseInt(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	} else if n < math.MinInt32 {
		n = math.MinInt32
	}
	return int(n), nil
}

// parseFloat parses a float argument: a plain decimal or exponent number,
// or an infinity literal. Leading whitespace is rejected.
func parseFloat(s string) (float64, error) {
	return parseFloatAs(s, reply.ErrNotFloat)
}

func parseFloatAs(s string, fail *reply.Error) (float64, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity", "+infinity":
		return math.Inf(1), nil
	case "-inf", "-infinity":
		return math.Inf(-1), nil
	}
	if !floatPattern.MatchString(s) {
		return 0, fail
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !isRangeErr(err) {
		return 0, fail
	}
	return f, nil
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// addInt adds with overflow detection.
func addInt(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, reply.ErrOverflow
	}
	return sum, nil
}

// foldNaN replaces a NaN result with zero before it is stored.
func foldNaN(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func isNaNOrInf(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
