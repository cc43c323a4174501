package service

import (
	"math"
	"regexp"
	"strconv"

	"github.com/martijn/harvestd/internal/errors"
)

// ProgressStrategy extracts a completion percentage from one output line.
// ok is false when the line carries no progress marker.
type ProgressStrategy interface {
	Parse(line string) (percent int, ok bool)
}

var (
	fractionPattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
	pagePattern     = regexp.MustCompile(`[Pp]age\s+(\d+)\s*(?:of|/)\s*(\d+)`)
)

type patternStrategy struct {
	pattern *regexp.Regexp
}

func (s patternStrategy) Parse(line string) (int, bool) {
	m := s.pattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return percentOf(m[1], m[2])
}

// autoStrategy prefers explicit "page N of M" markers and falls back to any
// "N/M" fraction on the line
type autoStrategy struct{}

func (autoStrategy) Parse(line string) (int, bool) {
	if pct, ok := (patternStrategy{pagePattern}).Parse(line); ok {
		return pct, true
	}
	return patternStrategy{fractionPattern}.Parse(line)
}

type noProgress struct{}

func (noProgress) Parse(string) (int, bool) { return 0, false }

// NewProgressStrategy maps a collector.progress setting to a strategy
func NewProgressStrategy(name string) (ProgressStrategy, error) {
	switch name {
	case "", "auto":
		return autoStrategy{}, nil
	case "page":
		return patternStrategy{pagePattern}, nil
	case "fraction":
		return patternStrategy{fractionPattern}, nil
	case "none":
		return noProgress{}, nil
	default:
		return nil, errors.Newf("unknown progress strategy %q", name)
	}
}

func percentOf(current, total string) (int, bool) {
	cur, err := strconv.ParseFloat(current, 64)
	if err != nil {
		return 0, false
	}
	tot, err := strconv.ParseFloat(total, 64)
	if err != nil || tot <= 0 {
		return 0, false
	}
	pct := int(math.Round(cur / tot * 100))
	if pct > 100 {
		pct = 100
	}
	return pct, true
}
