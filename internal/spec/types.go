package spec

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Spec is a validated table specification.
type Spec struct {
	// Path is the file the spec was loaded from.
	Path          string
	Table         Table
	Range         RangeOptions
	Elasticsearch Elasticsearch
}

// Table describes the source table.
type Table struct {
	Name       string
	Schema     string
	PrimaryKey string
	CDCKey     string   // monotonic watermark column
	Columns    []string // empty means SELECT *
}

// RangeOptions lists the window tokens compiled for the table.
type RangeOptions struct {
	Options []Range
	Default Range // empty when not pinned
}

// Elasticsearch describes the sink index.
type Elasticsearch struct {
	Index   string
	IDField string
}

// Range is a window token such as "15m". It is a label, not a runtime duration.
type Range string

// MaxWindowMinutes is the longest window whose length fits a time.Duration.
const MaxWindowMinutes = math.MaxInt64 / int64(time.Minute)

// Minutes returns the numeric prefix of the token, or -1 if it is malformed
// or longer than MaxWindowMinutes.
func (r Range) Minutes() int {
	n, err := strconv.ParseInt(strings.TrimSuffix(string(r), "m"), 10, 64)
	if err != nil || !strings.HasSuffix(string(r), "m") || n > MaxWindowMinutes {
		return -1
	}
	return int(n)
}

// TableLower is the lowercased table name used in sql_ids and file names.
func (s *Spec) TableLower() string {
	return strings.ToLower(s.Table.Name)
}

// TableUpper is the uppercased table name used in emitted SQL and registry entries.
func (s *Spec) TableUpper() string {
	return strings.ToUpper(s.Table.Name)
}

// SmallestRange returns the option with the smallest numeric prefix.
// Ties keep spec order.
func (s *Spec) SmallestRange() Range {
	if len(s.Range.Options) == 0 {
		return ""
	}
	return slices.MinFunc(s.Range.Options, CompareRanges)
}

// BindingRange returns the pinned default, falling back to the smallest range.
func (s *Spec) BindingRange() Range {
	if s.Range.Default != "" {
		return s.Range.Default
	}
	return s.SmallestRange()
}

// CompareRanges orders window tokens by their numeric prefix. Prefixes are
// compared as digit strings so no token overflows.
func CompareRanges(a, b Range) int {
	da, db := windowDigits(a), windowDigits(b)
	if c := cmp.Compare(len(da), len(db)); c != 0 {
		return c
	}
	return strings.Compare(da, db)
}

func windowDigits(r Range) string {
	return strings.TrimLeft(strings.TrimSuffix(string(r), "m"), "0")
}
