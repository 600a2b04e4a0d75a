package spec

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxIdentifierLength is the Oracle limit on identifier length in bytes.
const MaxIdentifierLength = 128

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*$`)
	rangePattern      = regexp.MustCompile(`^[0-9]+m$`)
)

// Check validates a decoded spec and returns every rule violation in field
// order. The record is valid when the result is empty.
func Check(s *Spec) []*Error {
	var errs []*Error

	required := []struct {
		field string
		value string
	}{
		{"table.name", s.Table.Name},
		{"table.schema", s.Table.Schema},
		{"table.primary_key", s.Table.PrimaryKey},
		{"table.cdc_key", s.Table.CDCKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, invalid(r.field, RuleRequired, "%s is required", r.field))
			continue
		}
		if err := checkIdentifier(r.field, r.value); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, checkColumns(s)...)
	errs = append(errs, checkRanges(s)...)

	if strings.TrimSpace(s.Elasticsearch.Index) == "" {
		errs = append(errs, invalid("elasticsearch.index", RuleRequired, "elasticsearch.index is required"))
	} else if msg := indexNameProblem(s.Elasticsearch.Index); msg != "" {
		errs = append(errs, invalid("elasticsearch.index", RuleIndexName, "%s", msg))
	}

	switch {
	case strings.TrimSpace(s.Elasticsearch.IDField) == "":
		errs = append(errs, invalid("elasticsearch.id_field", RuleRequired, "elasticsearch.id_field is required"))
	case checkIdentifier("elasticsearch.id_field", s.Elasticsearch.IDField) != nil:
		errs = append(errs, checkIdentifier("elasticsearch.id_field", s.Elasticsearch.IDField))
	case s.Elasticsearch.IDField != s.Table.PrimaryKey:
		errs = append(errs, invalid("elasticsearch.id_field", RuleIDField,
			"id_field %q must equal table.primary_key %q", s.Elasticsearch.IDField, s.Table.PrimaryKey))
	}

	if s.Path != "" && s.Table.Name != "" {
		base := strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
		if base != s.TableLower() {
			errs = append(errs, invalid("table.name", RuleFileName,
				"spec file %q must be named %s.<ext>", filepath.Base(s.Path), s.TableLower()))
		}
	}

	return errs
}

func checkIdentifier(field, value string) *Error {
	if len(value) > MaxIdentifierLength {
		return invalid(field, RuleIdentifier, "%q exceeds %d bytes", value, MaxIdentifierLength)
	}
	if !identifierPattern.MatchString(value) {
		return invalid(field, RuleIdentifier,
			"%q is not a valid SQL identifier (ASCII letter followed by letters, digits, _, $ or #)", value)
	}
	return nil
}

func checkColumns(s *Spec) []*Error {
	if len(s.Table.Columns) == 0 {
		return nil
	}

	var errs []*Error
	seen := make(map[string]bool)
	for i, col := range s.Table.Columns {
		field := fmt.Sprintf("table.columns[%d]", i)
		if err := checkIdentifier(field, col); err != nil {
			errs = append(errs, err)
			continue
		}
		upper := strings.ToUpper(col)
		if seen[upper] {
			errs = append(errs, invalid(field, RuleUnique, "duplicate column %q", col))
		}
		seen[upper] = true
	}

	for _, key := range []string{s.Table.PrimaryKey, s.Table.CDCKey} {
		if key != "" && !seen[strings.ToUpper(key)] {
			errs = append(errs, invalid("table.columns", RuleProjection,
				"columns must include %q (primary_key and cdc_key are always projected)", key))
		}
	}
	return errs
}

func checkRanges(s *Spec) []*Error {
	if len(s.Range.Options) == 0 {
		return []*Error{invalid("range.options", RuleRequired, "range.options must list at least one window")}
	}

	var errs []*Error
	seen := make(map[Range]bool)
	for i, r := range s.Range.Options {
		field := fmt.Sprintf("range.options[%d]", i)
		if !rangePattern.MatchString(string(r)) {
			errs = append(errs, invalid(field, RulePattern, "window %q must match ^[0-9]+m$", r))
			continue
		}
		if r.Minutes() < 0 {
			errs = append(errs, invalid(field, RulePattern, "window %q exceeds %dm", r, MaxWindowMinutes))
			continue
		}
		if seen[r] {
			errs = append(errs, invalid(field, RuleUnique, "duplicate window %q", r))
		}
		seen[r] = true
	}

	if s.Range.Default != "" && !seen[s.Range.Default] {
		errs = append(errs, invalid("range.default", RuleDefault,
			"default window %q is not one of range.options", s.Range.Default))
	}
	return errs
}

// indexNameProblem applies the Elasticsearch index naming rules.
func indexNameProblem(name string) string {
	switch {
	case name != strings.ToLower(name):
		return fmt.Sprintf("index %q must be lowercase", name)
	case name == "." || name == "..":
		return fmt.Sprintf("index %q is reserved", name)
	case strings.ContainsAny(name[:1], "-_+"):
		return fmt.Sprintf("index %q must not start with -, _ or +", name)
	case strings.ContainsAny(name, `\/*?"<>| ,#:`):
		return fmt.Sprintf("index %q contains a forbidden character", name)
	case len(name) > 255:
		return fmt.Sprintf("index %q exceeds 255 bytes", name)
	}
	return ""
}
