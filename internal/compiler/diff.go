package compiler

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between the previous and the new content of an
// artifact. It returns "" when they are equal.
func Diff(path string, before, after []byte) (string, error) {
	if string(before) == string(after) {
		return "", nil
	}
	from := path
	if before == nil {
		from = "/dev/null"
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: from,
		ToFile:   path,
		Context:  3,
	})
}

// Diffs returns the registry and flow diffs of a result, skipping
// unchanged artifacts.
func (r *Result) Diffs(registryPath, flowPath string) ([]string, error) {
	var out []string
	for _, a := range []struct {
		path          string
		before, after []byte
	}{
		{registryPath, r.PreviousRegistry, r.RegistryBytes},
		{flowPath, r.PreviousFlow, r.FlowBytes},
	} {
		d, err := Diff(a.path, a.before, a.after)
		if err != nil {
			return nil, err
		}
		if d != "" {
			out = append(out, d)
		}
	}
	return out, nil
}
