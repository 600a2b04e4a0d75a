package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/cdcflow/internal/spec"
)

// ValueField is the payload field rewritten by each smoke upsert.
const ValueField = "VALUE"

// smokeWrites is the number of upserts of the same source row.
const smokeWrites = 3

// Check is one assertion of the smoke run.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func (c Check) String() string {
	status := "pass"
	if !c.Passed {
		status = "FAIL"
	}
	return fmt.Sprintf("%s: %s (%s)", c.Name, status, c.Detail)
}

// SmokeResult reports a smoke run against one index.
type SmokeResult struct {
	Index      string  `json:"index"`
	DocumentID string  `json:"document_id"`
	Checks     []Check `json:"checks"`
}

// Passed reports whether every check passed.
func (r *SmokeResult) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// ContractError is returned when the sink breaks the upsert contract.
type ContractError struct {
	Index  string
	Failed []Check
}

func (e *ContractError) Error() string {
	names := make([]string, len(e.Failed))
	for i, c := range e.Failed {
		names[i] = c.Name + " (" + c.Detail + ")"
	}
	return fmt.Sprintf("sink contract failed on %s: %s", e.Index, strings.Join(names, "; "))
}

// Smoke upserts one synthetic row of s three times with different values,
// then asserts the index holds one document with the last value and that a
// range query over the smallest window finds it.
//
// Transport failures are returned as errors; contract failures are reported
// in the result and as a *ContractError.
func Smoke(ctx context.Context, c *Client, s *spec.Spec, now time.Time) (*SmokeResult, error) {
	index := s.Elasticsearch.Index
	id := "cdcflow-smoke-" + uuid.NewString()
	res := &SmokeResult{Index: index, DocumentID: id}

	stamp := now.UTC().Truncate(time.Second)
	var last string
	for i := 1; i <= smokeWrites; i++ {
		last = fmt.Sprintf("value-%d", i)
		doc := map[string]any{
			s.Table.PrimaryKey: id,
			s.Table.CDCKey:     stamp.Format(time.RFC3339),
			ValueField:         last,
		}
		if err := c.Upsert(ctx, index, id, doc); err != nil {
			return nil, err
		}
	}

	count, err := c.Count(ctx, index, id, nil)
	if err != nil {
		return nil, err
	}
	res.Checks = append(res.Checks, Check{
		Name:   "single-document",
		Passed: count == 1,
		Detail: fmt.Sprintf("%d upserts of %s=%s left %d document(s)", smokeWrites, s.Table.PrimaryKey, id, count),
	})

	source, err := c.Source(ctx, index, id)
	if err != nil {
		return nil, err
	}
	got := fmt.Sprint(source[ValueField])
	res.Checks = append(res.Checks, Check{
		Name:   "last-write-wins",
		Passed: got == last,
		Detail: fmt.Sprintf("%s is %q, want %q", ValueField, got, last),
	})

	r := s.SmallestRange()
	window := &Window{
		Field: s.Table.CDCKey,
		From:  stamp.Add(-time.Duration(r.Minutes()) * time.Minute),
		To:    stamp,
	}
	hits, err := c.Count(ctx, index, id, window)
	if err != nil {
		return nil, err
	}
	res.Checks = append(res.Checks, Check{
		Name:   "range-window",
		Passed: hits == 1,
		Detail: fmt.Sprintf("[now-%s, now] on %s matched %d document(s)", r, s.Table.CDCKey, hits),
	})

	if !res.Passed() {
		var failed []Check
		for _, c := range res.Checks {
			if !c.Passed {
				failed = append(failed, c)
			}
		}
		return res, &ContractError{Index: index, Failed: failed}
	}
	return res, nil
}
