// Package sinktest provides an in-memory Elasticsearch stand-in that speaks
// the subset of the REST API used by package sink.
package sinktest

import (
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Server is a fake cluster. Set AppendOnly to emulate a sink that indexes a
// new document per write instead of upserting.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	AppendOnly bool
	docs       map[string][]document // by index
}

type document struct {
	id     string
	source map[string]any
}

// NewServer starts a fake closed at test cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{docs: map[string][]document{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.info)
	mux.HandleFunc("POST /{index}/_update/{id}", s.update)
	mux.HandleFunc("POST /{index}/_count", s.count)
	mux.HandleFunc("GET /{index}/_doc/{id}", s.get)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// Documents returns the number of stored documents in index.
func (s *Server) Documents(index string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[index])
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         "sinktest",
		"cluster_name": "sinktest",
		"version":      map[string]any{"number": "8.18.1"},
		"tagline":      "You Know, for Search",
	})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Doc         map[string]any `json:"doc"`
		DocAsUpsert bool           `json:"doc_as_upsert"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	index, id := r.PathValue("index"), r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.AppendOnly {
		for _, d := range s.docs[index] {
			if d.id == id {
				maps.Copy(d.source, body.Doc)
				writeJSON(w, http.StatusOK, map[string]any{"_id": id, "result": "updated"})
				return
			}
		}
	}
	if !body.DocAsUpsert && !s.AppendOnly {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "document_missing_exception"})
		return
	}
	s.docs[index] = append(s.docs[index], document{id: id, source: maps.Clone(body.Doc)})
	writeJSON(w, http.StatusCreated, map[string]any{"_id": id, "result": "created"})
}

// countQuery is the bool filter shape sent by sink.Client.Count.
type countQuery struct {
	Query struct {
		Bool struct {
			Filter []struct {
				IDs *struct {
					Values []string `json:"values"`
				} `json:"ids"`
				Range map[string]struct {
					GTE string `json:"gte"`
					LTE string `json:"lte"`
				} `json:"range"`
			} `json:"filter"`
		} `json:"bool"`
	} `json:"query"`
}

func (s *Server) count(w http.ResponseWriter, r *http.Request) {
	var q countQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.docs[r.PathValue("index")] {
		if matches(d, q) {
			n++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

func matches(d document, q countQuery) bool {
	for _, f := range q.Query.Bool.Filter {
		if f.IDs != nil {
			found := false
			for _, v := range f.IDs.Values {
				found = found || v == d.id
			}
			if !found {
				return false
			}
		}
		for field, bounds := range f.Range {
			raw, _ := d.source[field].(string)
			at, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return false
			}
			from, _ := time.Parse(time.RFC3339, bounds.GTE)
			to, _ := time.Parse(time.RFC3339, bounds.LTE)
			if at.Before(from) || at.After(to) {
				return false
			}
		}
	}
	return true
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	index, id := r.PathValue("index"), r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.docs[index]
	for i := len(docs) - 1; i >= 0; i-- {
		if docs[i].id == id {
			writeJSON(w, http.StatusOK, map[string]any{"_id": id, "found": true, "_source": docs[i].source})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"_id": id, "found": false})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
