// Package sink probes the Elasticsearch side of the CDC contract: documents
// are upserted under the source primary key, so repeated ingestion of one row
// leaves a single document holding the last written values.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Config locates the cluster.
type Config struct {
	URL      string
	Username string
	Password string

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client is a thin wrapper over the official client for the calls the
// contract needs.
type Client struct {
	es *elasticsearch.Client
}

// New creates a client. It does not contact the cluster; use Ping.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("sink: no Elasticsearch URL configured")
	}
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Transport: cfg.Transport,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}
	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// Ping checks the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error connecting to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	return responseError(res, "info")
}

// Upsert writes doc under id, creating or replacing its fields, and refreshes
// the index so the write is visible to the next count.
func (c *Client) Upsert(ctx context.Context, index, id string, doc map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"doc":           doc,
		"doc_as_upsert": true,
	})
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", index, id, err)
	}
	res, err := c.es.Update(index, id, bytes.NewReader(body),
		c.es.Update.WithContext(ctx),
		c.es.Update.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()
	return responseError(res, "upsert")
}

// Window is an inclusive time range on a field.
type Window struct {
	Field string
	From  time.Time
	To    time.Time
}

// Count returns the number of documents with the given _id, optionally
// restricted to a time window.
func (c *Client) Count(ctx context.Context, index, id string, window *Window) (int, error) {
	filters := []any{
		map[string]any{"ids": map[string]any{"values": []string{id}}},
	}
	if window != nil {
		filters = append(filters, map[string]any{
			"range": map[string]any{
				window.Field: map[string]any{
					"gte": window.From.UTC().Format(time.RFC3339),
					"lte": window.To.UTC().Format(time.RFC3339),
				},
			},
		})
	}
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{"bool": map[string]any{"filter": filters}},
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", index, err)
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(index),
		c.es.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", index, err)
	}
	defer res.Body.Close()
	if err := responseError(res, "count"); err != nil {
		return 0, err
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("count %s: decoding response: %w", index, err)
	}
	return out.Count, nil
}

// Source returns the stored fields of a document.
func (c *Client) Source(ctx context.Context, index, id string) (map[string]any, error) {
	res, err := c.es.Get(index, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()
	if err := responseError(res, "get"); err != nil {
		return nil, err
	}

	var out struct {
		Found  bool           `json:"found"`
		Source map[string]any `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("get %s/%s: decoding response: %w", index, id, err)
	}
	if !out.Found {
		return nil, fmt.Errorf("get %s/%s: document not found", index, id)
	}
	return out.Source, nil
}

func responseError(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: error response from Elasticsearch: %s: %s", op, res.Status(), bytes.TrimSpace(msg))
}
