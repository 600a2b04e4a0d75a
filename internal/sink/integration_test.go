//go:build integration

package sink

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSmokeLiveCluster runs the upsert contract against CDCFLOW_ES_URL.
//
//	CDCFLOW_ES_URL=http://localhost:9200 go test -tags integration ./internal/sink
func TestSmokeLiveCluster(t *testing.T) {
	url := os.Getenv("CDCFLOW_ES_URL")
	if url == "" {
		t.Skip("CDCFLOW_ES_URL not set")
	}

	c, err := New(Config{
		URL:      url,
		Username: os.Getenv("CDCFLOW_ES_USERNAME"),
		Password: os.Getenv("CDCFLOW_ES_PASSWORD"),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, c.Ping(ctx))

	s := myTable()
	s.Elasticsearch.Index = "cdcflow_integration_my_table"
	res, err := Smoke(ctx, c, s, time.Now())
	require.NoError(t, err, "checks: %+v", res)
}
