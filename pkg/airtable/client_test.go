package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRecord(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody createRecordRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"recABC123","createdTime":"2024-05-01T12:00:00.000Z","fields":{"Bike Info":"Canyon Endurace 2021"}}`))
	}))
	defer server.Close()

	c := NewClient("key-secret", WithBaseURL(server.URL))
	rec, err := c.CreateRecord(context.Background(), "appBase", "tblReports", map[string]any{
		"Bike Info":    "Canyon Endurace 2021",
		"Product URL":  "https://x/P-1-roue",
		"API Response": "compatible / high",
		"Comment":      "le verdict semble faux",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v0/appBase/tblReports", gotPath)
	assert.Equal(t, "Bearer key-secret", gotAuth)
	assert.Equal(t, "Canyon Endurace 2021", gotBody.Fields["Bike Info"])
	assert.Equal(t, "le verdict semble faux", gotBody.Fields["Comment"])
	assert.Equal(t, "recABC123", rec.ID)
	assert.Equal(t, "Canyon Endurace 2021", rec.Fields["Bike Info"])
}

func TestCreateRecordErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{name: "unauthorized", statusCode: http.StatusUnauthorized, body: `{"error":{"type":"AUTHENTICATION_REQUIRED"}}`},
		{name: "invalid table", statusCode: http.StatusNotFound, body: `{"error":"NOT_FOUND"}`},
		{name: "rate limited", statusCode: http.StatusTooManyRequests, body: `{"error":{"type":"RATE_LIMIT_REACHED"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient("key", WithBaseURL(server.URL))
			rec, err := c.CreateRecord(context.Background(), "app", "tbl", map[string]any{"Comment": "x"})
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.Contains(t, err.Error(), "airtable: unexpected status")
		})
	}
}

func TestCreateRecordMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := NewClient("key", WithBaseURL(server.URL))
	_, err := c.CreateRecord(context.Background(), "app", "tbl", map[string]any{"Comment": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "airtable: decode response")
}

func TestCreateRecordContextCancelled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("key", WithBaseURL(server.URL))
	_, err := c.CreateRecord(ctx, "app", "tbl", map[string]any{"Comment": "x"})
	require.Error(t, err)
	assert.Zero(t, calls.Load())
}
