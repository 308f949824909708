package es_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tarot-ai-go/internal/config"
	"tarot-ai-go/internal/model"
	"tarot-ai-go/pkg/es"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES 记录收到的请求，按路径返回固定响应。
type fakeES struct {
	mu          sync.Mutex
	indexExists bool
	requests    []string
	docs        map[string]string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/transcripts":
		if !f.indexExists {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/transcripts":
		f.indexExists = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/transcripts/_doc/"):
		body, _ := io.ReadAll(r.Body)
		f.docs[strings.TrimPrefix(r.URL.Path, "/transcripts/_doc/")] = string(body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"c1","_score":1.5,
			"_source":{"title":"Tower reading","updated_at":"2024-05-01T10:00:00Z"},
			"highlight":{"content":["the <em>Tower</em> falls"]}}]}}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T) (*es.Client, *fakeES) {
	t.Helper()
	fake := &fakeES{docs: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := es.InitES(config.ElasticsearchConfig{Addresses: srv.URL, IndexName: "transcripts"})
	require.NoError(t, err)
	return client, fake
}

func TestInitES_CreatesMissingIndex(t *testing.T) {
	_, fake := newTestClient(t)
	assert.Equal(t, []string{"HEAD /transcripts", "PUT /transcripts"}, fake.requests)
}

func TestIndexTranscript(t *testing.T) {
	client, fake := newTestClient(t)

	err := client.IndexTranscript(context.Background(), model.TranscriptDocument{
		ConversationID: "c1",
		Title:          "Tower reading",
		Content:        "user: draw\nassistant: The Tower",
		MessageCount:   2,
		UpdatedAt:      time.Now(),
	})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(fake.docs["c1"]), &doc))
	assert.Equal(t, "Tower reading", doc["title"])
	assert.EqualValues(t, 2, doc["message_count"])
}

func TestDeleteTranscript_MissingIsOK(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.DeleteTranscript(context.Background(), "nope"))
}

func TestSearchTranscripts(t *testing.T) {
	client, _ := newTestClient(t)

	hits, err := client.SearchTranscripts(context.Background(), "tower", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ConversationID)
	assert.Equal(t, "Tower reading", hits[0].Title)
	assert.InDelta(t, 1.5, hits[0].Score, 1e-9)
	assert.Equal(t, []string{"the <em>Tower</em> falls"}, hits[0].Highlights)
}
