package typesense

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/typesense/typesense-go/v2/typesense"
)

type fakeTypesense struct {
	mu      sync.Mutex
	exists  bool
	created map[string]interface{}
}

func (f *fakeTypesense) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/"+SpeciesCollection:
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"species","fields":[],"num_documents":0,"created_at":1}`))
	case r.Method == http.MethodPost && r.URL.Path == "/collections":
		_ = json.NewDecoder(r.Body).Decode(&f.created)
		f.exists = true
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"name":"species","fields":[],"num_documents":0,"created_at":1}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeTypesense) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClientFromTypesense(typesense.NewClient(
		typesense.WithServer(srv.URL),
		typesense.WithAPIKey("xyz"),
	))
}

func TestClient_InitSchema_CreatesSpeciesCollection(t *testing.T) {
	fake := &fakeTypesense{}
	client := newTestClient(t, fake)

	require.NoError(t, client.InitSchema(context.Background()))

	require.NotNil(t, fake.created)
	assert.Equal(t, SpeciesCollection, fake.created["name"])
	assert.Equal(t, "fetched_at", fake.created["default_sorting_field"])

	fields, ok := fake.created["fields"].([]interface{})
	require.True(t, ok)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.(map[string]interface{})["name"].(string))
	}
	assert.Contains(t, names, "scientific_name")
	assert.Contains(t, names, "perenual_id")
}

func TestClient_InitSchema_ExistingCollection(t *testing.T) {
	fake := &fakeTypesense{exists: true}
	client := newTestClient(t, fake)

	require.NoError(t, client.InitSchema(context.Background()))
	assert.Nil(t, fake.created)
}
