package link

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-context-sdk/diddoc"
)

// registryServer is a minimal in-memory DID registry speaking the resolver's
// GET/PUT protocol.
type registryServer struct {
	mu   sync.Mutex
	docs map[string][]byte
	gets int
}

func newRegistryServer() *registryServer {
	return &registryServer{docs: make(map[string][]byte)}
}

func (s *registryServer) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gets
}

func (s *registryServer) put(did string, doc *diddoc.Document) error {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[did] = encoded

	return nil
}

func (s *registryServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	did := strings.TrimPrefix(r.URL.Path, "/")

	switch r.Method {
	case http.MethodGet:
		s.gets++
		doc, ok := s.docs[did]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(doc)
	case http.MethodPut:
		var doc diddoc.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		encoded, _ := json.Marshal(doc)
		s.docs[did] = encoded
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestHTTPResolverRoundtrip(t *testing.T) {
	registry := newRegistryServer()
	server := httptest.NewServer(registry)
	defer server.Close()

	resolver := NewHTTPResolver(server.URL)
	ctx := context.Background()

	doc := &diddoc.Document{ID: testDID}
	require.NoError(t, resolver.Publish(ctx, doc))

	resolved, err := resolver.Resolve(ctx, testDID)
	require.NoError(t, err)
	assert.Equal(t, testDID, resolved.ID)
	assert.Equal(t, 0, registry.getCount(), "publish primes the cache")
}

func TestHTTPResolverCachesResolutions(t *testing.T) {
	registry := newRegistryServer()
	server := httptest.NewServer(registry)
	defer server.Close()

	require.NoError(t, registry.put(testDID, &diddoc.Document{ID: testDID}))

	resolver := NewHTTPResolver(server.URL)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, testDID)
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, testDID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, registry.getCount(), "repeat lookups are served from the cache")

	// Cached documents are copies: mutations do not leak between callers.
	first.Service = append(first.Service, diddoc.Service{ID: "mutated"})
	third, err := resolver.Resolve(ctx, testDID)
	require.NoError(t, err)
	assert.Empty(t, third.Service)
}

func TestHTTPResolverNotFound(t *testing.T) {
	registry := newRegistryServer()
	server := httptest.NewServer(registry)
	defer server.Close()

	resolver := NewHTTPResolver(server.URL)

	_, err := resolver.Resolve(context.Background(), "did:vda:0xmissing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Equal(t, 1, registry.getCount(), "a 404 is permanent and never retried")
}

func TestHTTPResolverPublishValidation(t *testing.T) {
	resolver := NewHTTPResolver("http://registry.invalid")

	assert.Error(t, resolver.Publish(context.Background(), nil))
	assert.Error(t, resolver.Publish(context.Background(), &diddoc.Document{}))
}
