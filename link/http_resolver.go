package link

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-context-sdk/diddoc"
)

const (
	defaultResolverTimeout = 10 * time.Second
	defaultCacheSize       = 128
	defaultMaxRetries      = 3
)

// HTTPResolver is the default Resolver: it speaks to a DID registry over
// HTTP (GET/PUT document by DID), retries transient failures with
// exponential backoff and keeps an LRU cache of resolved documents.
type HTTPResolver struct {
	baseURL    string
	client     *http.Client
	cache      gcache.Cache
	maxRetries uint64
}

// HTTPResolverOption configures an HTTPResolver.
type HTTPResolverOption func(*HTTPResolver)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HTTPResolverOption {
	return func(r *HTTPResolver) { r.client = client }
}

// WithCacheSize overrides the resolved-document cache size.
func WithCacheSize(size int) HTTPResolverOption {
	return func(r *HTTPResolver) { r.cache = gcache.New(size).LRU().Build() }
}

// WithMaxRetries overrides the transient-failure retry count.
func WithMaxRetries(retries uint64) HTTPResolverOption {
	return func(r *HTTPResolver) { r.maxRetries = retries }
}

// NewHTTPResolver creates a resolver against a registry base URL.
func NewHTTPResolver(baseURL string, options ...HTTPResolverOption) *HTTPResolver {
	r := &HTTPResolver{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout:   defaultResolverTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache:      gcache.New(defaultCacheSize).LRU().Build(),
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range options {
		opt(r)
	}

	return r
}

// Resolve fetches the document of a DID, serving repeat lookups from the
// cache until the next Publish for that DID.
func (r *HTTPResolver) Resolve(ctx context.Context, did string) (*diddoc.Document, error) {
	did = strings.ToLower(did)

	if cached, err := r.cache.Get(did); err == nil {
		return cached.(*diddoc.Document).Copy(), nil
	}

	var doc diddoc.Document
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.documentURL(did), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to reach DID registry: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("DID document not found: %s", did))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("DID registry returned status %s", resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read registry response: %w", err)
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to unmarshal DID document: %w", err))
		}

		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	r.cache.Set(did, doc.Copy())

	return &doc, nil
}

// Publish saves a document under its id and refreshes the cache entry.
func (r *HTTPResolver) Publish(ctx context.Context, doc *diddoc.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("document is missing an id")
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal DID document: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.documentURL(doc.ID), bytes.NewReader(encoded))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to reach DID registry: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("DID registry returned status %s", resp.Status)
		}

		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return err
	}

	r.cache.Set(strings.ToLower(doc.ID), doc.Copy())

	return nil
}

func (r *HTTPResolver) documentURL(did string) string {
	return r.baseURL + "/" + url.PathEscape(did)
}
