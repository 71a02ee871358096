// Package link resolves (DID, context name) pairs to secure context
// configurations by reading and publishing DID documents through a resolver
// collaborator.
package link

import (
	"context"

	"github.com/pilacorp/go-context-sdk/diddoc"
)

// Resolver fetches and publishes DID documents. The SDK ships HTTPResolver
// as the default implementation; tests and embedders may swap in their own.
type Resolver interface {
	// Resolve fetches the current document of a DID.
	Resolve(ctx context.Context, did string) (*diddoc.Document, error)

	// Publish saves a document under its id.
	Publish(ctx context.Context, doc *diddoc.Document) error
}
