package pull

import (
	"context"

	"github.com/gocortexio/gcgit/internal/modules"
)

// fetchCollection retrieves a whole collection with a single request.
func (p *defaultPuller) fetchCollection(ctx context.Context, ct modules.ContentType) (*Result, error) {
	body, err := p.request(ctx, ct, ct.Endpoint)
	if err != nil {
		return nil, err
	}

	objects, warnings := extractItems(body, ct.ResponsePath, ct.Name)
	return &Result{Objects: objects, Warnings: warnings}, nil
}
