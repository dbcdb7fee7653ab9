// Package pull implements the retrieval strategies that fetch a content
// type's objects from a module API. All strategies share one contract: they
// produce a finite, restartable sequence of objects in a well-defined order,
// so that repeated runs against an unchanged remote yield identical results
// regardless of fetch concurrency.
package pull

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/gocortexio/gcgit/internal/api"
	"github.com/gocortexio/gcgit/internal/modules"
)

// Result is the outcome of fetching one content type.
type Result struct {
	// Objects in fetch order. For paginated strategies this is page order;
	// for two-step strategies it is metadata-listing order, never body
	// completion order.
	Objects []Object

	// Warnings are non-fatal anomalies: missing response paths, failed body
	// fetches, aborted pagination.
	Warnings []string

	// Partial is true when a mid-pagination failure cut the sequence short.
	// Objects already fetched are still valid and must be diffed.
	Partial bool
}

// Puller fetches every remote object for one content type.
//
//go:generate mockgen -destination=mocks/mock_puller.go -package=mocks github.com/gocortexio/gcgit/internal/pull Puller
type Puller interface {
	Fetch(ctx context.Context, ct modules.ContentType) (*Result, error)

	// Probe issues the content type's listing request once and returns the
	// number of objects it yields, without per-object follow-up requests.
	Probe(ctx context.Context, ct modules.ContentType) (int, error)
}

// defaultPuller dispatches to the strategy selected by the descriptor.
type defaultPuller struct {
	client api.Client
}

// New creates a Puller backed by the given module API client.
func New(client api.Client) Puller {
	return &defaultPuller{client: client}
}

// Fetch retrieves all objects for the content type using its configured
// strategy. A transport failure on the first request is returned as an
// error; later failures yield a partial Result with a warning.
func (p *defaultPuller) Fetch(ctx context.Context, ct modules.ContentType) (*Result, error) {
	switch ct.Pull.Kind {
	case modules.StrategyJSONCollection:
		return p.fetchCollection(ctx, ct)
	case modules.StrategyPaginated:
		return p.fetchPaginated(ctx, ct)
	case modules.StrategyOffsetPaginated:
		return p.fetchOffsetPaginated(ctx, ct)
	case modules.StrategyScriptCode:
		return p.fetchScriptCode(ctx, ct)
	case modules.StrategyZipArtifact:
		return p.fetchZipArtifact(ctx, ct)
	default:
		return nil, fmt.Errorf("unknown pull strategy %q for content type %s", ct.Pull.Kind, ct.Name)
	}
}

// Probe issues the content type's listing request and counts the objects
// in the response. Two-step strategies probe only their listing endpoint.
func (p *defaultPuller) Probe(ctx context.Context, ct modules.ContentType) (int, error) {
	endpoint := ct.Endpoint
	path := ct.ResponsePath
	switch ct.Pull.Kind {
	case modules.StrategyScriptCode:
		endpoint = ct.Pull.ListEndpoint
		path = ct.Pull.ListResponsePath
	case modules.StrategyZipArtifact:
		if ct.Pull.MetadataEndpoint == "" {
			// Single-archive content types have no listing; fetch the
			// archive and count its members.
			res, err := p.fetchArchiveMembers(ctx, ct)
			if err != nil {
				return 0, err
			}
			return len(res.Objects), nil
		}
		endpoint = ct.Pull.MetadataEndpoint
		path = ct.Pull.MetadataResponsePath
	}

	body, err := p.request(ctx, ct, endpoint)
	if err != nil {
		return 0, err
	}
	objects, _ := extractItems(body, path, ct.Name)
	return len(objects), nil
}

// request performs the content type's retrieval request: POST when the
// descriptor declares a request body, GET otherwise.
func (p *defaultPuller) request(ctx context.Context, ct modules.ContentType, endpoint string) ([]byte, error) {
	if ct.RequestBody != nil {
		return p.client.Post(ctx, endpoint, ct.RequestBody)
	}
	return p.client.Get(ctx, endpoint, nil)
}

// extractItems pulls the object array out of a response body using the
// descriptor's response path. A missing or non-array path is a warning, not
// an error: it can mean either "no data" or a changed API shape, and only
// the operator can tell which.
func extractItems(body []byte, path, ctName string) ([]Object, []string) {
	root := gjson.ParseBytes(body)
	arr := root
	if path != "" {
		arr = root.Get(path)
	}

	if !arr.Exists() {
		return nil, []string{fmt.Sprintf(
			"response path %q not found for %s: endpoint may have no data or its structure changed", path, ctName)}
	}
	if !arr.IsArray() {
		return nil, []string{fmt.Sprintf(
			"response path %q for %s is not an array: endpoint structure may have changed", path, ctName)}
	}

	var warnings []string
	items := arr.Array()
	objects := make([]Object, 0, len(items))
	for i, item := range items {
		obj, ok := item.Value().(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: element %d is not an object, skipped", ctName, i))
			continue
		}
		objects = append(objects, obj)
	}
	return objects, warnings
}
