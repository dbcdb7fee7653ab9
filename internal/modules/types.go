package modules

// StrategyKind identifies one of the retrieval algorithms implemented by the
// pull engine. The set is closed: extending it means adding a kind here and a
// matching branch in the puller, not loading code at runtime.
type StrategyKind string

const (
	// StrategyJSONCollection fetches a whole collection with a single request.
	StrategyJSONCollection StrategyKind = "json_collection"

	// StrategyPaginated walks a cursor-based listing, passing the cursor from
	// each response into the next request.
	StrategyPaginated StrategyKind = "paginated"

	// StrategyOffsetPaginated walks a page-numbered listing, stopping when a
	// page comes back short.
	StrategyOffsetPaginated StrategyKind = "offset_paginated"

	// StrategyScriptCode lists metadata objects, then retrieves each object's
	// code body with a follow-up request per identifier.
	StrategyScriptCode StrategyKind = "script_code"

	// StrategyZipArtifact retrieves objects wrapped in ZIP archives: one
	// archive per listed object when a metadata endpoint is configured, else
	// a single archive whose YAML members each map to one object.
	StrategyZipArtifact StrategyKind = "zip_artifact"
)

// PullSpec selects a retrieval strategy and carries its parameters. Only the
// fields relevant to Kind are consulted.
type PullSpec struct {
	Kind StrategyKind

	// Paginated (cursor) parameters.
	CursorParam string // query parameter carrying the cursor forward
	CursorField string // response path of the next cursor ("" or missing ends the walk)
	LimitParam  string // query parameter naming the page size
	PageSize    int

	// OffsetPaginated parameters.
	PageParam     string // query parameter carrying the page number
	PageSizeParam string // query parameter naming the page size

	// ScriptCode parameters.
	ListEndpoint     string // endpoint returning the metadata listing
	CodeEndpoint     string // endpoint returning one object's code body
	ListResponsePath string // response path of the metadata array
	UIDField         string // metadata field passed to the code endpoint

	// ZipArtifact parameters.
	MetadataEndpoint     string // endpoint returning the artifact listing
	DownloadEndpoint     string // endpoint returning one artifact as a ZIP
	MetadataResponsePath string // response path of the artifact array
	DownloadFilterField  string // filter field used to select one artifact
}

// ContentType describes one kind of remote object: where to fetch it, how to
// identify it, and which pull strategy retrieves it. Descriptors are defined
// at build time and never mutated.
type ContentType struct {
	// Name is the directory name under the module and the CLI-facing label.
	Name string

	// Endpoint is the retrieval path relative to the module's base API path.
	Endpoint string

	// IDField names the remote field that uniquely identifies an object.
	IDField string

	// Pull selects the retrieval strategy and its parameters.
	Pull PullSpec

	// RequestBody, when non-nil, makes the retrieval request a POST carrying
	// this JSON body. A nil body means a plain GET.
	RequestBody map[string]any

	// ResponsePath is the path of the object array inside the response body,
	// in gjson syntax (for example "reply.scripts" or
	// "objects.0.dashboards_data"). Empty means the response root is the
	// array itself.
	ResponsePath string
}

// Module groups the content types belonging to one remote platform surface.
type Module interface {
	// ID is the unique module identifier used in CLI commands and in the
	// [modules.<id>] config block.
	ID() string

	// Name is the human-readable module name.
	Name() string

	// BaseAPIPath is the path prefix shared by the module's endpoints.
	BaseAPIPath() string

	// ContentTypes returns the module's descriptors in sync order. Later
	// content types may reference identifiers created by earlier ones, so
	// the order is part of the module contract.
	ContentTypes() []ContentType
}
