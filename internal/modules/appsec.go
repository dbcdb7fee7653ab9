package modules

// AppSecModule covers the Cortex Application Security surface under
// /public_api/appsec/v1.
type AppSecModule struct{}

// ID returns the module identifier.
func (*AppSecModule) ID() string { return "appsec" }

// Name returns the human-readable module name.
func (*AppSecModule) Name() string { return "Application Security" }

// BaseAPIPath returns the path prefix for AppSec endpoints.
func (*AppSecModule) BaseAPIPath() string { return "/public_api" }

// ContentTypes returns the AppSec descriptors in sync order.
func (*AppSecModule) ContentTypes() []ContentType {
	return []ContentType{
		{
			Name:     "applications",
			Endpoint: "appsec/v1/application",
			IDField:  "id",
			Pull: PullSpec{
				Kind:          StrategyOffsetPaginated,
				PageParam:     "page",
				PageSizeParam: "pageSize",
				PageSize:      100,
			},
			ResponsePath: "data",
		},
		{
			Name:     "policies",
			Endpoint: "appsec/v1/policies",
			IDField:  "id",
			Pull:     PullSpec{Kind: StrategyJSONCollection},
		},
		{
			// Returns {"offset": X, "rules": [...]}.
			Name:         "rules",
			Endpoint:     "appsec/v1/rules",
			IDField:      "id",
			Pull:         PullSpec{Kind: StrategyJSONCollection},
			ResponsePath: "rules",
		},
		{
			Name:     "repositories",
			Endpoint: "appsec/v1/repositories",
			IDField:  "assetId",
			Pull:     PullSpec{Kind: StrategyJSONCollection},
		},
		{
			Name:     "integrations",
			Endpoint: "appsec/v1/integrations",
			IDField:  "id",
			Pull:     PullSpec{Kind: StrategyJSONCollection},
		},
		{
			// Findings are served as a cursor-paginated stream.
			Name:     "vulnerabilities",
			Endpoint: "appsec/v1/vulnerabilities",
			IDField:  "id",
			Pull: PullSpec{
				Kind:        StrategyPaginated,
				CursorParam: "cursor",
				CursorField: "meta.next_cursor",
				LimitParam:  "limit",
				PageSize:    100,
			},
			ResponsePath: "data",
		},
	}
}
