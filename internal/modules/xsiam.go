package modules

// XsiamModule covers the Cortex XSIAM configuration surface: detection
// content, dashboards, scripts and tenant settings exposed under
// /public_api/v1.
type XsiamModule struct{}

// ID returns the module identifier.
func (*XsiamModule) ID() string { return "xsiam" }

// Name returns the human-readable module name.
func (*XsiamModule) Name() string { return "XSIAM" }

// BaseAPIPath returns the path prefix for XSIAM endpoints.
func (*XsiamModule) BaseAPIPath() string { return "/public_api/v1" }

// ContentTypes returns the XSIAM descriptors in sync order. Scripts come
// after the collection types because correlation rules reference script
// identifiers and the two should land in a stable relative order.
func (*XsiamModule) ContentTypes() []ContentType {
	return []ContentType{
		{
			Name:         "dashboards",
			Endpoint:     "dashboards/get",
			IDField:      "global_id",
			Pull:         PullSpec{Kind: StrategyJSONCollection},
			RequestBody:  map[string]any{"request_data": map[string]any{}},
			ResponsePath: "objects.0.dashboards_data",
		},
		{
			Name:         "biocs",
			Endpoint:     "bioc/get",
			IDField:      "rule_id",
			Pull:         PullSpec{Kind: StrategyJSONCollection},
			RequestBody:  map[string]any{"request_data": map[string]any{"extended_view": true}},
			ResponsePath: "objects",
		},
		{
			Name:         "correlation_searches",
			Endpoint:     "correlations/get",
			IDField:      "rule_id",
			Pull:         PullSpec{Kind: StrategyJSONCollection},
			RequestBody:  map[string]any{"request_data": map[string]any{"extended_view": true}},
			ResponsePath: "objects",
		},
		{
			Name:         "widgets",
			Endpoint:     "widgets/get",
			IDField:      "creation_time",
			Pull:         PullSpec{Kind: StrategyJSONCollection},
			RequestBody:  map[string]any{"request_data": map[string]any{}},
			ResponsePath: "objects.0.widgets_data",
		},
		{
			Name:         "authentication_settings",
			Endpoint:     "authentication-settings/get/settings",
			IDField:      "name",
			Pull:         PullSpec{Kind: StrategyJSONCollection},
			RequestBody:  map[string]any{"request_data": map[string]any{}},
			ResponsePath: "reply",
		},
		{
			Name:     "scripts",
			Endpoint: "scripts/get_scripts",
			IDField:  "script_uid",
			Pull: PullSpec{
				Kind:             StrategyScriptCode,
				ListEndpoint:     "scripts/get_scripts",
				CodeEndpoint:     "scripts/get_script_code",
				ListResponsePath: "reply.scripts",
				UIDField:         "script_uid",
			},
			RequestBody: map[string]any{"request_data": map[string]any{}},
		},
		{
			Name:         "scheduled_queries",
			Endpoint:     "scheduled_queries/list",
			IDField:      "query_def_id",
			Pull:         PullSpec{Kind: StrategyJSONCollection},
			RequestBody:  map[string]any{"request_data": map[string]any{"extended_view": true}},
			ResponsePath: "reply.DATA",
		},
		{
			// This endpoint sits at /public_api/xql_library/get (no /v1/).
			Name:         "xql_library",
			Endpoint:     "../xql_library/get",
			IDField:      "id",
			Pull:         PullSpec{Kind: StrategyJSONCollection},
			RequestBody:  map[string]any{"request_data": map[string]any{"extended_view": true}},
			ResponsePath: "reply.xql_queries",
		},
		{
			Name:         "rbac_users",
			Endpoint:     "rbac/get_users",
			IDField:      "user_email",
			Pull:         PullSpec{Kind: StrategyJSONCollection},
			RequestBody:  map[string]any{"request_data": map[string]any{}},
			ResponsePath: "reply",
		},
	}
}
