// Package sync orchestrates a module pull end to end: lock the instance,
// fetch every content type, diff against the stored state, apply the
// changes, and record one commit. Content types fail independently; only
// lock and commit failures abort the invocation.
package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gocortexio/gcgit/internal/api"
	"github.com/gocortexio/gcgit/internal/config"
	"github.com/gocortexio/gcgit/internal/diff"
	"github.com/gocortexio/gcgit/internal/gitrepo"
	"github.com/gocortexio/gcgit/internal/modules"
	"github.com/gocortexio/gcgit/internal/pull"
	"github.com/gocortexio/gcgit/internal/store"
	"github.com/gocortexio/gcgit/pkg/logger"
)

// Manager drives sync operations for one instance.
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks -source=manager.go Manager
type Manager interface {
	// Pull reconciles the module's remote state into the instance tree and
	// records one commit covering the run.
	Pull(ctx context.Context, moduleID string) (*PullReport, error)

	// Diff reports what Pull would change, without locking or writing.
	Diff(ctx context.Context, moduleID string) (*DiffReport, error)

	// Test probes every content type endpoint of the module.
	Test(ctx context.Context, moduleID string) (*TestReport, error)
}

// ClientFactory builds the API client for one module. Tests substitute a
// factory pointing at a local server.
type ClientFactory func(cfg config.ModuleConfig, basePath string) api.Client

// defaultSyncManager implements Manager.
type defaultSyncManager struct {
	instanceDir string
	cfg         *config.InstanceConfig
	registry    *modules.Registry
	newClient   ClientFactory
}

// Option configures the manager.
type Option func(*defaultSyncManager)

// WithClientFactory overrides how module API clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(m *defaultSyncManager) {
		m.newClient = f
	}
}

// NewDefaultManager creates a Manager for the given instance.
func NewDefaultManager(instanceDir string, cfg *config.InstanceConfig, registry *modules.Registry, opts ...Option) Manager {
	m := &defaultSyncManager{
		instanceDir: instanceDir,
		cfg:         cfg,
		registry:    registry,
		newClient: func(mc config.ModuleConfig, basePath string) api.Client {
			return api.NewClient(mc, basePath)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// resolve looks up the module and its resolved credentials.
func (m *defaultSyncManager) resolve(moduleID string) (modules.Module, config.ModuleConfig, error) {
	mod, err := m.registry.Get(moduleID)
	if err != nil {
		return nil, config.ModuleConfig{}, err
	}
	mc, err := m.cfg.Module(moduleID)
	if err != nil {
		return nil, config.ModuleConfig{}, err
	}
	if !mc.Enabled {
		return nil, config.ModuleConfig{}, fmt.Errorf("module %q is disabled in %s", moduleID, config.ConfigFileName)
	}
	return mod, mc, nil
}

// Pull reconciles the module's remote state into the instance tree.
func (m *defaultSyncManager) Pull(ctx context.Context, moduleID string) (*PullReport, error) {
	mod, mc, err := m.resolve(moduleID)
	if err != nil {
		return nil, err
	}

	lock, err := store.AcquireLock(m.instanceDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warnf("Failed to release instance lock: %v", err)
		}
	}()

	repo, err := gitrepo.Open(m.instanceDir)
	if err != nil {
		return nil, err
	}

	fs := store.NewFileStore(m.instanceDir)
	puller := pull.New(m.newClient(mc, mod.BaseAPIPath()))

	report := &PullReport{Module: mod.ID()}
	var allPaths []string

	for _, ct := range mod.ContentTypes() {
		ctReport := m.pullContentType(ctx, puller, fs, mod.ID(), ct)
		report.ContentTypes = append(report.ContentTypes, ctReport)
		allPaths = append(allPaths, ctReport.ChangedPaths...)
	}

	if len(allPaths) == 0 {
		logger.Infof("%s: already up to date", mod.ID())
		report.UpToDate = true
		return report, nil
	}

	logger.Infof("Phase %s: recording %d changed path(s)", PhaseCommitting, len(allPaths))
	if err := repo.Stage(allPaths); err != nil {
		return report, err
	}
	hash, err := repo.Commit(commitMessage(report))
	if err != nil {
		return report, err
	}
	report.CommitHash = hash

	logger.Infof("Phase %s: committed %s", PhaseDone, hash)
	return report, nil
}

// pullContentType runs fetch, diff and apply for one content type. Every
// failure is captured in the report so sibling content types keep going.
func (m *defaultSyncManager) pullContentType(
	ctx context.Context,
	puller pull.Puller,
	fs *store.FileStore,
	moduleID string,
	ct modules.ContentType,
) ContentTypeReport {
	report := ContentTypeReport{ContentType: ct.Name}

	logger.Infof("Phase %s: %s/%s", PhaseFetching, moduleID, ct.Name)
	res, err := puller.Fetch(ctx, ct)
	if err != nil {
		report.Err = fmt.Errorf("failed to fetch %s: %w", ct.Name, err)
		logger.Warnf("%s/%s: %v, continuing with remaining content types", moduleID, ct.Name, report.Err)
		return report
	}
	report.Partial = res.Partial
	report.Warnings = append(report.Warnings, res.Warnings...)

	logger.Infof("Phase %s: %s/%s (%d remote objects)", PhaseDiffing, moduleID, ct.Name, len(res.Objects))
	local, problems := fs.Snapshot(moduleID, ct.Name, ct.IDField)
	for _, p := range problems {
		report.Warnings = append(report.Warnings, p.Error())
	}

	remote, incompleteSeen, warnings := screenIncomplete(res.Objects, local, ct)
	report.Warnings = append(report.Warnings, warnings...)

	dr, upserts := diff.Compute(ct.Name, local, remote, ct.IDField)
	report.Warnings = append(report.Warnings, dr.Warnings...)

	// Objects seen remotely but withheld from writing are still present, so
	// they are never removals.
	if len(incompleteSeen) > 0 {
		kept := dr.Removed[:0]
		for _, id := range dr.Removed {
			if !incompleteSeen[id] {
				kept = append(kept, id)
			}
		}
		dr.Removed = kept
	}
	if report.Partial && len(dr.Removed) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%s: fetch was partial, skipping %d removal(s)", ct.Name, len(dr.Removed)))
		dr.Removed = nil
	}
	report.Diff = dr

	names, err := resolveRemoteNames(remote, ct.IDField)
	if err != nil {
		report.Err = err
		logger.Warnf("%s/%s: %v, content type skipped", moduleID, ct.Name, err)
		return report
	}

	logger.Infof("Phase %s: %s/%s (%s)", PhaseApplying, moduleID, ct.Name, dr.Summary())
	changed, err := fs.Apply(moduleID, ct.Name, upserts, names, diff.RemovedPaths(dr, local))
	report.ChangedPaths = changed
	if err != nil {
		report.Err = fmt.Errorf("failed to apply %s: %w", ct.Name, err)
	}
	return report
}

// screenIncomplete withholds incomplete remote objects from overwriting a
// complete stored file. Incomplete objects with no stored counterpart are
// still written, flagged, so the operator can see them.
func screenIncomplete(objects []pull.Object, local map[string]store.Entry, ct modules.ContentType) ([]pull.Object, map[string]bool, []string) {
	kept := make([]pull.Object, 0, len(objects))
	seen := make(map[string]bool)
	var warnings []string

	for _, obj := range objects {
		if flagged, _ := obj[pull.IncompleteField].(bool); flagged {
			if id, ok := pull.FieldString(obj, ct.IDField); ok {
				if _, exists := local[id]; exists {
					seen[id] = true
					warnings = append(warnings, fmt.Sprintf(
						"%s: %q fetched incomplete, keeping the stored file", ct.Name, id))
					continue
				}
			}
		}
		kept = append(kept, obj)
	}
	return kept, seen, warnings
}

// resolveRemoteNames resolves file names for every identified remote
// object, not just the ones being written, so a new identifier colliding
// with an unchanged one is caught before it overwrites anything.
func resolveRemoteNames(remote []pull.Object, idField string) (map[string]string, error) {
	ids := make([]string, 0, len(remote))
	for _, obj := range remote {
		if id, ok := pull.FieldString(obj, idField); ok {
			ids = append(ids, id)
		}
	}
	return store.ResolveNames(ids)
}

// commitMessage renders the pull summary: a one-line count total, then one
// body line per content type that changed or failed.
func commitMessage(report *PullReport) string {
	added, updated, removed := 0, 0, 0
	var body []string
	for _, ct := range report.ContentTypes {
		if ct.Err != nil {
			body = append(body, fmt.Sprintf("- %s: failed (%v)", ct.ContentType, ct.Err))
			continue
		}
		if ct.Diff == nil || ct.Diff.Empty() {
			continue
		}
		added += len(ct.Diff.Added)
		updated += len(ct.Diff.Updated)
		removed += len(ct.Diff.Removed)
		body = append(body, fmt.Sprintf("- %s: %s", ct.ContentType, ct.Diff.Summary()))
	}
	sort.Strings(body)

	msg := fmt.Sprintf("Pull %s: %d added, %d updated, %d removed", report.Module, added, updated, removed)
	if len(body) > 0 {
		msg += "\n\n" + strings.Join(body, "\n")
	}
	return msg
}

// Diff reports what Pull would change without locking or writing.
func (m *defaultSyncManager) Diff(ctx context.Context, moduleID string) (*DiffReport, error) {
	mod, mc, err := m.resolve(moduleID)
	if err != nil {
		return nil, err
	}

	fs := store.NewFileStore(m.instanceDir)
	puller := pull.New(m.newClient(mc, mod.BaseAPIPath()))

	report := &DiffReport{Module: mod.ID()}
	for _, ct := range mod.ContentTypes() {
		ctReport := ContentTypeReport{ContentType: ct.Name}

		res, err := puller.Fetch(ctx, ct)
		if err != nil {
			ctReport.Err = fmt.Errorf("failed to fetch %s: %w", ct.Name, err)
			report.ContentTypes = append(report.ContentTypes, ctReport)
			continue
		}
		ctReport.Partial = res.Partial
		ctReport.Warnings = append(ctReport.Warnings, res.Warnings...)

		local, problems := fs.Snapshot(mod.ID(), ct.Name, ct.IDField)
		for _, p := range problems {
			ctReport.Warnings = append(ctReport.Warnings, p.Error())
		}

		remote, incompleteSeen, warnings := screenIncomplete(res.Objects, local, ct)
		ctReport.Warnings = append(ctReport.Warnings, warnings...)

		dr, _ := diff.Compute(ct.Name, local, remote, ct.IDField)
		ctReport.Warnings = append(ctReport.Warnings, dr.Warnings...)
		if len(incompleteSeen) > 0 {
			kept := dr.Removed[:0]
			for _, id := range dr.Removed {
				if !incompleteSeen[id] {
					kept = append(kept, id)
				}
			}
			dr.Removed = kept
		}
		if ctReport.Partial {
			dr.Removed = nil
		}
		ctReport.Diff = dr
		report.ContentTypes = append(report.ContentTypes, ctReport)
	}
	return report, nil
}

// Test checks the module's reachability and credentials, then probes every
// content type endpoint.
func (m *defaultSyncManager) Test(ctx context.Context, moduleID string) (*TestReport, error) {
	mod, mc, err := m.resolve(moduleID)
	if err != nil {
		return nil, err
	}

	client := m.newClient(mc, mod.BaseAPIPath())
	if err := client.TestConnectivity(ctx); err != nil {
		return nil, err
	}

	puller := pull.New(client)
	report := &TestReport{Module: mod.ID()}
	for _, ct := range mod.ContentTypes() {
		count, err := puller.Probe(ctx, ct)
		report.Endpoints = append(report.Endpoints, EndpointReport{
			ContentType: ct.Name,
			Count:       count,
			Err:         err,
		})
	}
	return report, nil
}
