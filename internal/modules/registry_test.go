package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryBuiltins(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.Equal(t, []string{"xsiam", "appsec"}, r.IDs())

	mods := r.All()
	require.Len(t, mods, 2)
	assert.Equal(t, "xsiam", mods[0].ID())
	assert.Equal(t, "appsec", mods[1].ID())
}

func TestRegistryGetUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Get("nope")

	var unknown *ErrUnknownModule
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.ID)
}

func TestRegistryRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	r := &Registry{}
	require.NoError(t, r.Register(&XsiamModule{}))
	assert.Error(t, r.Register(&XsiamModule{}))
}

func TestContentTypeDescriptorsAreComplete(t *testing.T) {
	t.Parallel()

	for _, mod := range NewRegistry().All() {
		seen := map[string]bool{}
		for _, ct := range mod.ContentTypes() {
			assert.NotEmpty(t, ct.Name, "%s content type missing name", mod.ID())
			assert.NotEmpty(t, ct.IDField, "%s/%s missing id field", mod.ID(), ct.Name)
			assert.False(t, seen[ct.Name], "%s/%s declared twice", mod.ID(), ct.Name)
			seen[ct.Name] = true

			switch ct.Pull.Kind {
			case StrategyJSONCollection:
				assert.NotEmpty(t, ct.Endpoint, "%s/%s missing endpoint", mod.ID(), ct.Name)
			case StrategyPaginated:
				assert.NotEmpty(t, ct.Pull.CursorParam, "%s/%s missing cursor param", mod.ID(), ct.Name)
				assert.NotEmpty(t, ct.Pull.CursorField, "%s/%s missing cursor field", mod.ID(), ct.Name)
			case StrategyOffsetPaginated:
				assert.NotEmpty(t, ct.Pull.PageParam, "%s/%s missing page param", mod.ID(), ct.Name)
				assert.Positive(t, ct.Pull.PageSize, "%s/%s missing page size", mod.ID(), ct.Name)
			case StrategyScriptCode:
				assert.NotEmpty(t, ct.Pull.ListEndpoint, "%s/%s missing list endpoint", mod.ID(), ct.Name)
				assert.NotEmpty(t, ct.Pull.CodeEndpoint, "%s/%s missing code endpoint", mod.ID(), ct.Name)
				assert.NotEmpty(t, ct.Pull.UIDField, "%s/%s missing uid field", mod.ID(), ct.Name)
			case StrategyZipArtifact:
				assert.NotEmpty(t, ct.Pull.MetadataEndpoint, "%s/%s missing metadata endpoint", mod.ID(), ct.Name)
				assert.NotEmpty(t, ct.Pull.DownloadEndpoint, "%s/%s missing download endpoint", mod.ID(), ct.Name)
			default:
				t.Errorf("%s/%s has unknown strategy %q", mod.ID(), ct.Name, ct.Pull.Kind)
			}
		}
	}
}

func TestXsiamScriptsUseTwoStepRetrieval(t *testing.T) {
	t.Parallel()

	mod := &XsiamModule{}
	for _, ct := range mod.ContentTypes() {
		if ct.Name != "scripts" {
			continue
		}
		assert.Equal(t, StrategyScriptCode, ct.Pull.Kind)
		assert.Equal(t, "scripts/get_script_code", ct.Pull.CodeEndpoint)
		assert.Equal(t, "script_uid", ct.Pull.UIDField)
		return
	}
	t.Fatal("xsiam module has no scripts content type")
}
