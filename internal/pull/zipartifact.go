package pull

import (
	"context"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gocortexio/gcgit/internal/archive"
	"github.com/gocortexio/gcgit/internal/modules"
)

// fetchZipArtifact retrieves objects wrapped in ZIP archives. With a
// metadata endpoint configured it lists objects first and downloads one
// archive per object, merging listing metadata over the member content.
// Without one it downloads a single archive and maps each YAML member to
// one object. Downloads run sequentially; archives are the heavy case and
// the listing order already defines the result order.
func (p *defaultPuller) fetchZipArtifact(ctx context.Context, ct modules.ContentType) (*Result, error) {
	if ct.Pull.MetadataEndpoint == "" {
		return p.fetchArchiveMembers(ctx, ct)
	}

	listBody := ct.RequestBody
	if listBody == nil {
		listBody = map[string]any{"request_data": map[string]any{}}
	}
	body, err := p.client.Post(ctx, ct.Pull.MetadataEndpoint, listBody)
	if err != nil {
		return nil, err
	}

	metas, warnings := extractItems(body, ct.Pull.MetadataResponsePath, ct.Name)
	res := &Result{Warnings: warnings}

	for i, meta := range metas {
		filterValue, ok := FieldString(meta, ct.Pull.DownloadFilterField)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: object %d has no %s field, artifact not downloaded",
				ct.Name, i, ct.Pull.DownloadFilterField))
			obj := cloneObject(meta)
			obj[IncompleteField] = true
			res.Objects = append(res.Objects, obj)
			continue
		}

		obj, err := p.downloadArtifact(ctx, ct, meta, filterValue)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: failed to download artifact %q: %v", ct.Name, filterValue, err))
			obj = cloneObject(meta)
			obj[IncompleteField] = true
		}
		res.Objects = append(res.Objects, obj)
	}

	return res, nil
}

// fetchArchiveMembers downloads one archive and maps each YAML member to an
// object, inferring the identifier from the member file name when the
// content carries none.
func (p *defaultPuller) fetchArchiveMembers(ctx context.Context, ct modules.ContentType) (*Result, error) {
	zipData, err := p.request(ctx, ct, ct.Pull.DownloadEndpoint)
	if err != nil {
		return nil, err
	}

	members, err := archive.ExtractYAMLMembers(zipData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ct.Name, err)
	}

	res := &Result{}
	for _, member := range members {
		var content map[string]any
		if err := yaml.Unmarshal(member.Content, &content); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: failed to parse YAML member %s, skipped: %v", ct.Name, member.Name, err))
			continue
		}
		if content == nil {
			content = make(map[string]any)
		}
		if _, ok := FieldString(content, ct.IDField); !ok {
			stem := strings.TrimSuffix(path.Base(member.Name), path.Ext(member.Name))
			content[ct.IDField] = stem
		}
		res.Objects = append(res.Objects, content)
	}
	return res, nil
}

// downloadArtifact fetches one ZIP, extracts its YAML member and merges the
// listing metadata over the member content. The identifier comes from the
// metadata when present, else from the member file name.
func (p *defaultPuller) downloadArtifact(
	ctx context.Context, ct modules.ContentType, meta Object, filterValue string,
) (Object, error) {
	zipData, err := p.client.Post(ctx, ct.Pull.DownloadEndpoint, map[string]any{
		"request_data": map[string]any{
			"filters": []map[string]any{
				{"field": ct.Pull.DownloadFilterField, "value": filterValue},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	member, err := archive.ExtractYAML(zipData)
	if err != nil {
		return nil, err
	}

	var content map[string]any
	if err := yaml.Unmarshal(member.Content, &content); err != nil {
		return nil, fmt.Errorf("failed to parse YAML member %s: %w", member.Name, err)
	}
	if content == nil {
		content = make(map[string]any)
	}

	// Listing metadata wins over member content for overlapping fields.
	for k, v := range meta {
		content[k] = v
	}

	if _, ok := FieldString(content, ct.IDField); !ok {
		stem := strings.TrimSuffix(path.Base(member.Name), path.Ext(member.Name))
		content[ct.IDField] = stem
	}

	return content, nil
}
