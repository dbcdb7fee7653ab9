package pull

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/gocortexio/gcgit/internal/modules"
)

// bodyFetchConcurrency bounds concurrent per-object body requests.
const bodyFetchConcurrency = 4

// fetchScriptCode lists metadata objects, then retrieves each object's code
// body with one request per identifier. Body fetches run concurrently, but
// objects and warnings are merged in metadata-listing order so the final
// sequence is independent of completion order. An object whose body fetch
// fails is kept with the incomplete flag set rather than dropped.
func (p *defaultPuller) fetchScriptCode(ctx context.Context, ct modules.ContentType) (*Result, error) {
	listBody := ct.RequestBody
	if listBody == nil {
		listBody = map[string]any{"request_data": map[string]any{}}
	}
	body, err := p.client.Post(ctx, ct.Pull.ListEndpoint, listBody)
	if err != nil {
		return nil, err
	}

	metas, warnings := extractItems(body, ct.Pull.ListResponsePath, ct.Name)
	res := &Result{Warnings: warnings}

	objects := make([]Object, len(metas))
	perObject := make([]string, len(metas))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bodyFetchConcurrency)

	for i, meta := range metas {
		g.Go(func() error {
			obj := cloneObject(meta)
			uid, ok := FieldString(meta, ct.Pull.UIDField)
			if !ok {
				obj[IncompleteField] = true
				perObject[i] = fmt.Sprintf("%s: object %d has no %s field, body not fetched",
					ct.Name, i, ct.Pull.UIDField)
				objects[i] = obj
				return nil
			}

			code, err := p.fetchCodeBody(gctx, ct, uid)
			if err != nil {
				obj[IncompleteField] = true
				perObject[i] = fmt.Sprintf("%s: failed to fetch code for %s: %v", ct.Name, uid, err)
			} else {
				obj["code"] = code
			}
			objects[i] = obj
			return nil
		})
	}
	// Workers only record per-object outcomes, so Wait cannot fail.
	_ = g.Wait()

	for i, obj := range objects {
		if obj != nil {
			res.Objects = append(res.Objects, obj)
		}
		if perObject[i] != "" {
			res.Warnings = append(res.Warnings, perObject[i])
		}
	}

	return res, nil
}

// fetchCodeBody retrieves one object's code. The endpoint returns
// {"reply": "<code>"} with literal "\n" escapes in the code text.
func (p *defaultPuller) fetchCodeBody(ctx context.Context, ct modules.ContentType, uid string) (string, error) {
	body, err := p.client.Post(ctx, ct.Pull.CodeEndpoint, map[string]any{
		"request_data": map[string]any{ct.Pull.UIDField: uid},
	})
	if err != nil {
		return "", err
	}

	reply := gjson.GetBytes(body, "reply")
	if !reply.Exists() || reply.Type != gjson.String {
		return "", fmt.Errorf("code response missing reply field")
	}

	// Convert escaped newlines to real ones so the stored file is readable.
	return strings.ReplaceAll(reply.String(), "\\n", "\n"), nil
}

func cloneObject(obj Object) Object {
	out := make(Object, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}
	return out
}
