package pull

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/gocortexio/gcgit/internal/modules"
)

// fetchPaginated walks a cursor-based listing. Each response carries the
// cursor for the next page; the walk ends when a page comes back empty or
// the cursor field is absent or empty.
func (p *defaultPuller) fetchPaginated(ctx context.Context, ct modules.ContentType) (*Result, error) {
	res := &Result{}
	cursor := ""

	for page := 1; ; page++ {
		query := url.Values{}
		if ct.Pull.LimitParam != "" && ct.Pull.PageSize > 0 {
			query.Set(ct.Pull.LimitParam, strconv.Itoa(ct.Pull.PageSize))
		}
		if cursor != "" {
			query.Set(ct.Pull.CursorParam, cursor)
		}

		body, err := p.client.Get(ctx, ct.Endpoint, query)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			// Keep what earlier pages returned; one flaky page must not
			// discard otherwise-valid data.
			res.Partial = true
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: pagination aborted after %d page(s): %v", ct.Name, page-1, err))
			return res, nil
		}

		objects, warnings := extractItems(body, ct.ResponsePath, ct.Name)
		res.Objects = append(res.Objects, objects...)
		res.Warnings = append(res.Warnings, warnings...)

		if len(objects) == 0 {
			break
		}
		cursor = gjson.GetBytes(body, ct.Pull.CursorField).String()
		if cursor == "" {
			break
		}
	}

	return res, nil
}

// fetchOffsetPaginated walks a page-numbered listing, incrementing the page
// number until a page comes back shorter than the page size.
func (p *defaultPuller) fetchOffsetPaginated(ctx context.Context, ct modules.ContentType) (*Result, error) {
	res := &Result{}

	for page := 1; ; page++ {
		query := url.Values{}
		query.Set(ct.Pull.PageParam, strconv.Itoa(page))
		query.Set(ct.Pull.PageSizeParam, strconv.Itoa(ct.Pull.PageSize))

		body, err := p.client.Get(ctx, ct.Endpoint, query)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			res.Partial = true
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: pagination aborted after %d page(s): %v", ct.Name, page-1, err))
			return res, nil
		}

		objects, warnings := extractItems(body, ct.ResponsePath, ct.Name)
		res.Objects = append(res.Objects, objects...)
		res.Warnings = append(res.Warnings, warnings...)

		// An empty page always ends the walk, even for a descriptor that
		// leaves the page size unset.
		if len(objects) == 0 || len(objects) < ct.Pull.PageSize {
			break
		}
	}

	return res, nil
}
