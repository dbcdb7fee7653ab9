// Package diff computes the change set between a local snapshot and the
// remote state of one content type. The computation is pure: it touches
// neither disk nor network.
package diff

import (
	"fmt"
	"sort"

	"github.com/gocortexio/gcgit/internal/pull"
	"github.com/gocortexio/gcgit/internal/store"
)

// Result is the change set for one content type. Every remote or local
// identifier lands in exactly one of Added, Updated, Removed or Unchanged.
type Result struct {
	ContentType string
	Added       []string
	Updated     []string
	Removed     []string
	Unchanged   int
	Warnings    []string
}

// Empty reports whether the result carries no changes.
func (r *Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Updated) == 0 && len(r.Removed) == 0
}

// Summary renders the result as a one-line count triple.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d added, %d updated, %d removed, %d unchanged",
		len(r.Added), len(r.Updated), len(r.Removed), r.Unchanged)
}

// Compute classifies remote objects against the local snapshot. Remote
// objects without the identifier field are skipped with a warning. When two
// remote objects carry the same identifier the later one wins, with a
// warning naming the identifier. The returned map holds the objects to
// write for every added or updated identifier.
func Compute(
	contentType string,
	local map[string]store.Entry,
	remote []pull.Object,
	idField string,
) (*Result, map[string]pull.Object) {
	res := &Result{ContentType: contentType}

	byID := make(map[string]pull.Object, len(remote))
	order := make([]string, 0, len(remote))
	for i, obj := range remote {
		id, ok := pull.FieldString(obj, idField)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: remote object %d has no %s field, skipped", contentType, i, idField))
			continue
		}
		if _, seen := byID[id]; seen {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: duplicate identifier %q in remote listing, keeping the last occurrence",
				contentType, id))
		} else {
			order = append(order, id)
		}
		byID[id] = obj
	}

	upserts := make(map[string]pull.Object)
	for _, id := range order {
		obj := byID[id]
		entry, exists := local[id]
		if !exists {
			res.Added = append(res.Added, id)
			upserts[id] = obj
			continue
		}

		fp, err := store.Fingerprint(obj)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s: failed to fingerprint %q, skipped: %v", contentType, id, err))
			continue
		}
		if fp == entry.Fingerprint {
			res.Unchanged++
		} else {
			res.Updated = append(res.Updated, id)
			upserts[id] = obj
		}
	}

	for id := range local {
		if _, exists := byID[id]; !exists {
			res.Removed = append(res.Removed, id)
		}
	}

	sort.Strings(res.Added)
	sort.Strings(res.Updated)
	sort.Strings(res.Removed)

	return res, upserts
}

// RemovedPaths resolves the removed identifiers of a result to their stored
// file paths, relative to the instance root.
func RemovedPaths(res *Result, local map[string]store.Entry) []string {
	paths := make([]string, 0, len(res.Removed))
	for _, id := range res.Removed {
		if entry, ok := local[id]; ok {
			paths = append(paths, entry.Path)
		}
	}
	return paths
}
