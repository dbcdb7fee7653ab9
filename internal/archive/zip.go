// Package archive extracts object content from ZIP artifacts returned by
// download endpoints, with guard rails against hostile archives.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Extraction limits. A platform artifact is a single small YAML file; anything
// approaching these limits is not legitimate content.
const (
	// MaxArchiveSize is the maximum accepted compressed archive size (10MB).
	MaxArchiveSize = 10 * 1024 * 1024

	// MaxUncompressedSize caps the total declared uncompressed size (50MB).
	MaxUncompressedSize = 50 * 1024 * 1024

	// MaxCompressionRatio caps the per-member compression ratio.
	MaxCompressionRatio = 50

	// MaxMemberCount caps the number of members per archive.
	MaxMemberCount = 10
)

// Member is one extracted archive member.
type Member struct {
	Name    string
	Content []byte
}

// ExtractYAML returns the first YAML member of the archive. Platform
// download endpoints wrap a single YAML document in a ZIP.
func ExtractYAML(data []byte) (*Member, error) {
	members, err := ExtractYAMLMembers(data)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("no YAML file found in ZIP archive")
	}
	return &members[0], nil
}

// ExtractYAMLMembers returns every YAML member of the archive in archive
// order, enforcing the extraction limits above.
func ExtractYAMLMembers(data []byte) ([]Member, error) {
	if int64(len(data)) > MaxArchiveSize {
		return nil, fmt.Errorf("ZIP file too large: %d bytes (max %d bytes)", len(data), MaxArchiveSize)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read ZIP archive: %w", err)
	}

	if len(reader.File) > MaxMemberCount {
		return nil, fmt.Errorf("ZIP contains too many files: %d (max %d)", len(reader.File), MaxMemberCount)
	}

	var members []Member
	var totalUncompressed uint64

	for _, f := range reader.File {
		name := f.Name
		if strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
			return nil, fmt.Errorf("suspicious file path in ZIP: %s", name)
		}

		totalUncompressed += f.UncompressedSize64
		if totalUncompressed > MaxUncompressedSize {
			return nil, fmt.Errorf("total uncompressed size exceeds limit: %d bytes (max %d bytes)",
				totalUncompressed, MaxUncompressedSize)
		}

		if f.CompressedSize64 > 0 {
			ratio := f.UncompressedSize64 / f.CompressedSize64
			if ratio > MaxCompressionRatio {
				return nil, fmt.Errorf("suspicious compression ratio in ZIP member %s: %d:1 (max %d:1)",
					name, ratio, MaxCompressionRatio)
			}
		}

		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open ZIP member %s: %w", name, err)
		}
		// The declared size is already bounds-checked; limit the actual read
		// too in case the header lies.
		content, err := io.ReadAll(io.LimitReader(rc, MaxUncompressedSize+1))
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read ZIP member %s: %w", name, err)
		}
		if int64(len(content)) > MaxUncompressedSize {
			return nil, fmt.Errorf("ZIP member %s larger than declared", name)
		}

		members = append(members, Member{Name: name, Content: content})
	}

	return members, nil
}
