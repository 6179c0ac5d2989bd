package services

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// ArchiveLimits bound how far a ZIP-based document may expand.
type ArchiveLimits struct {
	MaxCompressionRatio  float64
	MaxUncompressedBytes int64
}

// ArchiveStats are the totals declared by an archive's central directory.
type ArchiveStats struct {
	Entries           int
	CompressedBytes   uint64
	UncompressedBytes uint64
	Ratio             float64
}

// CheckArchiveExpansion reads only the central directory of data and rejects
// archives whose declared expansion exceeds limits. Nothing is inflated here.
func CheckArchiveExpansion(data []byte, limits ArchiveLimits) (*ArchiveStats, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewValidationError(CodeCorruptDocument, "Invalid ZIP file structure.", nil)
	}

	stats := &ArchiveStats{Entries: len(zr.File)}
	for _, f := range zr.File {
		stats.CompressedBytes += f.CompressedSize64
		stats.UncompressedBytes += f.UncompressedSize64
	}

	if stats.CompressedBytes == 0 {
		return stats, NewValidationError(CodeCorruptDocument, "Invalid ZIP file: compressed size is zero.", nil)
	}

	stats.Ratio = float64(stats.UncompressedBytes) / float64(stats.CompressedBytes)

	if stats.UncompressedBytes > uint64(limits.MaxUncompressedBytes) {
		return stats, NewValidationError(CodeArchiveUnsafe,
			fmt.Sprintf("Uncompressed size (%.1fMB) exceeds limit (%.1fMB).",
				float64(stats.UncompressedBytes)/(1024*1024), float64(limits.MaxUncompressedBytes)/(1024*1024)),
			map[string]any{"uncompressed_bytes": stats.UncompressedBytes, "max_bytes": limits.MaxUncompressedBytes})
	}

	if stats.Ratio > limits.MaxCompressionRatio {
		return stats, NewValidationError(CodeArchiveUnsafe,
			fmt.Sprintf("Suspicious compression ratio: %.1fx. Maximum allowed: %.0fx.", stats.Ratio, limits.MaxCompressionRatio),
			map[string]any{"ratio": stats.Ratio, "max_ratio": limits.MaxCompressionRatio})
	}

	return stats, nil
}
