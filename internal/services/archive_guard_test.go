package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckArchiveExpansion(t *testing.T) {
	limits := ArchiveLimits{MaxCompressionRatio: 100, MaxUncompressedBytes: 1024 * 1024}

	t.Run("ordinary document passes", func(t *testing.T) {
		stats, err := CheckArchiveExpansion(buildDOCX(t, "Jane Doe", "Go engineer"), limits)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Entries)
		assert.Greater(t, stats.UncompressedBytes, uint64(0))
	})

	t.Run("high ratio rejected", func(t *testing.T) {
		data := zipFiles(t, map[string][]byte{"word/document.xml": []byte(strings.Repeat("0", 512*1024))})
		stats, err := CheckArchiveExpansion(data, limits)
		requireValidationCode(t, err, CodeArchiveUnsafe)
		assert.Greater(t, stats.Ratio, 100.0)
	})

	t.Run("declared size over ceiling rejected", func(t *testing.T) {
		data := zipFiles(t, map[string][]byte{"word/document.xml": []byte(strings.Repeat("ab", 1024))})
		_, err := CheckArchiveExpansion(data, ArchiveLimits{MaxCompressionRatio: 1000, MaxUncompressedBytes: 1024})
		requireValidationCode(t, err, CodeArchiveUnsafe)
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := CheckArchiveExpansion([]byte("PK\x03\x04garbage"), limits)
		requireValidationCode(t, err, CodeCorruptDocument)
	})
}
