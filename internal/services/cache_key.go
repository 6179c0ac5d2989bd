package services

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// PromptVersion changes whenever prompt wording changes, which invalidates
// every key built under the previous wording.
const PromptVersion = "v1"

// BuildAnalysisKey derives the cache key from normalized inputs and every
// parameter that affects the model output. Each part is length-prefixed so
// no two distinct input tuples serialize to the same bytes.
func BuildAnalysisKey(cvText, jobText, model, promptVersion string) string {
	h := sha256.New()
	var size [8]byte
	for _, part := range []string{promptVersion, model, cvText, jobText} {
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		h.Write(size[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
