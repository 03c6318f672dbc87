package badger

import (
	"fmt"

	"github.com/poiesic/diseasekb/core"
)

// Key prefixes for different data types
const (
	embeddingPrefix      = "embrec"
	embeddingModelPrefix = "embmod"
	manifestPrefix       = "idxman"
)

// makeEmbeddingKey generates a key for a cached embedding by ID.
func makeEmbeddingKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", embeddingPrefix, id))
}

// makePartialEmbeddingModelKey generates the prefix shared by all index keys of a model.
// Format: prefix:model NUL
func makePartialEmbeddingModelKey(model string) []byte {
	return []byte(fmt.Sprintf("%s:%s\x00", embeddingModelPrefix, model))
}

// makeEmbeddingModelKey generates a composite key for the per-model index.
// Format: prefix:model NUL id
func makeEmbeddingModelKey(model string, id core.ID) []byte {
	return append(makePartialEmbeddingModelKey(model), fmt.Sprintf("%d", id)...)
}

// makeManifestKey generates a key for the index manifest of a model.
func makeManifestKey(model string) []byte {
	return []byte(fmt.Sprintf("%s:%s", manifestPrefix, model))
}
