package vector

import (
	"fmt"

	"github.com/google/uuid"
)

// idNamespace scopes chunk identifiers to this service's collections.
var idNamespace = uuid.MustParse("9b1f54a7-3c1d-4f0e-9a86-2d5c7e41b8f0")

// DocumentID derives a deterministic, collision-resistant identifier for a
// chunk from its source file, ordinal position and content. Distinct chunks
// map to distinct UUIDs; re-ingesting the same chunk yields the same UUID so
// the store overwrites instead of duplicating.
func DocumentID(sourceFile string, ordinal int, content string) string {
	name := fmt.Sprintf("%s#%d#%s", sourceFile, ordinal, content)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
