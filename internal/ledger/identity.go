package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/brianndofor/texrev/internal/critic"
)

// Identity derives a stable issue id from a finding's category, location
// and description. Whitespace and case differences in the description do
// not change the identity, so a critic re-phrasing spacing does not
// duplicate an issue.
func Identity(f critic.Finding) string {
	norm := strings.Join(strings.Fields(strings.ToLower(f.Description)), " ")
	h := sha256.Sum256([]byte(f.Category + "|" + f.Location + "|" + norm))
	return "iss-" + hex.EncodeToString(h[:6])
}
