package normalize

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CanonicalConditionKey returns the lowercase 0x-prefixed form of a condition
// id. The id must decode to exactly 32 bytes.
func CanonicalConditionKey(id string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(id))
	if s == "" {
		return "", false
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return "", false
	}
	return common.BytesToHash(b).Hex(), true
}
