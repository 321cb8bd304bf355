package match

import (
	"math/rand"
	"strings"
)

// Room codes are short numeric strings that humans read out loud or type
// on a phone. The first digit is never zero so the length is stable in
// every UI. Collisions are handled by retrying against the store, not by
// hoping the space is sparse.
func newRoomCode(rng *rand.Rand, length int) string {
	var b strings.Builder
	b.Grow(length)

	b.WriteByte(byte('1' + rng.Intn(9)))
	for i := 1; i < length; i++ {
		b.WriteByte(byte('0' + rng.Intn(10)))
	}
	return b.String()
}
