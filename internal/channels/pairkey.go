package channels

import (
	"github.com/google/uuid"
)

// DerivePairKey joins an ordered pair of participant ids into a private
// channel key. The two orientations of a pair yield two distinct strings.
func DerivePairKey(first, second uuid.UUID) string {
	return first.String() + "/" + second.String()
}

// CanonicalPairKey derives the key with the pair in lexicographic order, so
// both initiation orders map to the same string. Newly created direct
// channels always store this orientation; the unique index on it is what
// makes concurrent first contact converge on one channel.
func CanonicalPairKey(a, b uuid.UUID) string {
	if a.String() > b.String() {
		a, b = b, a
	}
	return DerivePairKey(a, b)
}

// PairKeyOrientations returns both ordered keys for a pair. Lookups match
// either one, which also covers rows stored before keys were canonicalized.
func PairKeyOrientations(a, b uuid.UUID) []string {
	return []string{DerivePairKey(a, b), DerivePairKey(b, a)}
}
