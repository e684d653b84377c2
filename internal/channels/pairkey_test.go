package channels

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDerivePairKeyIsOrderSensitive(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	assert.Equal(t, a.String()+"/"+b.String(), DerivePairKey(a, b))
	assert.NotEqual(t, DerivePairKey(a, b), DerivePairKey(b, a))
}

func TestCanonicalPairKeyIsSymmetric(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	assert.Equal(t, CanonicalPairKey(a, b), CanonicalPairKey(b, a))
}

func TestCanonicalPairKeyMatchesOneOrientation(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	assert.Contains(t, PairKeyOrientations(a, b), CanonicalPairKey(a, b))
}

func TestPairKeyOrientationsCoverBothOrders(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	keys := PairKeyOrientations(a, b)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, DerivePairKey(a, b))
	assert.Contains(t, keys, DerivePairKey(b, a))
}
