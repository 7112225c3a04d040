package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantSet_Register_IsIdempotentByName(t *testing.T) {
	vs := NewVariantSet()
	a := vs.Register("V0", 2)
	b := vs.Register("V0", 99)

	assert.Same(t, a, b, "registering the same name twice must return the original variant")
	assert.Equal(t, 2.0, a.Weight, "the second call's weight must not overwrite the first registration")
}

func TestVariantSet_ByName_UnknownReturnsFalse(t *testing.T) {
	vs := NewVariantSet()
	_, ok := vs.ByName("missing")
	assert.False(t, ok)
}

func TestVariantSet_All_ReturnsEveryRegisteredVariant(t *testing.T) {
	vs := NewVariantSet()
	vs.Register("V0", 1)
	vs.Register("V1", 1)
	assert.Len(t, vs.All(), 2)
}
