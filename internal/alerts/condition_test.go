package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionSet(t *testing.T) {
	var s ConditionSet
	assert.False(t, s.Has(LowStock))

	s.Set(LowStock)
	s.Set(PurchaseOrderSent)
	s.Set(Cancelled)
	assert.True(t, s.Has(LowStock))
	assert.True(t, s.Has(Cancelled))
	assert.Equal(t, "[lowStock,purchaseOrderSent,cancelled]", s.String())

	s.Clear(LowStock)
	assert.False(t, s.Has(LowStock))

	s.Reset(Cancelled, UrgentPending)
	assert.True(t, s.Has(Cancelled))
	assert.False(t, s.Has(PurchaseOrderSent))
	assert.False(t, s.Has(UrgentPending))

	s.Reset()
	assert.Equal(t, ConditionSet(0), s)
	assert.Equal(t, "unknown", Condition(99).String())
}
