package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(n int64) *int64 { return &n }

func stockedOffer(quantity, reserved int64) *Offer {
	o := NewOffer(1, "Honey", 300)
	o.Measure = MeasureKG
	o.Quantity = qty(quantity)
	o.QuantityReserved = reserved
	return o
}

func TestOfferNormalizeDropsQuantityWithoutMeasure(t *testing.T) {
	o := NewOffer(1, "Consulting", 1000)
	o.Quantity = qty(5)
	o.QuantityReserved = 2

	o.Normalize()

	assert.Nil(t, o.Quantity)
	assert.Zero(t, o.QuantityReserved)
	assert.False(t, o.Tracked())
	assert.Nil(t, o.Available())
}

func TestOfferOrderable(t *testing.T) {
	cases := []struct {
		status  OfferStatus
		enabled bool
		want    bool
	}{
		{OfferAvailable, true, true},
		{OfferOnDemand, true, true},
		{OfferReserved, true, false},
		{OfferNotAvailable, true, false},
		{OfferAvailable, false, false},
	}
	for _, tc := range cases {
		o := NewOffer(1, "x", 1)
		o.Status = tc.status
		o.Enabled = tc.enabled
		assert.Equal(t, tc.want, o.Orderable(), "status=%s enabled=%v", tc.status, tc.enabled)
	}
}

func TestOfferTracked(t *testing.T) {
	assert.False(t, NewOffer(1, "x", 1).Tracked())
	assert.True(t, stockedOffer(5, 0).Tracked())
	assert.True(t, stockedOffer(0, 0).Tracked())

	measured := NewOffer(1, "x", 1)
	measured.Measure = MeasurePiece
	assert.False(t, measured.Tracked())
}

func TestSoldOutOfferRejectsStockChanges(t *testing.T) {
	o := stockedOffer(0, 0)
	o.Status = OfferNotAvailable

	assert.ErrorIs(t, o.Reserve(1), ErrInsufficientQuantity)
	assert.ErrorIs(t, o.Release(1), ErrReservationUnderflow)
	assert.ErrorIs(t, o.Consume(1), ErrReservationUnderflow)
	assert.Zero(t, *o.Available())
}

func TestOfferReserve(t *testing.T) {
	o := stockedOffer(5, 0)

	require.NoError(t, o.Reserve(3))
	assert.Equal(t, int64(3), o.QuantityReserved)
	assert.Equal(t, int64(2), *o.Available())
	assert.Equal(t, OfferAvailable, o.Status)

	err := o.Reserve(3)
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.Equal(t, int64(3), o.QuantityReserved)

	require.NoError(t, o.Reserve(2))
	assert.Equal(t, OfferReserved, o.Status)
	assert.Zero(t, *o.Available())
}

func TestOfferReserveUntrackedIsNoop(t *testing.T) {
	o := NewOffer(1, "x", 10)
	require.NoError(t, o.Reserve(100))
	assert.Zero(t, o.QuantityReserved)
}

func TestOfferRelease(t *testing.T) {
	o := stockedOffer(2, 2)
	o.Status = OfferReserved

	require.NoError(t, o.Release(1))
	assert.Equal(t, int64(1), o.QuantityReserved)
	assert.Equal(t, OfferAvailable, o.Status)

	assert.ErrorIs(t, o.Release(2), ErrReservationUnderflow)
	assert.Equal(t, int64(1), o.QuantityReserved)
}

func TestOfferConsume(t *testing.T) {
	o := stockedOffer(4, 3)

	require.NoError(t, o.Consume(1))
	assert.Equal(t, int64(3), *o.Quantity)
	assert.Equal(t, int64(2), o.QuantityReserved)
	assert.Equal(t, OfferAvailable, o.Status)

	assert.ErrorIs(t, o.Consume(5), ErrReservationUnderflow)
}

func TestOfferConsumeLastUnitsMarksNotAvailable(t *testing.T) {
	o := stockedOffer(2, 2)
	o.Status = OfferReserved

	require.NoError(t, o.Consume(2))
	assert.Zero(t, *o.Quantity)
	assert.Zero(t, o.QuantityReserved)
	assert.Equal(t, OfferNotAvailable, o.Status)
}

func TestOfferValidate(t *testing.T) {
	o := stockedOffer(1, 0)
	require.NoError(t, o.Validate())

	o.QuantityReserved = 2
	assert.ErrorIs(t, o.Validate(), ErrInsufficientQuantity)

	o = stockedOffer(1, 0)
	o.Title = ""
	assert.Error(t, o.Validate())

	o = stockedOffer(1, 0)
	o.Measure = "bushel"
	assert.Error(t, o.Validate())
}
