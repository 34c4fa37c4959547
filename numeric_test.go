package sensorsdr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSensorAttributesPercentRange(t *testing.T) {
	c, err := GetSensorAttributes(100, 0)
	require.NoError(t, err)

	assert.Equal(t, int16(39), c.M)
	assert.Equal(t, int8(-2), c.RExp)
	assert.Equal(t, int16(0), c.B)
	assert.Equal(t, int8(0), c.BExp)
	assert.False(t, c.Signed)

	assert.Equal(t, uint8(128), ScaleValueFromDouble(50, c))
	assert.Equal(t, uint8(231), ScaleValueFromDouble(90, c))
}

func TestGetSensorAttributesSignedRange(t *testing.T) {
	c, err := GetSensorAttributes(127, -128)
	require.NoError(t, err)

	assert.True(t, c.Signed)
	assert.Equal(t, int16(1), c.M)
	assert.Equal(t, int8(0), c.RExp)
	assert.Equal(t, int16(0), c.B)

	assert.Equal(t, uint8(0xFB), ScaleValueFromDouble(-5, c))
	assert.Equal(t, float64(-5), RawToPhysical(0xFB, c))
}

func TestGetSensorAttributesOffsetRange(t *testing.T) {
	// B larger than ten bits gets shifted into BExp
	c, err := GetSensorAttributes(2000, 1000)
	require.NoError(t, err)

	assert.Equal(t, int16(39), c.M)
	assert.Equal(t, int8(-1), c.RExp)
	assert.Equal(t, int16(100), c.B)
	assert.Equal(t, int8(1), c.BExp)
	assert.False(t, c.Signed)
}

func TestGetSensorAttributesInvalidRange(t *testing.T) {
	_, err := GetSensorAttributes(0, 0)
	assert.Error(t, err)
	_, err = GetSensorAttributes(-10, 10)
	assert.Error(t, err)
}

func TestScaleValueFromDoubleClamps(t *testing.T) {
	c, err := GetSensorAttributes(100, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), ScaleValueFromDouble(200, c))
	assert.Equal(t, uint8(0), ScaleValueFromDouble(-5, c))

	c, err = GetSensorAttributes(100, -100)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7F), ScaleValueFromDouble(5000, c))
	assert.Equal(t, uint8(0x80), ScaleValueFromDouble(-5000, c))
}

func TestRoundTripWithinOneRawUnit(t *testing.T) {
	ranges := []struct{ max, min float64 }{
		{100, 0},
		{127, -128},
		{255, 0},
		{12.7, 0},
		{500, 300},
		{100, -100},
	}
	for _, r := range ranges {
		c, err := GetSensorAttributes(r.max, r.min)
		require.NoError(t, err, "range [%v, %v]", r.min, r.max)
		// every representable physical value maps back onto the raw
		// byte it came from
		for _, raw := range []uint8{0, 1, 100, 128, 200, 255} {
			physical := RawToPhysical(raw, c)
			assert.Equal(t, raw, ScaleValueFromDouble(physical, c),
				"raw %d in range [%v, %v]", raw, r.min, r.max)
		}
		// decoding one raw step moves the physical value by one
		// conversion unit
		unit := float64(c.M) * math.Pow(10, float64(c.RExp))
		assert.InDelta(t, unit, RawToPhysical(1, c)-RawToPhysical(0, c), 1e-9)
	}
}

func TestVariantToDouble(t *testing.T) {
	for _, v := range []interface{}{
		float64(42), float32(42), int(42), int16(42), int64(42),
		uint8(42), uint32(42), uint64(42),
	} {
		d, err := VariantToDouble(v)
		require.NoError(t, err)
		assert.Equal(t, float64(42), d)
	}

	_, err := VariantToDouble("42")
	assert.Error(t, err)
	_, err = VariantToDouble(nil)
	assert.Error(t, err)
}
