package sensorsdr

import (
	"math"

	"github.com/pkg/errors"
)

// Linear scaling limits: M and B are 10 bit two's complement fields,
// their exponents are 4 bit two's complement.
const (
	maxInt10 = 0x1FF
	minInt10 = -0x200
	maxExp4  = 7
	minExp4  = -8
)

// ScalingCoefficients hold one derivation of the analog conversion
//
//	physical = (M*raw + B*10^BExp) * 10^RExp
//
// for a sensor range. They are recomputed on every request because the
// range lives on the backend and can change underneath us.
type ScalingCoefficients struct {
	M      int16
	RExp   int8
	B      int16
	BExp   int8
	Signed bool
}

// GetSensorAttributes derives coefficients that cover [min, max] with an
// 8 bit raw value: M starts at (max-min)/255 and is shifted into the 10
// bit range by adjusting RExp until less than one eighth of its precision
// is lost to truncation, then B gets the same treatment against BExp.
// The raw encoding is signed exactly when min is negative, in which case
// B is the rounded midpoint of the range.
func GetSensorAttributes(max, min float64) (ScalingCoefficients, error) {
	var c ScalingCoefficients
	if max <= min {
		return c, errors.Errorf("invalid sensor range [%v, %v]", min, max)
	}
	mDouble := (max - min) / 0xFF

	var bDouble float64
	if min < 0 {
		c.Signed = true
		bDouble = math.Floor(0.5 + (max+min)/2)
	} else {
		bDouble = min
	}

	for mDouble > maxInt10 {
		if c.RExp >= maxExp4 {
			return c, errors.Errorf("M out of range for [%v, %v]", min, max)
		}
		c.RExp++
		mDouble /= 10
	}
	for (mDouble-math.Floor(mDouble))/mDouble > 1.0/8 {
		if c.RExp <= minExp4 {
			return c, errors.Errorf("M underflows for [%v, %v]", min, max)
		}
		c.RExp--
		mDouble *= 10
	}

	for bDouble > maxInt10 || bDouble < minInt10 {
		if c.BExp >= maxExp4 {
			return c, errors.Errorf("B out of range for [%v, %v]", min, max)
		}
		c.BExp++
		bDouble /= 10
	}
	// the NaN from a zero B fails this comparison and ends the loop
	for (math.Abs(bDouble)-math.Floor(math.Abs(bDouble)))/math.Abs(bDouble) > 1.0/8 {
		if c.BExp <= minExp4 {
			return c, errors.Errorf("B underflows for [%v, %v]", min, max)
		}
		c.BExp--
		bDouble *= 10
	}

	c.M = int16(mDouble)
	c.B = int16(bDouble)
	return c, nil
}

// ScaleValueFromDouble applies the inverse transform to a physical value
// and clamps the result into the raw byte range selected by Signed.
func ScaleValueFromDouble(value float64, c ScalingCoefficients) uint8 {
	scaled := (value - float64(c.B)*math.Pow(10, float64(c.BExp))*math.Pow(10, float64(c.RExp))) /
		(float64(c.M) * math.Pow(10, float64(c.RExp)))
	scaled = math.Round(scaled)
	if c.Signed {
		if scaled > math.MaxInt8 {
			scaled = math.MaxInt8
		} else if scaled < math.MinInt8 {
			scaled = math.MinInt8
		}
		return uint8(int8(scaled))
	}
	if scaled > math.MaxUint8 {
		scaled = math.MaxUint8
	} else if scaled < 0 {
		scaled = 0
	}
	return uint8(scaled)
}

// RawToPhysical is the forward transform, interpreting raw per Signed.
func RawToPhysical(raw uint8, c ScalingCoefficients) float64 {
	x := float64(raw)
	if c.Signed {
		x = float64(int8(raw))
	}
	return (float64(c.M)*x + float64(c.B)*math.Pow(10, float64(c.BExp))) *
		math.Pow(10, float64(c.RExp))
}

// VariantToDouble normalizes the numeric representations a backend
// property value may arrive as. Anything non numeric is an error.
func VariantToDouble(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, errors.Errorf("non numeric variant %T", v)
}
