package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Domain is the (min, max) input range of an axis.
type Domain struct {
	Min float64 `toml:"min" json:"min"`
	Max float64 `toml:"max" json:"max"`
}

func (d Domain) Validate() error {
	for _, v := range []float64{d.Min, d.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: [%v, %v]", ErrInvalidDomain, d.Min, d.Max)
		}
	}
	return nil
}

func (d Domain) Span() float64 {
	return d.Max - d.Min
}

func (d Domain) String() string {
	return fmt.Sprintf("[%g, %g]", d.Min, d.Max)
}

// Linear maps a Domain onto the pixel range [R0, R1].
// Values outside of the domain extrapolate past the range.
type Linear struct {
	Domain Domain
	R0, R1 float64
}

func NewLinear(d Domain, r0, r1 float64) Linear {
	return Linear{Domain: d, R0: r0, R1: r1}
}

func (s Linear) Apply(v float64) float64 {
	span := s.Domain.Span()
	if span == 0 {
		return (s.R0 + s.R1) / 2
	}
	return s.R0 + (v-s.Domain.Min)/span*(s.R1-s.R0)
}

// Tick is one axis graduation in domain units with its label.
type Tick struct {
	Value float64
	Label string
}

// Ticks returns about count evenly spaced, human friendly values
// inside the domain, each labeled with the precision the step needs.
func (s Linear) Ticks(count int) []Tick {
	values, step := niceTicks(s.Domain.Min, s.Domain.Max, count)
	ret := make([]Tick, len(values))
	for i, v := range values {
		ret[i] = Tick{Value: v, Label: formatTick(v, step)}
	}
	return ret
}

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

func tickSpec(start, stop float64, count float64) (i1, i2, inc float64) {
	step := (stop - start) / math.Max(0, count)
	power := math.Floor(math.Log10(step))
	errv := step / math.Pow(10, power)
	factor := 1.0
	switch {
	case errv >= e10:
		factor = 10
	case errv >= e5:
		factor = 5
	case errv >= e2:
		factor = 2
	}
	if power < 0 {
		inc = math.Pow(10, -power) / factor
		i1 = math.Round(start * inc)
		i2 = math.Round(stop * inc)
		if i1/inc < start {
			i1++
		}
		if i2/inc > stop {
			i2--
		}
		inc = -inc
	} else {
		inc = math.Pow(10, power) * factor
		i1 = math.Round(start / inc)
		i2 = math.Round(stop / inc)
		if i1*inc < start {
			i1++
		}
		if i2*inc > stop {
			i2--
		}
	}
	if i2 < i1 && 0.5 <= count && count < 2 {
		return tickSpec(start, stop, count*2)
	}
	return i1, i2, inc
}

// niceTicks returns the tick values and the step between them.
func niceTicks(start, stop float64, count int) ([]float64, float64) {
	if count <= 0 {
		return nil, 0
	}
	if start == stop {
		return []float64{start}, 0
	}
	reverse := stop < start
	if reverse {
		start, stop = stop, start
	}
	i1, i2, inc := tickSpec(start, stop, float64(count))
	if !(i2 >= i1) || math.IsInf(inc, 0) || math.IsNaN(inc) {
		return nil, 0
	}
	n := int(i2-i1) + 1
	ret := make([]float64, n)
	step := inc
	for i := 0; i < n; i++ {
		if inc < 0 {
			ret[i] = (i1 + float64(i)) / -inc
		} else {
			ret[i] = (i1 + float64(i)) * inc
		}
	}
	if inc < 0 {
		step = 1 / -inc
	}
	if reverse {
		for l, r := 0, n-1; l < r; l, r = l+1, r-1 {
			ret[l], ret[r] = ret[r], ret[l]
		}
	}
	return ret, step
}

// formatTick prints v with as many decimals as step requires and
// groups the integer part by thousands.
func formatTick(v, step float64) string {
	prec := 0
	if step > 0 {
		if p := -int(math.Floor(math.Log10(step) + 1e-9)); p > 0 {
			prec = p
		}
	}
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if s == "-0" || strings.HasPrefix(s, "-0.") && strings.Trim(s[1:], "0.") == "" {
		s = s[1:]
	}
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}
	sb := &strings.Builder{}
	head := len(intPart) % 3
	if head > 0 {
		sb.WriteString(intPart[:head])
	}
	for i := head; i < len(intPart); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(intPart[i : i+3])
	}
	return sign + sb.String() + frac
}
