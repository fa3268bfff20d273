// Package occupancy computes how much of an irradiation table's interaction lengths a
// sample consumes, from the chemistry and thickness of its layers.
package occupancy

import (
	"math"

	"irrad-data/internal/domain"
)

// Values is a triple of occupancies, in percent.
type Values struct {
	RadiationLength float64 `json:"radiation_length_occupancy"`
	NuCollLength    float64 `json:"nu_coll_length_occupancy"`
	NuIntLength     float64 `json:"nu_int_length_occupancy"`
}

// Add returns the component-wise sum.
func (v Values) Add(o Values) Values {
	return Values{
		RadiationLength: v.RadiationLength + o.RadiationLength,
		NuCollLength:    v.NuCollLength + o.NuCollLength,
		NuIntLength:     v.NuIntLength + o.NuIntLength,
	}
}

// Component is one element of a layer's compound.
type Component struct {
	Percentage float64
	Element    domain.Element
}

// Layer is a slab of Length millimetres of a compound with Density g/cm3.
type Layer struct {
	Length     float64
	Density    float64
	Components []Component
}

// Compute sums the per-layer occupancies and returns them in percent rounded to
// three decimals. Layers whose compound has no elements, or zero density, add nothing.
func Compute(layers []Layer) Values {
	var occ Values
	for _, l := range layers {
		if len(l.Components) == 0 {
			continue
		}
		var lengths Values
		for _, c := range l.Components {
			lengths.RadiationLength += c.Percentage * c.Element.RadiationLength
			lengths.NuCollLength += c.Percentage * c.Element.NuCollLength
			lengths.NuIntLength += c.Percentage * c.Element.NuIntLength
		}
		occ.RadiationLength += slabFraction(l.Length, lengths.RadiationLength/100, l.Density)
		occ.NuCollLength += slabFraction(l.Length, lengths.NuCollLength/100, l.Density)
		occ.NuIntLength += slabFraction(l.Length, lengths.NuIntLength/100, l.Density)
	}
	return Values{
		RadiationLength: Round3(occ.RadiationLength * 100),
		NuCollLength:    Round3(occ.NuCollLength * 100),
		NuIntLength:     Round3(occ.NuIntLength * 100),
	}
}

// slabFraction is length (mm) over the linear interaction length (cm).
func slabFraction(length, massLength, density float64) float64 {
	if density == 0 {
		return 0
	}
	linear := massLength / density
	if linear == 0 {
		return 0
	}
	return length / (10 * linear)
}

// Round3 rounds half away from zero to three decimals.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// FromOccupancies sums stored occupancy rows.
func FromOccupancies(rows []*domain.Occupancy) Values {
	var v Values
	for _, o := range rows {
		v = v.Add(Values{o.RadiationLengthOcc, o.NuCollLengthOcc, o.NuIntLengthOcc})
	}
	return v
}

// FromSamples sums the totals stored on samples.
func FromSamples(samples []*domain.Sample) Values {
	var v Values
	for _, s := range samples {
		v = v.Add(Values{s.RadiationLengthOcc, s.NuCollLengthOcc, s.NuIntLengthOcc})
	}
	return v
}
