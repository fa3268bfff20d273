package fluence

import (
	"sort"
	"strings"
)

// Exposure is one irradiation of a sample as seen by its dosimeter.
type Exposure struct {
	DosID            string
	Width            float64
	Height           float64
	DosPosition      int64
	EstimatedFluence float64
}

// SampleFluence is the fluence received by a sample behind one dosimeter footprint.
type SampleFluence struct {
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	EstimatedFluence float64 `json:"estimated_fluence"`
}

// SampleFluences groups exposures by dosimeter area and position and sums each group.
// Exposures without fluence and those measured by child dosimeters are ignored.
// Groups are returned ordered by area, then position.
func SampleFluences(exposures []Exposure) []SampleFluence {
	kept := make([]Exposure, 0, len(exposures))
	for _, e := range exposures {
		if e.EstimatedFluence == 0 || strings.Contains(e.DosID, ".") {
			continue
		}
		kept = append(kept, e)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ai, aj := kept[i].Width*kept[i].Height, kept[j].Width*kept[j].Height
		if ai != aj {
			return ai < aj
		}
		return kept[i].DosPosition < kept[j].DosPosition
	})

	var out []SampleFluence
	for i, e := range kept {
		sameGroup := i > 0 &&
			kept[i-1].Width*kept[i-1].Height == e.Width*e.Height &&
			kept[i-1].DosPosition == e.DosPosition
		if sameGroup {
			out[len(out)-1].EstimatedFluence += e.EstimatedFluence
			continue
		}
		out = append(out, SampleFluence{Width: e.Width, Height: e.Height, EstimatedFluence: e.EstimatedFluence})
	}
	return out
}
