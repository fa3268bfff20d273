package infoream

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewEquipment(t *testing.T) {
	now := time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)
	eq, err := NewEquipment(Item{
		ID:         "DOS-000123",
		Dimensions: DosimeterDimensions(10, 20, 30, 500),
		Location:   "IRRAD-BOX",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "PXXIDOS001-CR000123", eq.Code)
	assert.Equal(t, "DOS-000123", eq.SerialNumber)
	assert.Equal(t, "IRRAD Dosimeters", eq.CategoryDesc)
	assert.Equal(t, "07-Mar-2024", eq.CommissionDate)
	assert.Equal(t, "XI01", eq.DepartmentCode)
	assert.Equal(t, "IRRAD-BOX", eq.HierarchyLocationCode)
	assert.Equal(t, UserDefinedFields{Length: 3, Width: 2, Height: 1, Weight: 0.5, Component: "ACC_COMPONENT", Material: "ALUMINIUM"}, eq.UserDefinedFields)
}

func TestNewEquipment_InvalidID(t *testing.T) {
	_, err := NewEquipment(Item{ID: "XYZ-1"}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestSampleDimensions(t *testing.T) {
	d := SampleDimensions(100, 50, 2, []float64{5, 15})
	assert.InDelta(t, 2.0, d.Length, 1e-9)
	assert.InDelta(t, 5.0, d.Width, 1e-9)
	assert.InDelta(t, 10.0, d.Height, 1e-9)
	assert.Equal(t, 2.0, d.Weight)
}

func TestSciNotation(t *testing.T) {
	tests := []struct {
		v      float64
		digits int
		want   string
	}{
		{1.5, 2, "1.5E+00"},
		{2, 2, "2.0E+00"},
		{0.001234, 2, "1.23E-03"},
		{2.33, 4, "2.33E+00"},
		{150, 2, "1.5E+02"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sciNotation(tt.v, tt.digits))
	}
}

func TestRoundedString(t *testing.T) {
	assert.Equal(t, "50.0", roundedString(50, 2))
	assert.Equal(t, "33.33", roundedString(33.3333, 2))
	assert.Equal(t, "0.5", roundedString(0.499, 2))
}

func TestSampleComment(t *testing.T) {
	out, err := SampleComment([]CommentLayer{{
		Name:     "Layer 1",
		Length:   1.5,
		Compound: "Si",
		Density:  2.33,
		Elements: []CommentElement{{Symbol: "Si", Z: 14, Percentage: 100}},
	}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "layers:"))

	var doc yamlComment
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Layers, 1)
	l := doc.Layers[0]
	assert.Equal(t, "1.5E+00mm", l.Length)
	assert.Equal(t, "2.33E+00 g/cm2", l.Compound.Density)
	assert.Equal(t, "Si(14)", l.Compound.Elements[0].Name)
	assert.Equal(t, "100.0%", l.Compound.Elements[0].Percentage)
}
