package infoream

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CommentElement is one element of a layer compound.
type CommentElement struct {
	Symbol     string
	Z          int
	Percentage float64
}

// CommentLayer describes a sample layer for the asset comment.
type CommentLayer struct {
	Name     string
	Length   float64 // mm
	Compound string
	Density  float64 // g/cm3
	Elements []CommentElement
}

type yamlElement struct {
	Name       string `yaml:"name"`
	Percentage string `yaml:"percentage"`
}

type yamlCompound struct {
	Density  string        `yaml:"density"`
	Elements []yamlElement `yaml:"elements"`
	Name     string        `yaml:"name"`
}

type yamlLayer struct {
	Compound yamlCompound `yaml:"compound"`
	Length   string       `yaml:"length"`
	Name     string       `yaml:"name"`
}

type yamlComment struct {
	Layers []yamlLayer `yaml:"layers"`
}

// SampleComment renders the layer stack of a sample as a YAML document.
func SampleComment(layers []CommentLayer) (string, error) {
	doc := yamlComment{Layers: make([]yamlLayer, 0, len(layers))}
	for _, l := range layers {
		c := yamlCompound{
			Name:     l.Compound,
			Density:  sciNotation(l.Density, 4) + " g/cm2",
			Elements: make([]yamlElement, 0, len(l.Elements)),
		}
		for _, e := range l.Elements {
			c.Elements = append(c.Elements, yamlElement{
				Name:       fmt.Sprintf("%s(%d)", e.Symbol, e.Z),
				Percentage: roundedString(e.Percentage, 2) + "%",
			})
		}
		doc.Layers = append(doc.Layers, yamlLayer{
			Name:     l.Name,
			Length:   sciNotation(l.Length, 2) + "mm",
			Compound: c,
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode sample comment: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode sample comment: %w", err)
	}
	return buf.String(), nil
}

// sciNotation formats v as %.<digits>E and strips trailing mantissa zeros,
// keeping at least one digit after the point: 1.50E+00 -> 1.5E+00, 2.00E+00 -> 2.0E+00.
func sciNotation(v float64, digits int) string {
	s := strconv.FormatFloat(v, 'E', digits, 64)
	mantissa, exp, ok := strings.Cut(s, "E")
	if !ok || !strings.Contains(mantissa, ".") {
		return s
	}
	for strings.HasSuffix(mantissa, "0") && !strings.HasSuffix(mantissa, ".0") {
		mantissa = strings.TrimSuffix(mantissa, "0")
	}
	return mantissa + "E" + exp
}

// roundedString rounds v to digits decimals and prints it with at least one decimal.
func roundedString(v float64, digits int) string {
	p := math.Pow(10, float64(digits))
	s := strconv.FormatFloat(math.Round(v*p)/p, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
