package domain

import (
	"database/sql"
	"fmt"
)

// Element is a chemical element with its nuclear interaction lengths.
type Element struct {
	ID              int64   `db:"id" json:"id"`
	AtomicNumber    int     `db:"atomic_number" json:"atomic_number"`
	AtomicSymbol    string  `db:"atomic_symbol" json:"atomic_symbol"`
	AtomicMass      float64 `db:"atomic_mass" json:"atomic_mass"`
	Density         float64 `db:"density" json:"density"`
	MinIonization   float64 `db:"min_ionization" json:"min_ionization"`
	NuCollLength    float64 `db:"nu_coll_length" json:"nu_coll_length"`
	NuIntLength     float64 `db:"nu_int_length" json:"nu_int_length"`
	PiCollLength    float64 `db:"pi_coll_length" json:"pi_coll_length"`
	PiIntLength     float64 `db:"pi_int_length" json:"pi_int_length"`
	RadiationLength float64 `db:"radiation_length" json:"radiation_length"`
}

func (e *Element) String() string { return fmt.Sprintf("%s(%d)", e.AtomicSymbol, e.AtomicNumber) }

// Compound is a named mixture of elements.
type Compound struct {
	ID                   int64           `db:"id"`
	Name                 string          `db:"name"` // unique
	Density              sql.NullFloat64 `db:"density"`
	NumAssociatedSamples int             `db:"num_associated_samples"`
}

func (c *Compound) String() string { return c.Name }

func (c *Compound) ToJSON() map[string]any {
	m := map[string]any{
		"id":                     c.ID,
		"name":                   c.Name,
		"num_associated_samples": c.NumAssociatedSamples,
	}
	if c.Density.Valid {
		m["density"] = c.Density.Float64
	}
	return m
}

// CompoundElement is the percentage of one element in a compound.
type CompoundElement struct {
	ID         int64   `db:"id"`
	CompoundID int64   `db:"compound_id"`
	ElementID  int64   `db:"element_id"`
	Percentage float64 `db:"percentage"`
}
