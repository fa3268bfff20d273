package domain

import (
	"database/sql"
	"fmt"
)

// Sample maps the samples table.
type Sample struct {
	ID                 int64          `db:"id"`
	SetID              sql.NullString `db:"set_id"`
	Name               string         `db:"name"` // unique
	CurrentLocation    string         `db:"current_location"`
	LastLocation       sql.NullString `db:"last_location"`
	Height             float64        `db:"height"`
	Width              float64        `db:"width"`
	Weight             float64        `db:"weight"`
	Comments           string         `db:"comments"`
	ReqFluenceID       sql.NullInt64  `db:"req_fluence_id"`
	MaterialID         sql.NullInt64  `db:"material_id"`
	Category           string         `db:"category"`
	Storage            string         `db:"storage"`
	Status             string         `db:"status"`
	ExperimentID       sql.NullInt64  `db:"experiment_id"`
	BoxID              sql.NullInt64  `db:"box_id"`
	RadiationLengthOcc float64        `db:"radiation_length_occupancy"`
	NuCollLengthOcc    float64        `db:"nu_coll_length_occupancy"`
	NuIntLengthOcc     float64        `db:"nu_int_length_occupancy"`
	Audit
}

func (s *Sample) String() string { return s.Name }

func (s *Sample) ToJSON() map[string]any {
	m := map[string]any{
		"id":                         s.ID,
		"name":                       s.Name,
		"current_location":           s.CurrentLocation,
		"height":                     s.Height,
		"width":                      s.Width,
		"weight":                     s.Weight,
		"comments":                   s.Comments,
		"category":                   s.Category,
		"storage":                    s.Storage,
		"status":                     s.Status,
		"radiation_length_occupancy": s.RadiationLengthOcc,
		"nu_coll_length_occupancy":   s.NuCollLengthOcc,
		"nu_int_length_occupancy":    s.NuIntLengthOcc,
	}
	if s.SetID.Valid {
		m["set_id"] = s.SetID.String
	}
	if s.LastLocation.Valid {
		m["last_location"] = s.LastLocation.String
	}
	if s.ReqFluenceID.Valid {
		m["req_fluence_id"] = s.ReqFluenceID.Int64
	}
	if s.MaterialID.Valid {
		m["material_id"] = s.MaterialID.Int64
	}
	if s.ExperimentID.Valid {
		m["experiment_id"] = s.ExperimentID.Int64
	}
	if s.BoxID.Valid {
		m["box_id"] = s.BoxID.Int64
	}
	s.Audit.putJSON(m)
	return m
}

// Layer is one slab of a sample made of a single compound.
type Layer struct {
	ID         int64         `db:"id"`
	Name       string        `db:"name"`
	Length     float64       `db:"length"` // mm
	CompoundID sql.NullInt64 `db:"compound_id"`
	SampleID   int64         `db:"sample_id"`
}

func (l *Layer) String() string { return l.Name }

// Occupancy stores the occupancy values computed for a sample.
type Occupancy struct {
	ID                 int64   `db:"id"`
	SampleID           int64   `db:"sample_id"`
	RadiationLengthOcc float64 `db:"radiation_length_occupancy"`
	NuCollLengthOcc    float64 `db:"nu_coll_length_occupancy"`
	NuIntLengthOcc     float64 `db:"nu_int_length_occupancy"`
}

func (o *Occupancy) String() string {
	return fmt.Sprintf("%v %v %v", o.RadiationLengthOcc, o.NuCollLengthOcc, o.NuIntLengthOcc)
}
