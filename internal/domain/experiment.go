package domain

import (
	"database/sql"
)

// Experiment maps the experiments table.
type Experiment struct {
	ID                      int64          `db:"id"`
	Title                   string         `db:"title"` // unique
	Description             string         `db:"description"`
	CERNExperiment          string         `db:"cern_experiment"`
	Availability            sql.NullTime   `db:"availability"`
	Constraints             string         `db:"constraints"`
	NumberSamples           int            `db:"number_samples"`
	NumberRegisteredSamples int            `db:"number_registered_samples"`
	NumberUsers             int            `db:"number_users"`
	RadiationLengthOcc      float64        `db:"radiation_length_occupancy"`
	NuCollLengthOcc         float64        `db:"nu_coll_length_occupancy"`
	NuIntLengthOcc          float64        `db:"nu_int_length_occupancy"`
	Comments                sql.NullString `db:"comments"`
	Category                string         `db:"category"`
	RegulationsFlag         bool           `db:"regulations_flag"`
	IrradiationType         string         `db:"irradiation_type"`
	EmergencyPhone          string         `db:"emergency_phone"`
	Status                  string         `db:"status"`
	ResponsibleID           sql.NullInt64  `db:"responsible_id"`
	PublicExperiment        bool           `db:"public_experiment"`
	Audit
}

func (e *Experiment) String() string { return e.Title }

// Visibility renders PublicExperiment as Public/Private.
func (e *Experiment) Visibility() string {
	if e.PublicExperiment {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

func (e *Experiment) ToJSON() map[string]any {
	m := map[string]any{
		"id":                         e.ID,
		"title":                      e.Title,
		"description":                e.Description,
		"cern_experiment":            e.CERNExperiment,
		"constraints":                e.Constraints,
		"number_samples":             e.NumberSamples,
		"number_registered_samples":  e.NumberRegisteredSamples,
		"number_users":               e.NumberUsers,
		"radiation_length_occupancy": e.RadiationLengthOcc,
		"nu_coll_length_occupancy":   e.NuCollLengthOcc,
		"nu_int_length_occupancy":    e.NuIntLengthOcc,
		"category":                   e.Category,
		"regulations_flag":           e.RegulationsFlag,
		"irradiation_type":           e.IrradiationType,
		"emergency_phone":            e.EmergencyPhone,
		"status":                     e.Status,
		"visibility":                 e.Visibility(),
		"public_experiment":          e.PublicExperiment,
	}
	if e.Availability.Valid {
		m["availability"] = e.Availability.Time.Format("2006-01-02")
	}
	if e.Comments.Valid {
		m["comments"] = e.Comments.String
	}
	if e.ResponsibleID.Valid {
		m["responsible_id"] = e.ResponsibleID.Int64
	}
	e.Audit.putJSON(m)
	return m
}

// ExperimentCategory is the category detail row attached to an experiment.
// Exactly one of the three groups is meaningful depending on Kind.
type ExperimentCategory struct {
	ExperimentID int64  `db:"experiment_id"`
	Kind         string `db:"kind"` // one of Categories

	// Passive Standard
	Area5x5   bool `db:"irradiation_area_5x5"`
	Area10x10 bool `db:"irradiation_area_10x10"`
	Area20x20 bool `db:"irradiation_area_20x20"`

	// Passive Custom / Active
	CategoryType    string `db:"category_type"`
	IrradiationArea string `db:"irradiation_area"`
	ModusOperandi   string `db:"modus_operandi"`
}

// SelectedAreas counts the standard irradiation areas ticked.
func (c *ExperimentCategory) SelectedAreas() int {
	n := 0
	for _, v := range []bool{c.Area5x5, c.Area10x10, c.Area20x20} {
		if v {
			n++
		}
	}
	return n
}

func (c *ExperimentCategory) ToJSON() map[string]any {
	m := map[string]any{"category": c.Kind}
	switch c.Kind {
	case CategoryPassiveStandard:
		m["irradiation_area_5x5"] = c.Area5x5
		m["irradiation_area_10x10"] = c.Area10x10
		m["irradiation_area_20x20"] = c.Area20x20
	case CategoryPassiveCustom:
		m["passive_category_type"] = c.CategoryType
		m["passive_irradiation_area"] = c.IrradiationArea
		m["passive_modus_operandi"] = c.ModusOperandi
	case CategoryActive:
		m["active_category_type"] = c.CategoryType
		m["active_irradiation_area"] = c.IrradiationArea
		m["active_modus_operandi"] = c.ModusOperandi
	}
	return m
}

// ReqFluence is a requested fluence value of an experiment.
type ReqFluence struct {
	ID           int64  `db:"id"`
	ExperimentID int64  `db:"experiment_id"`
	ReqFluence   string `db:"req_fluence"`
}

func (r *ReqFluence) String() string { return r.ReqFluence }

// Material is a material declared by an experiment.
type Material struct {
	ID           int64  `db:"id"`
	ExperimentID int64  `db:"experiment_id"`
	Material     string `db:"material"`
}

func (m *Material) String() string { return m.Material }

// ArchiveExperimentSample records that a sample used to belong to an experiment.
type ArchiveExperimentSample struct {
	ID           int64        `db:"id"`
	Timestamp    sql.NullTime `db:"timestamp"`
	ExperimentID int64        `db:"experiment_id"`
	SampleID     int64        `db:"sample_id"`
}
