package domain

import (
	"database/sql"
	"time"
)

// FluenceFactor converts accumulated SEC counts into fluence for a table and dosimeter size.
type FluenceFactor struct {
	ID              int64           `db:"id"`
	Value           sql.NullFloat64 `db:"value"`
	IrradTable      sql.NullString  `db:"irrad_table"`
	DosimeterHeight sql.NullFloat64 `db:"dosimeter_height"`
	DosimeterWidth  sql.NullFloat64 `db:"dosimeter_width"`
	IsScan          bool            `db:"is_scan"`
	Status          string          `db:"status"`
	Nuclide         string          `db:"nuclide"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// IsDefault reports whether the factor is the fallback factor (value 1, no table or size).
func (f *FluenceFactor) IsDefault() bool {
	return f.Value.Valid && f.Value.Float64 == 1 &&
		!f.IrradTable.Valid && !f.DosimeterHeight.Valid && !f.DosimeterWidth.Valid
}

func (f *FluenceFactor) ToJSON() map[string]any {
	m := map[string]any{
		"id":         f.ID,
		"is_scan":    f.IsScan,
		"status":     f.Status,
		"nuclide":    f.Nuclide,
		"created_at": f.CreatedAt,
		"updated_at": f.UpdatedAt,
	}
	if f.Value.Valid {
		m["value"] = f.Value.Float64
	}
	if f.IrradTable.Valid {
		m["irrad_table"] = f.IrradTable.String
	}
	if f.DosimeterHeight.Valid {
		m["dosimeter_height"] = f.DosimeterHeight.Float64
	}
	if f.DosimeterWidth.Valid {
		m["dosimeter_width"] = f.DosimeterWidth.Float64
	}
	return m
}

// Irradiation is one exposure of a sample (with its dosimeter) on an IRRAD table.
type Irradiation struct {
	ID                    int64           `db:"id"`
	SampleID              sql.NullInt64   `db:"sample_id"`
	DosimeterID           sql.NullInt64   `db:"dosimeter_id"`
	PreviousIrradiationID sql.NullInt64   `db:"previous_irradiation_id"`
	FluenceFactorID       sql.NullInt64   `db:"fluence_factor_id"`
	DateIn                sql.NullTime    `db:"date_in"`
	DateOut               sql.NullTime    `db:"date_out"`
	DateFirstSec          sql.NullTime    `db:"date_first_sec"`
	DateLastSec           sql.NullTime    `db:"date_last_sec"`
	TablePosition         sql.NullString  `db:"table_position"`
	IrradTable            sql.NullString  `db:"irrad_table"`
	Sec                   sql.NullInt64   `db:"sec"`
	EstimatedFluence      sql.NullFloat64 `db:"estimated_fluence"`
	MeasuredFluence       sql.NullFloat64 `db:"measured_fluence"`
	FluenceError          sql.NullFloat64 `db:"fluence_error"`
	Status                string          `db:"status"`
	DosPosition           sql.NullInt64   `db:"dos_position"`
	IsScan                bool            `db:"is_scan"`
	Comments              sql.NullString  `db:"comments"`
	Audit
}

func (i *Irradiation) ToJSON() map[string]any {
	m := map[string]any{
		"id":      i.ID,
		"status":  i.Status,
		"is_scan": i.IsScan,
	}
	putID := func(k string, v sql.NullInt64) {
		if v.Valid {
			m[k] = v.Int64
		}
	}
	putTime := func(k string, v sql.NullTime) {
		if v.Valid {
			m[k] = v.Time
		}
	}
	putFloat := func(k string, v sql.NullFloat64) {
		if v.Valid {
			m[k] = v.Float64
		}
	}
	putID("sample_id", i.SampleID)
	putID("dosimeter_id", i.DosimeterID)
	putID("previous_irradiation_id", i.PreviousIrradiationID)
	putID("fluence_factor_id", i.FluenceFactorID)
	putID("sec", i.Sec)
	putID("dos_position", i.DosPosition)
	putTime("date_in", i.DateIn)
	putTime("date_out", i.DateOut)
	putTime("date_first_sec", i.DateFirstSec)
	putTime("date_last_sec", i.DateLastSec)
	putFloat("estimated_fluence", i.EstimatedFluence)
	putFloat("measured_fluence", i.MeasuredFluence)
	putFloat("fluence_error", i.FluenceError)
	if i.TablePosition.Valid {
		m["table_position"] = i.TablePosition.String
	}
	if i.IrradTable.Valid {
		m["irrad_table"] = i.IrradTable.String
	}
	if i.Comments.Valid {
		m["comments"] = i.Comments.String
	}
	i.Audit.putJSON(m)
	return m
}

// SecReading is one beam monitor sample.
type SecReading struct {
	SecID     string    `db:"sec_id"`
	Value     float64   `db:"sec_value"`
	Timestamp time.Time `db:"timestamp"`
}

// DefaultSecID is the monitor used for fluence estimation.
const DefaultSecID = "SEC_01"
