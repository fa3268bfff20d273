package domain

import "database/sql"

// Dosimeter maps the dosimeters table. Child dosimeters reference their parent.
type Dosimeter struct {
	ID                int64          `db:"id"`
	DosID             string         `db:"dos_id"` // unique
	ResponsibleID     sql.NullInt64  `db:"responsible_id"`
	CurrentLocation   sql.NullString `db:"current_location"`
	LastLocation      sql.NullString `db:"last_location"`
	Length            float64        `db:"length"`
	Height            float64        `db:"height"`
	Width             float64        `db:"width"`
	Weight            float64        `db:"weight"`
	FoilsNumber       sql.NullInt64  `db:"foils_number"`
	Status            string         `db:"status"`
	DosType           string         `db:"dos_type"`
	Comments          sql.NullString `db:"comments"`
	BoxID             sql.NullInt64  `db:"box_id"`
	ParentDosimeterID sql.NullInt64  `db:"parent_dosimeter_id"`
	Audit
}

func (d *Dosimeter) String() string { return d.DosID }

func (d *Dosimeter) ToJSON() map[string]any {
	m := map[string]any{
		"id":       d.ID,
		"dos_id":   d.DosID,
		"length":   d.Length,
		"height":   d.Height,
		"width":    d.Width,
		"weight":   d.Weight,
		"status":   d.Status,
		"dos_type": d.DosType,
	}
	if d.ResponsibleID.Valid {
		m["responsible_id"] = d.ResponsibleID.Int64
	}
	if d.CurrentLocation.Valid {
		m["current_location"] = d.CurrentLocation.String
	}
	if d.LastLocation.Valid {
		m["last_location"] = d.LastLocation.String
	}
	if d.FoilsNumber.Valid {
		m["foils_number"] = d.FoilsNumber.Int64
	}
	if d.Comments.Valid {
		m["comments"] = d.Comments.String
	}
	if d.BoxID.Valid {
		m["box_id"] = d.BoxID.Int64
	}
	if d.ParentDosimeterID.Valid {
		m["parent_dosimeter_id"] = d.ParentDosimeterID.Int64
	}
	d.Audit.putJSON(m)
	return m
}
