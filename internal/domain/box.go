package domain

import "database/sql"

// Box maps the boxes table.
type Box struct {
	ID              int64          `db:"id"`
	BoxID           string         `db:"box_id"` // BOX-000001..BOX-000400
	Description     sql.NullString `db:"description"`
	ResponsibleID   sql.NullInt64  `db:"responsible_id"`
	CurrentLocation string         `db:"current_location"`
	LastLocation    string         `db:"last_location"`
	Length          float64        `db:"length"`
	Height          float64        `db:"height"`
	Width           float64        `db:"width"`
	Weight          float64        `db:"weight"`
	Audit
}

func (b *Box) String() string { return b.BoxID }

func (b *Box) ToJSON() map[string]any {
	m := map[string]any{
		"id":               b.ID,
		"box_id":           b.BoxID,
		"current_location": b.CurrentLocation,
		"last_location":    b.LastLocation,
		"length":           b.Length,
		"height":           b.Height,
		"width":            b.Width,
		"weight":           b.Weight,
	}
	if b.Description.Valid {
		m["description"] = b.Description.String
	}
	if b.ResponsibleID.Valid {
		m["responsible_id"] = b.ResponsibleID.Int64
	}
	b.Audit.putJSON(m)
	return m
}

// BoxItem is a sample or dosimeter stored in a box, as shown in the box items view.
type BoxItem struct {
	ItemID int64   `json:"item_id"`
	ID     string  `json:"id"`   // SET-/DOS- id
	Type   string  `json:"type"` // Sample or Dosimeter
	Name   string  `json:"name,omitempty"`
	Weight float64 `json:"weight"`
}
