package export

import (
	"database/sql"
	"time"

	"irrad-data/internal/domain"
)

const dateLayout = "2006-01-02 15:04"

func nullString(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nullInt(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func nullFloat(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func nullTime(v sql.NullTime) any {
	if !v.Valid {
		return nil
	}
	return v.Time.Format(dateLayout)
}

func BoxesSheet(boxes []*domain.Box) Sheet {
	sh := Sheet{
		Name: "Boxes",
		Columns: []Column{
			{"Box ID", 14}, {"Description", 30}, {"Current location", 20}, {"Last location", 20},
			{"Length (cm)", 12}, {"Height (cm)", 12}, {"Width (cm)", 12}, {"Weight (kg)", 12}, {"Updated", 18},
		},
	}
	for _, b := range boxes {
		sh.Rows = append(sh.Rows, []any{
			b.BoxID, nullString(b.Description), b.CurrentLocation, b.LastLocation,
			b.Length, b.Height, b.Width, b.Weight, b.UpdatedAt.Format(dateLayout),
		})
	}
	return sh
}

func DosimetersSheet(dosimeters []*domain.Dosimeter) Sheet {
	sh := Sheet{
		Name: "Dosimeters",
		Columns: []Column{
			{"Dosimeter ID", 16}, {"Type", 12}, {"Status", 14}, {"Foils", 8},
			{"Length (mm)", 12}, {"Height (mm)", 12}, {"Width (mm)", 12}, {"Weight (g)", 12},
			{"Current location", 20}, {"Comments", 30},
		},
	}
	for _, d := range dosimeters {
		sh.Rows = append(sh.Rows, []any{
			d.DosID, d.DosType, d.Status, nullInt(d.FoilsNumber),
			d.Length, d.Height, d.Width, d.Weight,
			nullString(d.CurrentLocation), nullString(d.Comments),
		})
	}
	return sh
}

func SamplesSheet(samples []*domain.Sample) Sheet {
	sh := Sheet{
		Name: "Samples",
		Columns: []Column{
			{"Name", 24}, {"SET ID", 14}, {"Status", 14}, {"Category", 16}, {"Storage", 18},
			{"Height (mm)", 12}, {"Width (mm)", 12}, {"Weight (kg)", 12},
			{"Radiation length occupancy", 16}, {"Nuclear collision length occupancy", 16}, {"Nuclear interaction length occupancy", 16},
			{"Current location", 20},
		},
	}
	for _, s := range samples {
		sh.Rows = append(sh.Rows, []any{
			s.Name, nullString(s.SetID), s.Status, s.Category, s.Storage,
			s.Height, s.Width, s.Weight,
			s.RadiationLengthOcc, s.NuCollLengthOcc, s.NuIntLengthOcc,
			s.CurrentLocation,
		})
	}
	return sh
}

// DosimetryRow is one completed irradiation in a dosimetry results report.
type DosimetryRow struct {
	Sample      string
	SetID       string
	DosID       string
	Irradiation *domain.Irradiation
}

func DosimetryResultsSheet(rows []DosimetryRow) Sheet {
	sh := Sheet{
		Name: "Dosimetry results",
		Columns: []Column{
			{"Sample", 24}, {"SET ID", 14}, {"Dosimeter", 16}, {"Table", 10}, {"Position", 16},
			{"Date in", 18}, {"Date out", 18}, {"SEC", 12},
			{"Estimated fluence", 16}, {"Measured fluence", 16}, {"Fluence error", 14}, {"Status", 12},
		},
	}
	for _, r := range rows {
		irr := r.Irradiation
		sh.Rows = append(sh.Rows, []any{
			r.Sample, r.SetID, r.DosID, nullString(irr.IrradTable), nullString(irr.TablePosition),
			nullTime(irr.DateIn), nullTime(irr.DateOut), nullInt(irr.Sec),
			nullFloat(irr.EstimatedFluence), nullFloat(irr.MeasuredFluence), nullFloat(irr.FluenceError), irr.Status,
		})
	}
	return sh
}

// FileName builds "<prefix>_<YYYYMMDD_HHMMSS>.xlsx".
func FileName(prefix string, now time.Time) string {
	return prefix + "_" + now.Format("20060102_150405") + ".xlsx"
}
