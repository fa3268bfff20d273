package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStringRepresentations(t *testing.T) {
	assert.Equal(t, "jane.doe@cern.ch", (&User{Email: "jane.doe@cern.ch"}).String())
	assert.Equal(t, "Pixel campaign", (&Experiment{Title: "Pixel campaign"}).String())
	assert.Equal(t, "BOX-000012", (&Box{BoxID: "BOX-000012"}).String())
	assert.Equal(t, "module-a", (&Sample{Name: "module-a"}).String())
	assert.Equal(t, "DOS-004001.2", (&Dosimeter{DosID: "DOS-004001.2"}).String())
	assert.Equal(t, "Si(14)", (&Element{AtomicSymbol: "Si", AtomicNumber: 14}).String())
	assert.Equal(t, "Kapton", (&Compound{Name: "Kapton"}).String())
	assert.Equal(t, "top", (&Layer{Name: "top"}).String())
	assert.Equal(t, "1.5 0.25 0.125", (&Occupancy{RadiationLengthOcc: 1.5, NuCollLengthOcc: 0.25, NuIntLengthOcc: 0.125}).String())
}

func TestStatusSubsets(t *testing.T) {
	assert.Equal(t, []string{"Registered", "Updated", "Validated", "In Preparation", "Ongoing", "Paused", "Completed"}, ExperimentStatuses)
	assert.Equal(t, "InBeam", IrradiationStatuses[1])
	assert.Equal(t, "Completed", IrradiationStatuses[3])
}

func TestTablePositions(t *testing.T) {
	assert.Equal(t, []string{"IRRAD1"}, TablePositions("IRRAD1"))
	assert.Equal(t, []string{"IRRAD3", "IRRAD3_Left", "IRRAD3_Center", "IRRAD3_Right"}, TablePositions("IRRAD3"))
	assert.True(t, IsValidTablePosition("IRRAD19_Right"))
	assert.False(t, IsValidTablePosition("IRRAD5_Left"))
}

func TestAuditTouch(t *testing.T) {
	var a Audit
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a.Touch(7, first)
	later := first.Add(time.Hour)
	a.Touch(9, later)

	assert.Equal(t, first, a.CreatedAt)
	assert.Equal(t, int64(7), a.CreatedBy.Int64)
	assert.Equal(t, later, a.UpdatedAt)
	assert.Equal(t, int64(9), a.UpdatedBy.Int64)
}

func TestExperimentCategorySelectedAreas(t *testing.T) {
	c := ExperimentCategory{Kind: CategoryPassiveStandard, Area5x5: true, Area20x20: true}
	assert.Equal(t, 2, c.SelectedAreas())
	assert.Equal(t, true, c.ToJSON()["irradiation_area_5x5"])
}

func TestUserIsAdmin(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleOwner}).IsAdmin())
}
