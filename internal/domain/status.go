package domain

// Status values shared by experiments, samples, dosimeters and irradiations.
const (
	StatusRegistered    = "Registered"
	StatusUpdated       = "Updated"
	StatusValidated     = "Validated"
	StatusInPreparation = "In Preparation"
	StatusOngoing       = "Ongoing"
	StatusPaused        = "Paused"
	StatusCompleted     = "Completed"
	StatusApproved      = "Approved"
	StatusReady         = "Ready"
	StatusInBeam        = "InBeam"
	StatusOutBeam       = "OutBeam"
	StatusCoolingDown   = "CoolingDown"
	StatusInStorage     = "InStorage"
	StatusOutOfIRRAD    = "OutOfIRRAD"
	StatusWaste         = "Waste"
	StatusActive        = "Active"
	StatusInactive      = "Inactive"
)

// Statuses lists every status in display order.
var Statuses = []string{
	StatusRegistered, StatusUpdated, StatusValidated, StatusInPreparation,
	StatusOngoing, StatusPaused, StatusCompleted, StatusApproved, StatusReady,
	StatusInBeam, StatusOutBeam, StatusCoolingDown, StatusInStorage,
	StatusOutOfIRRAD, StatusWaste, StatusActive, StatusInactive,
}

// ExperimentStatuses are the statuses an experiment may take.
var ExperimentStatuses = Statuses[:7]

// IrradiationStatuses is indexed by irradiation state (see fluence.State).
var IrradiationStatuses = []string{
	StatusRegistered, StatusInBeam, StatusOutBeam, StatusCompleted, StatusInStorage,
}

var FluenceFactorStatuses = []string{StatusActive, StatusInactive}

var Nuclides = []string{"Na-22", "Na-24"}

const (
	VisibilityPublic  = "Public"
	VisibilityPrivate = "Private"
)

// Experiment categories.
const (
	CategoryPassiveStandard = "Passive Standard"
	CategoryPassiveCustom   = "Passive Custom"
	CategoryActive          = "Active"
)

var Categories = []string{CategoryPassiveStandard, CategoryPassiveCustom, CategoryActive}

var CERNExperiments = []string{"ATLAS", "CMS", "ALICE", "LHCb", "TOTEM", "Other"}

var Storages = []string{"Room temperature", "Cold storage <20"}

const DosimeterTypeAluminium = "Aluminium"

var DosimeterTypes = []string{DosimeterTypeAluminium, "Film", "Diamond", "Other"}

// Roles. Admin is not selectable in forms but grants every permission.
const (
	RoleOwner       = "Owner"
	RoleOperator    = "Operator"
	RoleCoordinator = "Coordinator"
	RoleUser        = "User"
	RoleAdmin       = "Admin"
)

var Roles = []string{RoleOwner, RoleOperator, RoleCoordinator, RoleUser}

// IrradTables are the IRRAD tables in beam order.
var IrradTables = []string{
	"IRRAD1", "IRRAD3", "IRRAD5", "IRRAD7", "IRRAD9",
	"IRRAD11", "IRRAD13", "IRRAD15", "IRRAD17", "IRRAD19",
}

// tables without Left/Center/Right holders
var singlePositionTables = map[string]bool{
	"IRRAD1": true, "IRRAD5": true, "IRRAD11": true, "IRRAD15": true,
}

// TablePositions returns the positions available on an IRRAD table.
func TablePositions(table string) []string {
	if singlePositionTables[table] {
		return []string{table}
	}
	return []string{table, table + "_Left", table + "_Center", table + "_Right"}
}

// IsValidTablePosition reports whether position belongs to any IRRAD table.
func IsValidTablePosition(position string) bool {
	for _, t := range IrradTables {
		for _, p := range TablePositions(t) {
			if p == position {
				return true
			}
		}
	}
	return false
}

// Contains is a small membership helper for the enumerations above.
func Contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
