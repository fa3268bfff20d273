package service

import (
	"database/sql"
	"errors"
	"fmt"

	"irrad-data/internal/listing"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError is a rejected request; Message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// AlertMessage returns the user facing message of a validation or selection error.
func AlertMessage(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	var se *listing.SelectionError
	if errors.As(err, &se) {
		return se.Message, true
	}
	var re *listing.RangeError
	if errors.As(err, &re) {
		return re.Error(), true
	}
	return "", false
}

// notFound converts sql.ErrNoRows into ErrNotFound and wraps anything else.
func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %v: %w", what, id, err)
}

// Generic messages.
const (
	MsgSuccess            = "Operation executed successfully."
	MsgInvalid            = "Form is invalid. Please review the data."
	MsgDefault            = "Something went wrong."
	MsgEquipmentNoID      = "Equipment is missing an ID."
	MsgInforEAMWritten    = "Information registered in inforEAM successfully."
	MsgBoxNotInInforEAM   = "Box equivalent inforEAM ID doesn't exist. Please use ID within valid range."
	MsgPrintStatusInvalid = "One of the selected equipment is associated to an experiment with an invalid status. Status should be 'In Preparation'."
	MsgInvalidEquipmentID = "One of the selected equipments has an invalid id."
	MsgRemoteUnavailable  = "Error remote database unavailable. Please try again later."
	MsgSorry              = "Sorry something went wrong."
)

// Experiment messages.
const (
	MsgExperimentCreated      = "Your irradiation experiment was successfully saved!\nSoon, the facility coordinators will validate your request and you will be able to add samples and additional users."
	MsgExperimentUpdated      = "Your irradiation experiment was successfully updated!"
	MsgExperimentCloned       = "Your irradiation experiment was successfully cloned!"
	MsgExperimentDeleted      = "The experiment was successfully deleted!"
	MsgExperimentValidated    = "The experiment was validated. The users will be notified now."
	MsgMissingFields          = "Please, fill all the required fields!"
	MsgTitleNotUnique         = "This title already exists! Please, choose a different title."
	MsgMultipleAreas          = "Please select only one irradiation area."
	MsgNoCategory             = "Please select a category."
	MsgInvalidCategory        = "Invalid category."
	MsgInvalidFluence         = "Invalid fluence."
	MsgInvalidMaterial        = "Invalid material."
	MsgExperimentCompleted    = "Invalid operation. Action can't be performed for completed experiments."
	MsgExperimentNotValidated = "Invalid operation. Action not possible until experiment is validated by administrators."
)

// Box messages.
const (
	MsgBoxCreated           = "Box was successfully created!"
	MsgBoxUpdated           = "Box was successfully updated!"
	MsgBoxCloned            = "Box was successfully cloned!"
	MsgBoxDeleted           = "Box was successfully deleted!"
	MsgBoxItemRemoved       = "Box item was successfully removed!"
	MsgBoxItemsAdded        = "Box items were successfully added!"
	MsgBoxNotExist          = "Box doesn't exist!"
	MsgInvalidItemID        = "Item ID is invalid."
	MsgBoxesInvalidID       = "At least a box has an invalid set id. Please correct."
	MsgBoxDoesNotExist      = "A box with this id doesn't exist."
	MsgIncorrectBoxIDFormat = `Box id must folow the format "BOX-XXXXXX".`
)

// Compound messages.
const (
	MsgCompoundCreated       = "Compound was successfully created!"
	MsgCompoundUpdated       = "Compound was successfully updated!"
	MsgCompoundCloned        = "Compound was successfully cloned!"
	MsgCompoundDeleted       = "Compound was successfully deleted!"
	MsgCompoundNotSum100     = "Element's percentage don't sum to 100%."
	MsgCompoundEmpty         = "Please add at least one element to compound."
	MsgCompoundHasSamples    = "Invalid operation. At least one compound has an associated sample."
	MsgElementCreated        = "Element was successfully created!"
	MsgCompoundNameNotUnique = "Compound already exists."
)

// Dosimeter messages.
const (
	MsgDosimeterCreated       = "Dosimeter was successfully created!"
	MsgDosimetersCreated      = "Dosimeters were successfully created!"
	MsgDosimeterUpdated       = "Dosimeter was successfully updated!"
	MsgDosimeterCloned        = "Dosimeter was successfully cloned!"
	MsgDosimeterDeleted       = "Dosimeter was successfully deleted!"
	MsgDosimeterIncorrectID   = "Dosimeter id is incorrect. If has parent, id should be <parent ID>.<number of child>."
	MsgNoDosimetersForBox     = "No dosimeters selected for box assignment."
	MsgDosimetersInvalidDosID = "At least a dosimeter has an invalid dos id. Please correct."
)

// Irradiation and fluence factor messages.
const (
	MsgFactorCreated          = "Factor was successfully created!"
	MsgFactorUpdated          = "Factor was successfully updated!"
	MsgFactorDeleted          = "Factor was successfully deleted!"
	MsgIrradiationCreated     = "Irradiation was successfully created!"
	MsgIrradiationUpdated     = "Irradiation was successfully updated!"
	MsgIrradiationDeleted     = "Irradiation was successfully deleted!"
	MsgIrradiationGroup       = "Irradiation group was successfully created! Now you will be redirected to the irradiations page."
	MsgIrradiationInvalidSets = "Invalid operation. Samples have invalid set ids."
)

// Sample messages.
const (
	MsgSampleCreated         = "Sample was successfully created!"
	MsgSampleUpdated         = "Sample was successfully updated!"
	MsgSampleCloned          = "Sample was successfully cloned!"
	MsgSampleDeleted         = "Sample was successfully deleted!"
	MsgSampleNotUnique       = "Sample already exists."
	MsgSampleEmptyLayers     = "Please add at least one layer to sample."
	MsgNoSamplesForBox       = "No samples selected for box assignment."
	MsgSamplesInvalidSetID   = "At least a sample has an invalid set id. Please correct."
	MsgSamplesAlreadyHaveSet = "At least one sample already has a SET ID."
)

// User messages.
const (
	MsgUserCreated             = "User was successfully created! The user should still subscribe in irrad-ps-users e-group if he/she is not a member!"
	MsgUserAdded               = "User was successfully added to experiment!"
	MsgUserUpdated             = "User was successfully updated!"
	MsgUserDeleted             = "User was successfully deleted! He/she will not have access to the related experiments and samples anymore!"
	MsgUserRemoved             = "User was successfully removed to experiment!"
	MsgResponsibleNotRemovable = "Experiment reponsible can't be removed."
)
