package infoream

import (
	"fmt"
	"time"

	"irrad-data/internal/equipment"
)

const (
	departmentCode = "XI01"
	departmentDesc = "Experiments - IRRAD"
	stateCode      = "GOOD"
	statusCode     = "I"
	typeCode       = "A"
	accComponent   = "ACC_COMPONENT"

	commissionDateLayout = "02-Jan-2006"

	// CommentLine is the comment line that carries the sample layer description.
	CommentLine      = 5
	commentEntity    = "OBJ"
	commentTypeAny   = "*"
	labelSoftware    = "NiceLabel"
	labelBatch       = "0"
	labelRequestType = "E"
)

// UserDefinedFields are the custom asset fields IRRAD fills in.
type UserDefinedFields struct {
	Length    float64 `json:"udfnum07"`
	Width     float64 `json:"udfnum08"`
	Height    float64 `json:"udfnum09"`
	Weight    float64 `json:"udfnum10"`
	Component string  `json:"udfchar21"`
	Material  string  `json:"udfchar22"`
}

// Equipment is an inforEAM asset record.
type Equipment struct {
	Code                  string            `json:"code"`
	SerialNumber          string            `json:"serialNumber"`
	Description           string            `json:"description,omitempty"`
	CategoryDesc          string            `json:"categoryDesc,omitempty"`
	CommissionDate        string            `json:"comissionDate,omitempty"`
	DepartmentCode        string            `json:"departmentCode,omitempty"`
	DepartmentDesc        string            `json:"departmentDesc,omitempty"`
	StateCode             string            `json:"stateCode,omitempty"`
	StatusCode            string            `json:"statusCode,omitempty"`
	TypeCode              string            `json:"typeCode,omitempty"`
	HierarchyLocationCode string            `json:"hierarchyLocationCode,omitempty"`
	HierarchyAssetCode    string            `json:"hierarchyAssetCode,omitempty"`
	UserDefinedFields     UserDefinedFields `json:"userDefinedFields"`
}

// Hierarchy links an asset to its parent asset. An empty parent detaches it.
type Hierarchy struct {
	Code                     string `json:"code"`
	HierarchyAssetCode       string `json:"hierarchyAssetCode"`
	HierarchyAssetCostRollUp string `json:"hierarchyAssetCostRollUp"`
	HierarchyAssetDependent  string `json:"hierarchyAssetDependent"`
}

func newHierarchy(child, parent string) *Hierarchy {
	return &Hierarchy{
		Code:                     child,
		HierarchyAssetCode:       parent,
		HierarchyAssetCostRollUp: "true",
		HierarchyAssetDependent:  "true",
	}
}

// Comment is a numbered free-text line attached to an asset.
type Comment struct {
	EntityCode    string `json:"entityCode"`
	EntityKeyCode string `json:"entityKeyCode"`
	LineNumber    int    `json:"lineNumber"`
	TypeCode      string `json:"typeCode"`
	Text          string `json:"text"`
}

// NewComment builds the asset comment carried on CommentLine.
func NewComment(code, text string) *Comment {
	return &Comment{
		EntityCode:    commentEntity,
		EntityKeyCode: code,
		LineNumber:    CommentLine,
		TypeCode:      commentTypeAny,
		Text:          text,
	}
}

type LabelField struct {
	Entry LabelEntry `json:"entry"`
}

type LabelEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type PrintVariables struct {
	Code   string       `json:"code"`
	Fields []LabelField `json:"fields"`
}

// PrintRequest asks the label printer service for copies of one asset label.
type PrintRequest struct {
	BarcodingSoftware string         `json:"barcodingSoftware"`
	Batch             string         `json:"batch"`
	PrintQty          int            `json:"printQty"`
	PrintVariables    PrintVariables `json:"printVariables"`
	PrinterPath       string         `json:"printerPath"`
	TemplateCode      string         `json:"templateCode"`
	Type              string         `json:"type"`
}

// LabelOptions are the printer choices made by the user.
type LabelOptions struct {
	Printer  string
	Template string
	Copies   int
}

// NewPrintRequest builds the label request for the facility id.
func NewPrintRequest(id string, opts LabelOptions) (*PrintRequest, error) {
	code, ok := equipment.InforEAMID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return &PrintRequest{
		BarcodingSoftware: labelSoftware,
		Batch:             labelBatch,
		PrintQty:          opts.Copies,
		PrintVariables: PrintVariables{
			Code:   code,
			Fields: []LabelField{{Entry: LabelEntry{Key: "serialNumber", Value: id}}},
		},
		PrinterPath:  opts.Printer,
		TemplateCode: opts.Template,
		Type:         labelRequestType,
	}, nil
}

// Dimensions are sizes in cm and weight in kg as inforEAM stores them.
type Dimensions struct {
	Length float64
	Width  float64
	Height float64
	Weight float64
}

// SampleDimensions converts mm sizes to cm; the length is the stacked layer length.
// The weight is already in kg.
func SampleDimensions(height, width, weight float64, layerLengths []float64) Dimensions {
	var length float64
	for _, l := range layerLengths {
		length += l / 10
	}
	return Dimensions{Length: length, Width: width / 10, Height: height / 10, Weight: weight}
}

// DosimeterDimensions converts mm sizes to cm and g to kg.
func DosimeterDimensions(height, width, length, weight float64) Dimensions {
	return Dimensions{Length: length / 10, Width: width / 10, Height: height / 10, Weight: weight / 1000}
}

// BoxDimensions are passed through unchanged.
func BoxDimensions(length, width, height, weight float64) Dimensions {
	return Dimensions{Length: length, Width: width, Height: height, Weight: weight}
}

// Item is a piece of facility equipment to mirror in inforEAM.
type Item struct {
	ID         string
	Dimensions Dimensions
	Location   string
	// Comment is the layer description, samples only.
	Comment string
}

// NewEquipment builds the create/update payload of item.
func NewEquipment(item Item, now time.Time) (*Equipment, error) {
	code, ok := equipment.InforEAMID(item.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, item.ID)
	}
	desc := equipment.CategoryDesc(item.ID)
	return &Equipment{
		Code:                  code,
		SerialNumber:          item.ID,
		Description:           desc,
		CategoryDesc:          desc,
		CommissionDate:        now.Format(commissionDateLayout),
		DepartmentCode:        departmentCode,
		DepartmentDesc:        departmentDesc,
		StateCode:             stateCode,
		StatusCode:            statusCode,
		TypeCode:              typeCode,
		HierarchyLocationCode: item.Location,
		UserDefinedFields: UserDefinedFields{
			Length:    item.Dimensions.Length,
			Width:     item.Dimensions.Width,
			Height:    item.Dimensions.Height,
			Weight:    item.Dimensions.Weight,
			Component: accComponent,
			Material:  equipment.Material(equipment.Type(item.ID, equipment.Any)),
		},
	}, nil
}
