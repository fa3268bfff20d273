package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"irrad-data/internal/domain"
	"irrad-data/internal/equipment"
	"irrad-data/internal/infoream"
	"irrad-data/internal/listing"
	"irrad-data/internal/repository"
)

const (
	maxEquipmentWrite = 5
	maxLabelPrint     = 5
)

// EquipmentService mirrors facility equipment into inforEAM and prints asset labels.
type EquipmentService struct {
	deps  *Deps
	perms *Permissions
}

func NewEquipmentService(d *Deps, perms *Permissions) *EquipmentService {
	return &EquipmentService{deps: d, perms: perms}
}

func (s *EquipmentService) planner() *infoream.Planner {
	return &infoream.Planner{API: s.deps.InforEAM, Now: s.deps.now}
}

// WriteSamples writes up to five samples of an experiment, with their layer comment.
func (s *EquipmentService) WriteSamples(ctx context.Context, actor *domain.User, experimentID int64, sel Selection) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermExperiment, experimentID); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, maxEquipmentWrite, s.deps.Repos.Samples.GetSample); err != nil {
		return nil, err
	}
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{IDs: sel.IDs})
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	if err := s.perms.RequireSamplesOf(ctx, actor, experimentID, samples); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(samples))
	for _, sm := range samples {
		if !equipment.Is(sm.SetID.String, equipment.KindSample) {
			return nil, invalid(MsgSamplesInvalidSetID)
		}
		ids = append(ids, sm.SetID.String)
	}
	return s.write(ctx, ids)
}

// WriteDosimeters writes up to five dosimeters.
func (s *EquipmentService) WriteDosimeters(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, maxEquipmentWrite, s.deps.Repos.Dosimeters.GetDosimeter); err != nil {
		return nil, err
	}
	dosimeters, err := s.deps.Repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{IDs: sel.IDs})
	if err != nil {
		return nil, fmt.Errorf("failed to list dosimeters: %w", err)
	}
	ids := make([]string, 0, len(dosimeters))
	for _, d := range dosimeters {
		if !equipment.Is(d.DosID, equipment.KindDosimeter) {
			return nil, invalid(MsgDosimetersInvalidDosID)
		}
		ids = append(ids, d.DosID)
	}
	return s.write(ctx, ids)
}

// WriteBox writes one box together with every item stored in it.
func (s *EquipmentService) WriteBox(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 1, s.deps.Repos.Boxes.GetBox); err != nil {
		return nil, err
	}
	b, err := s.deps.Repos.Boxes.GetBox(ctx, sel.IDs[0])
	if err != nil {
		return nil, notFound(err, "box", sel.IDs[0])
	}
	if !equipment.Is(b.BoxID, equipment.KindBox) {
		return nil, invalid(MsgBoxesInvalidID)
	}
	return s.write(ctx, []string{b.BoxID})
}

// write plans every id first and applies the actions only when the whole plan succeeded.
func (s *EquipmentService) write(ctx context.Context, ids []string) (*Outcome, error) {
	if len(ids) == 0 {
		return nil, invalid(MsgEquipmentNoID)
	}
	for _, id := range ids {
		if id == "" || id == "None" {
			return nil, invalid(MsgEquipmentNoID)
		}
	}
	var actions []infoream.Action
	for _, id := range ids {
		planned, err := s.plan(ctx, id)
		if errors.Is(err, infoream.ErrBoxNotRegistered) {
			return nil, invalid(MsgBoxNotInInforEAM)
		}
		if err != nil {
			s.deps.Logger.Error("Failed to plan inforEAM write", zap.String("equipment_id", id), zap.Error(err))
			return nil, invalid(MsgDefault)
		}
		actions = append(actions, planned...)
	}
	if err := infoream.Apply(ctx, s.deps.InforEAM, actions, s.deps.Logger); err != nil {
		return nil, invalid(MsgDefault)
	}
	s.deps.Logger.Info("Equipment written to inforEAM", zap.Strings("equipment_ids", ids), zap.Int("actions", len(actions)))
	return done(MsgInforEAMWritten, nil), nil
}

func (s *EquipmentService) plan(ctx context.Context, id string) ([]infoream.Action, error) {
	switch equipment.Type(id, equipment.Any) {
	case equipment.KindSample:
		sm, err := sampleBySetID(ctx, s.deps.Repos.Samples, id)
		if err != nil {
			return nil, err
		}
		if sm == nil {
			return nil, fmt.Errorf("no sample with set id %s", id)
		}
		item, err := s.sampleItem(ctx, sm)
		if err != nil {
			return nil, err
		}
		return s.planner().PlanItem(ctx, item)
	case equipment.KindDosimeter:
		d, err := s.deps.Repos.Dosimeters.GetDosimeterByDosID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get dosimeter %s: %w", id, err)
		}
		return s.planner().PlanItem(ctx, dosimeterItem(d))
	case equipment.KindBox:
		b, err := s.deps.Repos.Boxes.GetBoxByBoxID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get box %s: %w", id, err)
		}
		items, err := s.boxItems(ctx, b)
		if err != nil {
			return nil, err
		}
		return s.planner().PlanBox(ctx, boxItem(b), items)
	default:
		return nil, fmt.Errorf("%w: %q", infoream.ErrInvalidID, id)
	}
}

func (s *EquipmentService) sampleItem(ctx context.Context, sm *domain.Sample) (infoream.Item, error) {
	layers, err := s.deps.Repos.Samples.ListLayers(ctx, sm.ID)
	if err != nil {
		return infoream.Item{}, fmt.Errorf("failed to list layers: %w", err)
	}
	lengths := make([]float64, 0, len(layers))
	comment := make([]infoream.CommentLayer, 0, len(layers))
	for _, l := range layers {
		lengths = append(lengths, l.Length)
		cl := infoream.CommentLayer{Name: l.Name, Length: l.Length}
		if l.CompoundID.Valid {
			if err := s.describeCompound(ctx, l.CompoundID.Int64, &cl); err != nil {
				return infoream.Item{}, err
			}
		}
		comment = append(comment, cl)
	}
	text, err := infoream.SampleComment(comment)
	if err != nil {
		return infoream.Item{}, err
	}
	return infoream.Item{
		ID:         sm.SetID.String,
		Dimensions: infoream.SampleDimensions(sm.Height, sm.Width, sm.Weight, lengths),
		Location:   sm.LastLocation.String,
		Comment:    text,
	}, nil
}

func (s *EquipmentService) describeCompound(ctx context.Context, compoundID int64, cl *infoream.CommentLayer) error {
	c, err := s.deps.Repos.Compounds.GetCompound(ctx, compoundID)
	if err != nil {
		return fmt.Errorf("failed to get compound %d: %w", compoundID, err)
	}
	cl.Compound, cl.Density = c.Name, c.Density.Float64
	ces, err := s.deps.Repos.Compounds.ListCompoundElements(ctx, compoundID)
	if err != nil {
		return fmt.Errorf("failed to list compound elements: %w", err)
	}
	for _, ce := range ces {
		e, err := s.deps.Repos.Compounds.GetElement(ctx, ce.ElementID)
		if err != nil {
			return fmt.Errorf("failed to get element %d: %w", ce.ElementID, err)
		}
		cl.Elements = append(cl.Elements, infoream.CommentElement{Symbol: e.AtomicSymbol, Z: e.AtomicNumber, Percentage: ce.Percentage})
	}
	return nil
}

func dosimeterItem(d *domain.Dosimeter) infoream.Item {
	return infoream.Item{
		ID:         d.DosID,
		Dimensions: infoream.DosimeterDimensions(d.Height, d.Width, d.Length, d.Weight),
		Location:   d.LastLocation.String,
	}
}

func boxItem(b *domain.Box) infoream.Item {
	return infoream.Item{
		ID:         b.BoxID,
		Dimensions: infoream.BoxDimensions(b.Length, b.Width, b.Height, b.Weight),
		Location:   b.LastLocation,
	}
}

// boxItems are the samples and dosimeters of b. Items inside a box carry no comment.
func (s *EquipmentService) boxItems(ctx context.Context, b *domain.Box) ([]infoream.Item, error) {
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{BoxID: b.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list box samples: %w", err)
	}
	dosimeters, err := s.deps.Repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{BoxID: b.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list box dosimeters: %w", err)
	}
	items := make([]infoream.Item, 0, len(samples)+len(dosimeters))
	for _, sm := range samples {
		layers, err := s.deps.Repos.Samples.ListLayers(ctx, sm.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list layers: %w", err)
		}
		lengths := make([]float64, len(layers))
		for i, l := range layers {
			lengths[i] = l.Length
		}
		items = append(items, infoream.Item{
			ID:         sm.SetID.String,
			Dimensions: infoream.SampleDimensions(sm.Height, sm.Width, sm.Weight, lengths),
			Location:   sm.LastLocation.String,
		})
	}
	for _, d := range dosimeters {
		items = append(items, dosimeterItem(d))
	}
	return items, nil
}

// Equipment families a label can be printed for.
const (
	ModelSample    = "sample"
	ModelDosimeter = "dosimeter"
	ModelBox       = "box"
)

// PrintInput is the label print form.
type PrintInput struct {
	Model    string  `json:"model"`
	IDs      []int64 `json:"ids"`
	Printer  string  `json:"printer"`
	Template string  `json:"template"`
	Copies   int     `json:"num_copies"`
}

type printable struct {
	equipmentID string
	experiment  int64
}

func (s *EquipmentService) printables(ctx context.Context, actor *domain.User, in *PrintInput) ([]printable, error) {
	repos := s.deps.Repos
	out := make([]printable, 0, len(in.IDs))
	switch in.Model {
	case ModelSample:
		if err := checkSelection(ctx, in.IDs, listing.Group, maxLabelPrint, repos.Samples.GetSample); err != nil {
			return nil, err
		}
		if err := s.perms.Require(ctx, actor, PermSample, in.IDs...); err != nil {
			return nil, err
		}
		for _, id := range in.IDs {
			sm, err := repos.Samples.GetSample(ctx, id)
			if err != nil {
				return nil, notFound(err, "sample", id)
			}
			out = append(out, printable{equipmentID: sm.SetID.String, experiment: sm.ExperimentID.Int64})
		}
	case ModelDosimeter:
		if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
			return nil, err
		}
		if err := checkSelection(ctx, in.IDs, listing.Group, maxLabelPrint, repos.Dosimeters.GetDosimeter); err != nil {
			return nil, err
		}
		for _, id := range in.IDs {
			d, err := repos.Dosimeters.GetDosimeter(ctx, id)
			if err != nil {
				return nil, notFound(err, "dosimeter", id)
			}
			out = append(out, printable{equipmentID: d.DosID})
		}
	case ModelBox:
		if err := checkSelection(ctx, in.IDs, listing.Group, maxLabelPrint, repos.Boxes.GetBox); err != nil {
			return nil, err
		}
		if err := s.perms.Require(ctx, actor, PermBoxDetails, in.IDs...); err != nil {
			return nil, err
		}
		for _, id := range in.IDs {
			b, err := repos.Boxes.GetBox(ctx, id)
			if err != nil {
				return nil, notFound(err, "box", id)
			}
			out = append(out, printable{equipmentID: b.BoxID})
		}
	default:
		return nil, invalid(MsgInvalid)
	}
	return out, nil
}

// Print sends one label request per selected equipment. Sample labels are only
// printed while every experiment involved is in preparation.
func (s *EquipmentService) Print(ctx context.Context, actor *domain.User, in PrintInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermLogin); err != nil {
		return nil, err
	}
	items, err := s.printables(ctx, actor, &in)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if equipment.Type(it.equipmentID, equipment.Any) == equipment.KindNone {
			return nil, invalid(MsgInvalidEquipmentID)
		}
	}
	if in.Model == ModelSample {
		for _, it := range items {
			e, err := s.deps.Repos.Experiments.GetExperiment(ctx, it.experiment)
			if err != nil && !isNoRows(err) {
				return nil, fmt.Errorf("failed to get experiment: %w", err)
			}
			if e == nil || e.Status != domain.StatusInPreparation {
				return nil, invalid(MsgPrintStatusInvalid)
			}
		}
	}
	if in.Printer == "" || in.Template == "" || in.Copies < 1 {
		return nil, invalid(MsgInvalid)
	}
	opts := infoream.LabelOptions{Printer: in.Printer, Template: in.Template, Copies: in.Copies}
	for _, it := range items {
		req, err := infoream.NewPrintRequest(it.equipmentID, opts)
		if err != nil {
			return nil, invalid(MsgInvalidEquipmentID)
		}
		if err := s.deps.InforEAM.PrintLabel(ctx, req); err != nil {
			s.deps.Logger.Error("Failed to print label", zap.String("equipment_id", it.equipmentID), zap.Error(err))
			return nil, invalid(MsgDefault)
		}
	}
	return done(MsgSuccess, nil), nil
}

// EquipmentRecord is what inforEAM knows about one facility id.
type EquipmentRecord struct {
	EquipmentID string              `json:"equipment_id"`
	InforEAMID  string              `json:"infoream_id,omitempty"`
	Exists      bool                `json:"exists"`
	Equipment   *infoream.Equipment `json:"equipment,omitempty"`
	Comment     string              `json:"comment,omitempty"`
}

// Read fetches the inforEAM record of a facility id. Samples are readable by
// anyone with access to them, other equipment only by admins.
func (s *EquipmentService) Read(ctx context.Context, actor *domain.User, equipmentID string) (*EquipmentRecord, error) {
	kind := equipment.Type(equipmentID, equipment.Any)
	if kind == equipment.KindSample {
		sm, err := sampleBySetID(ctx, s.deps.Repos.Samples, equipmentID)
		if err != nil {
			return nil, err
		}
		if sm == nil {
			return nil, notFound(sql.ErrNoRows, "sample", equipmentID)
		}
		if err := s.perms.Require(ctx, actor, PermSample, sm.ID); err != nil {
			return nil, err
		}
	} else if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}

	rec := &EquipmentRecord{EquipmentID: equipmentID}
	code, ok := equipment.InforEAMID(equipmentID)
	if kind == equipment.KindNone || !ok {
		return rec, nil
	}
	rec.InforEAMID = code
	eq, err := s.deps.InforEAM.ReadEquipment(ctx, code)
	if err != nil {
		if !errors.Is(err, infoream.ErrNotFound) {
			s.deps.Logger.Warn("Failed to read inforEAM equipment", zap.String("equipment_id", equipmentID), zap.Error(err))
		}
		return rec, nil
	}
	rec.Exists, rec.Equipment = true, eq
	if kind == equipment.KindSample {
		if c, err := s.deps.InforEAM.ReadComment(ctx, code, infoream.CommentLine); err == nil {
			rec.Comment = c.Text
		}
	}
	return rec, nil
}
