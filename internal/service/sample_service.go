package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"irrad-data/internal/domain"
	"irrad-data/internal/equipment"
	"irrad-data/internal/fluence"
	"irrad-data/internal/listing"
	"irrad-data/internal/occupancy"
	"irrad-data/internal/repository"
)

const setIDLockKey = "set_id"

// SampleService manages samples, their layers, occupancy and SET ids.
type SampleService struct {
	deps  *Deps
	perms *Permissions
	exps  *ExperimentService
}

func NewSampleService(d *Deps, perms *Permissions, exps *ExperimentService) *SampleService {
	return &SampleService{deps: d, perms: perms, exps: exps}
}

type LayerInput struct {
	Name       string  `json:"name"`
	Length     float64 `json:"length"`
	CompoundID int64   `json:"compound_id"`
}

// SampleInput is the sample form with its layers.
type SampleInput struct {
	Name            string       `json:"name"`
	CurrentLocation string       `json:"current_location"`
	Height          float64      `json:"height"`
	Width           float64      `json:"width"`
	Weight          float64      `json:"weight"`
	Comments        string       `json:"comments"`
	ReqFluenceID    int64        `json:"req_fluence_id"`
	MaterialID      int64        `json:"material_id"`
	Category        string       `json:"category"`
	Storage         string       `json:"storage"`
	Layers          []LayerInput `json:"layers"`
}

func (s *SampleService) validate(ctx context.Context, in *SampleInput, experimentID int64) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid(MsgInvalid)
	}
	for _, v := range []float64{in.Height, in.Width, in.Weight} {
		if err := listing.CheckInRange(v, 0); err != nil {
			return err
		}
	}
	if in.Storage != "" && !domain.Contains(domain.Storages, in.Storage) {
		return invalid(MsgInvalid)
	}
	if len(in.Layers) == 0 {
		return invalid(MsgSampleEmptyLayers)
	}
	for _, l := range in.Layers {
		if strings.TrimSpace(l.Name) == "" {
			return invalid(MsgInvalid)
		}
		if err := listing.CheckInRange(l.Length, 0); err != nil {
			return err
		}
		if l.CompoundID > 0 {
			if _, err := s.deps.Repos.Compounds.GetCompound(ctx, l.CompoundID); err != nil {
				if isNoRows(err) {
					return invalid(MsgInvalid)
				}
				return fmt.Errorf("failed to get compound: %w", err)
			}
		}
	}
	return s.checkExperimentRefs(ctx, experimentID, in.ReqFluenceID, in.MaterialID)
}

// checkExperimentRefs makes sure the fluence and material belong to the experiment.
func (s *SampleService) checkExperimentRefs(ctx context.Context, experimentID, reqFluenceID, materialID int64) error {
	if reqFluenceID > 0 {
		fluences, err := s.deps.Repos.Experiments.ListReqFluences(ctx, experimentID)
		if err != nil {
			return fmt.Errorf("failed to list fluences: %w", err)
		}
		found := false
		for _, f := range fluences {
			found = found || f.ID == reqFluenceID
		}
		if !found {
			return invalid(MsgInvalidFluence)
		}
	}
	if materialID > 0 {
		materials, err := s.deps.Repos.Experiments.ListMaterials(ctx, experimentID)
		if err != nil {
			return fmt.Errorf("failed to list materials: %w", err)
		}
		found := false
		for _, m := range materials {
			found = found || m.ID == materialID
		}
		if !found {
			return invalid(MsgInvalidMaterial)
		}
	}
	return nil
}

func (in *SampleInput) apply(sm *domain.Sample) {
	sm.Name = in.Name
	sm.CurrentLocation = in.CurrentLocation
	sm.Height = in.Height
	sm.Width = in.Width
	sm.Weight = in.Weight
	sm.Comments = in.Comments
	sm.ReqFluenceID = domain.NullID(in.ReqFluenceID)
	sm.MaterialID = domain.NullID(in.MaterialID)
	sm.Category = in.Category
	sm.Storage = in.Storage
}

func (in *SampleInput) layers(sampleID int64) []*domain.Layer {
	out := make([]*domain.Layer, len(in.Layers))
	for i, l := range in.Layers {
		out[i] = &domain.Layer{
			Name:       strings.TrimSpace(l.Name),
			Length:     l.Length,
			CompoundID: domain.NullID(l.CompoundID),
			SampleID:   sampleID,
		}
	}
	return out
}

func (s *SampleService) get(ctx context.Context, id int64) (*domain.Sample, error) {
	sm, err := s.deps.Repos.Samples.GetSample(ctx, id)
	if err != nil {
		return nil, notFound(err, "sample", id)
	}
	return sm, nil
}

func (s *SampleService) nameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	sm, err := s.deps.Repos.Samples.GetSampleByName(ctx, name)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check sample name: %w", err)
	}
	return sm.ID != exceptID, nil
}

// occupancyOf computes the occupancy of a stack of layers from their compounds.
func (s *SampleService) occupancyOf(ctx context.Context, layers []*domain.Layer) (occupancy.Values, error) {
	elements, err := s.deps.Repos.Compounds.ListElements(ctx)
	if err != nil {
		return occupancy.Values{}, fmt.Errorf("failed to list elements: %w", err)
	}
	byID := make(map[int64]*domain.Element, len(elements))
	for _, e := range elements {
		byID[e.ID] = e
	}
	var stack []occupancy.Layer
	for _, l := range layers {
		if !l.CompoundID.Valid {
			continue
		}
		c, err := s.deps.Repos.Compounds.GetCompound(ctx, l.CompoundID.Int64)
		if err != nil {
			return occupancy.Values{}, notFound(err, "compound", l.CompoundID.Int64)
		}
		ces, err := s.deps.Repos.Compounds.ListCompoundElements(ctx, c.ID)
		if err != nil {
			return occupancy.Values{}, fmt.Errorf("failed to list compound elements: %w", err)
		}
		ol := occupancy.Layer{Length: l.Length, Density: c.Density.Float64}
		for _, ce := range ces {
			if e, ok := byID[ce.ElementID]; ok {
				ol.Components = append(ol.Components, occupancy.Component{Percentage: ce.Percentage, Element: *e})
			}
		}
		stack = append(stack, ol)
	}
	return occupancy.Compute(stack), nil
}

// store saves layers and occupancy of sm, which must already exist.
func (s *SampleService) store(ctx context.Context, sm *domain.Sample, layers []*domain.Layer) error {
	repo := s.deps.Repos.Samples
	if err := repo.SaveLayers(ctx, sm.ID, layers); err != nil {
		return fmt.Errorf("failed to save layers: %w", err)
	}
	occ, err := s.occupancyOf(ctx, layers)
	if err != nil {
		return err
	}
	if err := repo.SaveOccupancy(ctx, &domain.Occupancy{
		SampleID:           sm.ID,
		RadiationLengthOcc: occ.RadiationLength,
		NuCollLengthOcc:    occ.NuCollLength,
		NuIntLengthOcc:     occ.NuIntLength,
	}); err != nil {
		return fmt.Errorf("failed to save occupancy: %w", err)
	}
	sm.RadiationLengthOcc = occ.RadiationLength
	sm.NuCollLengthOcc = occ.NuCollLength
	sm.NuIntLengthOcc = occ.NuIntLength
	if err := repo.UpdateSample(ctx, sm); err != nil {
		return fmt.Errorf("failed to update sample occupancy: %w", err)
	}
	if sm.ExperimentID.Valid {
		return s.exps.RecomputeTotals(ctx, sm.ExperimentID.Int64)
	}
	return nil
}

// SampleList is a page of an experiment's samples and their summed occupancy.
type SampleList struct {
	listing.Page[map[string]any]
	Occupancy occupancy.Values `json:"occupancy"`
}

func sampleFields(sm *domain.Sample) []string {
	return []string{sm.Name, sm.SetID.String, sm.CurrentLocation, sm.Category, sm.Status, sm.Storage}
}

func (s *SampleService) List(ctx context.Context, actor *domain.User, experimentID int64, req ListRequest) (*SampleList, error) {
	if _, err := s.exps.get(ctx, experimentID); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperimentSamples, experimentID); err != nil {
		return nil, err
	}
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{ExperimentID: experimentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	return &SampleList{Page: page(samples, req, sampleFields), Occupancy: occupancy.FromSamples(samples)}, nil
}

// AdminList lists the samples of every experiment.
func (s *SampleService) AdminList(ctx context.Context, actor *domain.User, req ListRequest) (*listing.Page[map[string]any], error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	p := page(samples, req, sampleFields)
	return &p, nil
}

type LayerRow struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Length     float64 `json:"length"`
	CompoundID int64   `json:"compound_id,omitempty"`
	Compound   string  `json:"compound,omitempty"`
}

type SampleDetails struct {
	Sample    map[string]any   `json:"sample"`
	Layers    []LayerRow       `json:"layers"`
	Occupancy occupancy.Values `json:"occupancy"`
}

func (s *SampleService) Details(ctx context.Context, actor *domain.User, id int64) (*SampleDetails, error) {
	sm, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermSample, id); err != nil {
		return nil, err
	}
	layers, err := s.deps.Repos.Samples.ListLayers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list layers: %w", err)
	}
	d := &SampleDetails{Sample: sm.ToJSON(), Layers: make([]LayerRow, 0, len(layers))}
	for _, l := range layers {
		row := LayerRow{ID: l.ID, Name: l.Name, Length: l.Length}
		if l.CompoundID.Valid {
			row.CompoundID = l.CompoundID.Int64
			if c, err := s.deps.Repos.Compounds.GetCompound(ctx, l.CompoundID.Int64); err == nil {
				row.Compound = c.Name
			}
		}
		d.Layers = append(d.Layers, row)
	}
	occs, err := s.deps.Repos.Samples.ListOccupancies(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list occupancies: %w", err)
	}
	d.Occupancy = occupancy.FromOccupancies(occs)
	return d, nil
}

// Create registers a sample in an experiment with status Registered.
func (s *SampleService) Create(ctx context.Context, actor *domain.User, experimentID int64, in SampleInput) (*Outcome, error) {
	if _, err := s.exps.get(ctx, experimentID); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, experimentID); err != nil {
		return nil, err
	}
	if err := s.exps.RequireValidated(ctx, actor, experimentID); err != nil {
		return nil, err
	}
	sm, err := s.insert(ctx, actor, experimentID, &in)
	if err != nil {
		return nil, err
	}
	return done(MsgSampleCreated, sm.ToJSON()), nil
}

func (s *SampleService) insert(ctx context.Context, actor *domain.User, experimentID int64, in *SampleInput) (*domain.Sample, error) {
	if err := s.validate(ctx, in, experimentID); err != nil {
		return nil, err
	}
	taken, err := s.nameTaken(ctx, in.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid(MsgSampleNotUnique)
	}
	sm := &domain.Sample{ExperimentID: domain.NullID(experimentID), Status: domain.StatusRegistered}
	in.apply(sm)
	sm.Touch(actor.ID, s.deps.now())
	if _, err := s.deps.Repos.Samples.CreateSample(ctx, sm); err != nil {
		return nil, fmt.Errorf("failed to create sample: %w", err)
	}
	if err := s.store(ctx, sm, in.layers(sm.ID)); err != nil {
		return nil, err
	}
	return sm, nil
}

// Update edits a sample, marking it Updated and recomputing its occupancy.
func (s *SampleService) Update(ctx context.Context, actor *domain.User, id int64, in SampleInput) (*Outcome, error) {
	sm, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermSample, id); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in, sm.ExperimentID.Int64); err != nil {
		return nil, err
	}
	taken, err := s.nameTaken(ctx, in.Name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid(MsgSampleNotUnique)
	}
	in.apply(sm)
	sm.Status = domain.StatusUpdated
	sm.Touch(actor.ID, s.deps.now())
	if err := s.store(ctx, sm, in.layers(sm.ID)); err != nil {
		return nil, err
	}
	return done(MsgSampleUpdated, sm.ToJSON()), nil
}

// Clone registers a new sample in the experiment of sample id from the form.
func (s *SampleService) Clone(ctx context.Context, actor *domain.User, id int64, in SampleInput) (*Outcome, error) {
	src, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermSample, id); err != nil {
		return nil, err
	}
	sm, err := s.insert(ctx, actor, src.ExperimentID.Int64, &in)
	if err != nil {
		return nil, err
	}
	return done(MsgSampleCloned, sm.ToJSON()), nil
}

func (s *SampleService) Delete(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Samples.GetSample); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermSample, sel.IDs...); err != nil {
		return nil, err
	}
	touched := map[int64]bool{}
	for _, id := range sel.IDs {
		sm, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.deps.Repos.Samples.DeleteSample(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete sample %d: %w", id, err)
		}
		if sm.ExperimentID.Valid {
			touched[sm.ExperimentID.Int64] = true
		}
	}
	for expID := range touched {
		if err := s.exps.RecomputeTotals(ctx, expID); err != nil {
			return nil, err
		}
	}
	return done(MsgSampleDeleted, nil), nil
}

// MoveInput is where moved samples go.
type MoveInput struct {
	ExperimentID int64  `json:"experiment_id"`
	ReqFluenceID int64  `json:"req_fluence_id"`
	MaterialID   int64  `json:"material_id"`
	Category     string `json:"category"`
}

// Move transfers samples to another experiment, archiving their old membership.
func (s *SampleService) Move(ctx context.Context, actor *domain.User, sel Selection, in MoveInput) (*Outcome, error) {
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Samples.GetSample); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermSample, sel.IDs...); err != nil {
		return nil, err
	}
	if _, err := s.exps.get(ctx, in.ExperimentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid(MsgInvalid)
		}
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, in.ExperimentID); err != nil {
		return nil, err
	}
	if err := s.checkExperimentRefs(ctx, in.ExperimentID, in.ReqFluenceID, in.MaterialID); err != nil {
		return nil, err
	}
	touched := map[int64]bool{in.ExperimentID: true}
	for _, id := range sel.IDs {
		sm, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sm.ExperimentID.Valid {
			touched[sm.ExperimentID.Int64] = true
			if _, err := s.deps.Repos.Experiments.CreateArchive(ctx, &domain.ArchiveExperimentSample{
				Timestamp:    domain.NullTime(s.deps.now()),
				ExperimentID: sm.ExperimentID.Int64,
				SampleID:     sm.ID,
			}); err != nil {
				return nil, fmt.Errorf("failed to archive sample %d: %w", id, err)
			}
		}
		sm.ExperimentID = domain.NullID(in.ExperimentID)
		sm.ReqFluenceID = domain.NullID(in.ReqFluenceID)
		sm.MaterialID = domain.NullID(in.MaterialID)
		sm.Category = in.Category
		sm.Touch(actor.ID, s.deps.now())
		if err := s.deps.Repos.Samples.UpdateSample(ctx, sm); err != nil {
			return nil, fmt.Errorf("failed to move sample %d: %w", id, err)
		}
	}
	for expID := range touched {
		if err := s.exps.RecomputeTotals(ctx, expID); err != nil {
			return nil, err
		}
	}
	return done(MsgSuccess, nil), nil
}

// AttachBox puts samples into the box with the given box id; "None" or "" takes them out.
func (s *SampleService) AttachBox(ctx context.Context, actor *domain.User, sel Selection, boxID string) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if len(sel.IDs) == 0 {
		return nil, invalid(MsgNoSamplesForBox)
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Samples.GetSample); err != nil {
		return nil, err
	}
	var box *domain.Box
	if boxID != "" && boxID != "None" {
		b, err := s.deps.Repos.Boxes.GetBoxByBoxID(ctx, boxID)
		if isNoRows(err) {
			return nil, invalid(MsgInvalid)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get box: %w", err)
		}
		box = b
	}
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{IDs: sel.IDs})
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	for _, sm := range samples {
		if !equipment.Is(sm.SetID.String, equipment.KindSample) {
			return nil, invalid(MsgSamplesInvalidSetID)
		}
	}
	for _, sm := range samples {
		if box != nil {
			sm.BoxID = domain.NullID(box.ID)
		} else {
			sm.BoxID.Valid = false
		}
		sm.Touch(actor.ID, s.deps.now())
		if err := s.deps.Repos.Samples.UpdateSample(ctx, sm); err != nil {
			return nil, fmt.Errorf("failed to attach sample %d: %w", sm.ID, err)
		}
	}
	return done(MsgSuccess, nil), nil
}

const maxSetIDAssignments = 5

// AssignSetIDs gives every selected sample a SET id free both locally and in inforEAM.
func (s *SampleService) AssignSetIDs(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := checkSelection(ctx, sel.IDs, listing.Group, maxSetIDAssignments, s.deps.Repos.Samples.GetSample); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermSample, sel.IDs...); err != nil {
		return nil, err
	}
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{IDs: sel.IDs})
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	for _, sm := range samples {
		if equipment.Is(sm.SetID.String, equipment.KindSample) {
			return nil, invalid(MsgSamplesAlreadyHaveSet)
		}
	}

	unlock, err := s.deps.Locker.Lock(ctx, setIDLockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to lock set id allocation: %w", err)
	}
	defer unlock()

	used, err := s.deps.Repos.Samples.ListSetIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list set ids: %w", err)
	}
	search := &equipment.SetIDSearch{Reader: s.deps.InforEAM}
	assigned := make([]map[string]any, 0, len(samples))
	for _, sm := range samples {
		id, err := search.Next(ctx, used)
		if err != nil {
			s.deps.Logger.Error("SET id generation failed", zap.Int64("sample_id", sm.ID), zap.Error(err))
			return nil, invalid(MsgRemoteUnavailable)
		}
		used = append(used, id)
		sm.SetID = domain.NullString(id)
		sm.Touch(actor.ID, s.deps.now())
		if err := s.deps.Repos.Samples.UpdateSample(ctx, sm); err != nil {
			return nil, fmt.Errorf("failed to save set id of sample %d: %w", sm.ID, err)
		}
		s.deps.Logger.Info("SET id assigned", zap.Int64("sample_id", sm.ID), zap.String("set_id", id))
		assigned = append(assigned, sm.ToJSON())
	}
	return done(MsgSuccess, assigned), nil
}

// SampleDosimetry is the irradiation history of a sample and its fluence per dosimeter footprint.
type SampleDosimetry struct {
	Sample       map[string]any          `json:"sample"`
	Irradiations []map[string]any        `json:"irradiations"`
	Fluences     []fluence.SampleFluence `json:"fluences"`
}

func (s *SampleService) DosimetryResults(ctx context.Context, actor *domain.User, id int64) (*SampleDosimetry, error) {
	sm, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermSample, id); err != nil {
		return nil, err
	}
	irrs, err := s.deps.Repos.Irradiations.ListIrradiations(ctx, repository.IrradiationsFilter{SampleIDs: []int64{id}})
	if err != nil {
		return nil, fmt.Errorf("failed to list irradiations: %w", err)
	}
	exposures := make([]fluence.Exposure, 0, len(irrs))
	for _, irr := range irrs {
		if !irr.DosimeterID.Valid {
			continue
		}
		dos, err := s.deps.Repos.Dosimeters.GetDosimeter(ctx, irr.DosimeterID.Int64)
		if err != nil {
			if isNoRows(err) {
				continue
			}
			return nil, fmt.Errorf("failed to get dosimeter: %w", err)
		}
		exposures = append(exposures, fluence.Exposure{
			DosID:            dos.DosID,
			Width:            dos.Width,
			Height:           dos.Height,
			DosPosition:      irr.DosPosition.Int64,
			EstimatedFluence: irr.EstimatedFluence.Float64,
		})
	}
	fl := fluence.SampleFluences(exposures)
	if fl == nil {
		fl = []fluence.SampleFluence{}
	}
	return &SampleDosimetry{Sample: sm.ToJSON(), Irradiations: jsonItems(irrs), Fluences: fl}, nil
}
