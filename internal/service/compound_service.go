package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"irrad-data/internal/domain"
	"irrad-data/internal/listing"
)

// percentageTolerance absorbs float rounding when element percentages are summed.
const percentageTolerance = 1e-9

// CompoundService manages compounds and the elements they are made of.
type CompoundService struct {
	deps  *Deps
	perms *Permissions
}

func NewCompoundService(d *Deps, perms *Permissions) *CompoundService {
	return &CompoundService{deps: d, perms: perms}
}

type CompoundElementInput struct {
	ElementID  int64   `json:"element_id"`
	Percentage float64 `json:"percentage"`
}

type CompoundInput struct {
	Name     string                 `json:"name"`
	Density  float64                `json:"density"`
	Elements []CompoundElementInput `json:"elements"`
}

func (s *CompoundService) validate(ctx context.Context, in *CompoundInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid(MsgInvalid)
	}
	if err := listing.CheckInRange(in.Density, 0); err != nil {
		return err
	}
	if len(in.Elements) == 0 {
		return invalid(MsgCompoundEmpty)
	}
	var total float64
	for _, e := range in.Elements {
		if err := listing.CheckInRange(e.Percentage, 0, 100); err != nil {
			return err
		}
		if _, err := s.deps.Repos.Compounds.GetElement(ctx, e.ElementID); err != nil {
			if isNoRows(err) {
				return invalid(MsgInvalid)
			}
			return fmt.Errorf("failed to get element: %w", err)
		}
		total += e.Percentage
	}
	if math.Abs(total-100) > percentageTolerance {
		return invalid(MsgCompoundNotSum100)
	}
	return nil
}

func (in *CompoundInput) elements(compoundID int64) []*domain.CompoundElement {
	out := make([]*domain.CompoundElement, len(in.Elements))
	for i, e := range in.Elements {
		out[i] = &domain.CompoundElement{CompoundID: compoundID, ElementID: e.ElementID, Percentage: e.Percentage}
	}
	return out
}

func (s *CompoundService) nameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	c, err := s.deps.Repos.Compounds.GetCompoundByName(ctx, name)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check compound name: %w", err)
	}
	return c.ID != exceptID, nil
}

func compoundFields(c *domain.Compound) []string { return []string{c.Name} }

// List is the admin compounds list with the number of samples using each compound.
func (s *CompoundService) List(ctx context.Context, actor *domain.User, req ListRequest) (*listing.Page[map[string]any], error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	compounds, err := s.deps.Repos.Compounds.ListCompounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list compounds: %w", err)
	}
	p := page(compounds, req, compoundFields)
	return &p, nil
}

// Options lists every compound for the layer form.
func (s *CompoundService) Options(ctx context.Context, actor *domain.User) ([]map[string]any, error) {
	if err := s.perms.Require(ctx, actor, PermLogin); err != nil {
		return nil, err
	}
	compounds, err := s.deps.Repos.Compounds.ListCompounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list compounds: %w", err)
	}
	return jsonItems(compounds), nil
}

type CompoundDetails struct {
	Compound map[string]any          `json:"compound"`
	Elements []CompoundElementDetail `json:"elements"`
}

type CompoundElementDetail struct {
	ElementID    int64   `json:"element_id"`
	AtomicSymbol string  `json:"atomic_symbol"`
	AtomicNumber int     `json:"atomic_number"`
	Percentage   float64 `json:"percentage"`
}

func (s *CompoundService) Details(ctx context.Context, actor *domain.User, id int64) (*CompoundDetails, error) {
	if err := s.perms.Require(ctx, actor, PermLogin); err != nil {
		return nil, err
	}
	c, err := s.deps.Repos.Compounds.GetCompound(ctx, id)
	if err != nil {
		return nil, notFound(err, "compound", id)
	}
	ces, err := s.deps.Repos.Compounds.ListCompoundElements(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list compound elements: %w", err)
	}
	d := &CompoundDetails{Compound: c.ToJSON(), Elements: make([]CompoundElementDetail, 0, len(ces))}
	for _, ce := range ces {
		row := CompoundElementDetail{ElementID: ce.ElementID, Percentage: ce.Percentage}
		if e, err := s.deps.Repos.Compounds.GetElement(ctx, ce.ElementID); err == nil {
			row.AtomicSymbol, row.AtomicNumber = e.AtomicSymbol, e.AtomicNumber
		}
		d.Elements = append(d.Elements, row)
	}
	return d, nil
}

// Create is open to every user so layers can use new compounds.
func (s *CompoundService) Create(ctx context.Context, actor *domain.User, in CompoundInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermLogin); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	taken, err := s.nameTaken(ctx, in.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid(MsgCompoundNameNotUnique)
	}
	c := &domain.Compound{Name: in.Name, Density: nullFloat(in.Density)}
	if _, err := s.deps.Repos.Compounds.CreateCompound(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create compound: %w", err)
	}
	if err := s.deps.Repos.Compounds.SaveCompoundElements(ctx, c.ID, in.elements(c.ID)); err != nil {
		return nil, fmt.Errorf("failed to save compound elements: %w", err)
	}
	return done(MsgCompoundCreated, c.ToJSON()), nil
}

func (s *CompoundService) Update(ctx context.Context, actor *domain.User, id int64, in CompoundInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	c, err := s.deps.Repos.Compounds.GetCompound(ctx, id)
	if err != nil {
		return nil, notFound(err, "compound", id)
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	taken, err := s.nameTaken(ctx, in.Name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid(MsgCompoundNameNotUnique)
	}
	c.Name = in.Name
	c.Density = nullFloat(in.Density)
	if err := s.deps.Repos.Compounds.UpdateCompound(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update compound: %w", err)
	}
	if err := s.deps.Repos.Compounds.SaveCompoundElements(ctx, id, in.elements(id)); err != nil {
		return nil, fmt.Errorf("failed to save compound elements: %w", err)
	}
	return done(MsgCompoundUpdated, c.ToJSON()), nil
}

// Delete refuses the whole selection when any compound is used by a layer.
func (s *CompoundService) Delete(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Compounds.GetCompound); err != nil {
		return nil, err
	}
	for _, id := range sel.IDs {
		layers, err := s.deps.Repos.Samples.ListLayersByCompound(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to list layers of compound %d: %w", id, err)
		}
		if len(layers) > 0 {
			return nil, invalid(MsgCompoundHasSamples)
		}
	}
	for _, id := range sel.IDs {
		if err := s.deps.Repos.Compounds.DeleteCompound(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete compound %d: %w", id, err)
		}
	}
	return done(MsgCompoundDeleted, nil), nil
}

func (s *CompoundService) Elements(ctx context.Context, actor *domain.User) ([]*domain.Element, error) {
	if err := s.perms.Require(ctx, actor, PermLogin); err != nil {
		return nil, err
	}
	elements, err := s.deps.Repos.Compounds.ListElements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	return elements, nil
}

type ElementInput struct {
	AtomicNumber    int     `json:"atomic_number"`
	AtomicSymbol    string  `json:"atomic_symbol"`
	AtomicMass      float64 `json:"atomic_mass"`
	Density         float64 `json:"density"`
	MinIonization   float64 `json:"min_ionization"`
	NuCollLength    float64 `json:"nu_coll_length"`
	NuIntLength     float64 `json:"nu_int_length"`
	PiCollLength    float64 `json:"pi_coll_length"`
	PiIntLength     float64 `json:"pi_int_length"`
	RadiationLength float64 `json:"radiation_length"`
}

func (s *CompoundService) CreateElement(ctx context.Context, actor *domain.User, in ElementInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	in.AtomicSymbol = strings.TrimSpace(in.AtomicSymbol)
	if in.AtomicSymbol == "" || in.AtomicNumber <= 0 {
		return nil, invalid(MsgInvalid)
	}
	for _, v := range []float64{in.AtomicMass, in.Density, in.MinIonization, in.NuCollLength,
		in.NuIntLength, in.PiCollLength, in.PiIntLength, in.RadiationLength} {
		if err := listing.CheckInRange(v, 0); err != nil {
			return nil, err
		}
	}
	e := &domain.Element{
		AtomicNumber:    in.AtomicNumber,
		AtomicSymbol:    in.AtomicSymbol,
		AtomicMass:      in.AtomicMass,
		Density:         in.Density,
		MinIonization:   in.MinIonization,
		NuCollLength:    in.NuCollLength,
		NuIntLength:     in.NuIntLength,
		PiCollLength:    in.PiCollLength,
		PiIntLength:     in.PiIntLength,
		RadiationLength: in.RadiationLength,
	}
	if _, err := s.deps.Repos.Compounds.CreateElement(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create element: %w", err)
	}
	return done(MsgElementCreated, e), nil
}
