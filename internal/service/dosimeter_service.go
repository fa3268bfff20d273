package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"irrad-data/internal/domain"
	"irrad-data/internal/equipment"
	"irrad-data/internal/listing"
	"irrad-data/internal/repository"
)

const (
	dosIDLockKey      = "dos_id"
	maxGeneratedDosID = 100
)

type DosimeterService struct {
	deps  *Deps
	perms *Permissions
}

func NewDosimeterService(d *Deps, perms *Permissions) *DosimeterService {
	return &DosimeterService{deps: d, perms: perms}
}

type DosimeterInput struct {
	DosID           string  `json:"dos_id"`
	ResponsibleID   int64   `json:"responsible_id"`
	CurrentLocation string  `json:"current_location"`
	Length          float64 `json:"length"`
	Height          float64 `json:"height"`
	Width           float64 `json:"width"`
	Weight          float64 `json:"weight"`
	FoilsNumber     int64   `json:"foils_number"`
	DosType         string  `json:"dos_type"`
	Comments        string  `json:"comments"`
	ParentID        int64   `json:"parent_dosimeter_id"`
}

// validate checks the numbers and the id against the parent dosimeter, if any.
func (s *DosimeterService) validate(ctx context.Context, in *DosimeterInput) error {
	in.DosID = strings.TrimSpace(in.DosID)
	for _, v := range []float64{in.Length, in.Height, in.Width, in.Weight, float64(in.FoilsNumber)} {
		if err := listing.CheckInRange(v, 0); err != nil {
			return err
		}
	}
	if in.DosType != "" && !domain.Contains(domain.DosimeterTypes, in.DosType) {
		return invalid(MsgInvalid)
	}
	if in.ParentID > 0 {
		parent, err := s.deps.Repos.Dosimeters.GetDosimeter(ctx, in.ParentID)
		if isNoRows(err) {
			return invalid(MsgInvalid)
		}
		if err != nil {
			return fmt.Errorf("failed to get parent dosimeter: %w", err)
		}
		if !equipment.IsChildOf(parent.DosID, in.DosID) {
			return invalid(MsgDosimeterIncorrectID)
		}
		return nil
	}
	if equipment.Type(in.DosID, equipment.Root) != equipment.KindDosimeter {
		return invalid(MsgDosimeterIncorrectID)
	}
	return nil
}

func (in *DosimeterInput) apply(d *domain.Dosimeter) {
	d.DosID = in.DosID
	d.ResponsibleID = domain.NullID(in.ResponsibleID)
	d.CurrentLocation = domain.NullString(in.CurrentLocation)
	d.Length = in.Length
	d.Height = in.Height
	d.Width = in.Width
	d.Weight = in.Weight
	d.FoilsNumber = domain.NullID(in.FoilsNumber)
	d.DosType = in.DosType
	d.Comments = domain.NullString(in.Comments)
	d.ParentDosimeterID = domain.NullID(in.ParentID)
}

func (s *DosimeterService) get(ctx context.Context, id int64) (*domain.Dosimeter, error) {
	d, err := s.deps.Repos.Dosimeters.GetDosimeter(ctx, id)
	if err != nil {
		return nil, notFound(err, "dosimeter", id)
	}
	return d, nil
}

func (s *DosimeterService) dosIDTaken(ctx context.Context, dosID string, exceptID int64) (bool, error) {
	d, err := s.deps.Repos.Dosimeters.GetDosimeterByDosID(ctx, dosID)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check dos id: %w", err)
	}
	return d.ID != exceptID, nil
}

func dosimeterFields(d *domain.Dosimeter) []string {
	return []string{d.DosID, d.DosType, d.Status, d.CurrentLocation.String, d.Comments.String}
}

func (s *DosimeterService) List(ctx context.Context, actor *domain.User, req ListRequest) (*listing.Page[map[string]any], error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	all, err := s.deps.Repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list dosimeters: %w", err)
	}
	p := page(all, req, dosimeterFields)
	return &p, nil
}

type DosimeterDetails struct {
	Dosimeter map[string]any   `json:"dosimeter"`
	Parent    map[string]any   `json:"parent,omitempty"`
	Children  []map[string]any `json:"children"`
}

func (s *DosimeterService) Details(ctx context.Context, actor *domain.User, id int64) (*DosimeterDetails, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &DosimeterDetails{Dosimeter: d.ToJSON()}
	if d.ParentDosimeterID.Valid {
		if p, err := s.deps.Repos.Dosimeters.GetDosimeter(ctx, d.ParentDosimeterID.Int64); err == nil {
			out.Parent = p.ToJSON()
		}
	}
	children, err := s.deps.Repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{ParentID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to list child dosimeters: %w", err)
	}
	out.Children = jsonItems(children)
	return out, nil
}

func (s *DosimeterService) insert(ctx context.Context, actor *domain.User, in *DosimeterInput) (*domain.Dosimeter, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	taken, err := s.dosIDTaken(ctx, in.DosID, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid(MsgInvalid)
	}
	d := &domain.Dosimeter{Status: domain.StatusRegistered}
	in.apply(d)
	d.LastLocation = d.CurrentLocation
	d.Touch(actor.ID, s.deps.now())
	if _, err := s.deps.Repos.Dosimeters.CreateDosimeter(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create dosimeter: %w", err)
	}
	return d, nil
}

func (s *DosimeterService) Create(ctx context.Context, actor *domain.User, in DosimeterInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	d, err := s.insert(ctx, actor, &in)
	if err != nil {
		return nil, err
	}
	return done(MsgDosimeterCreated, d.ToJSON()), nil
}

func (s *DosimeterService) Clone(ctx context.Context, actor *domain.User, id int64, in DosimeterInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	d, err := s.insert(ctx, actor, &in)
	if err != nil {
		return nil, err
	}
	return done(MsgDosimeterCloned, d.ToJSON()), nil
}

func (s *DosimeterService) Update(ctx context.Context, actor *domain.User, id int64, in DosimeterInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	d, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	taken, err := s.dosIDTaken(ctx, in.DosID, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid(MsgInvalid)
	}
	prevLocation := d.CurrentLocation
	in.apply(d)
	if prevLocation.String != d.CurrentLocation.String {
		d.LastLocation = prevLocation
	}
	d.Status = domain.StatusUpdated
	d.Touch(actor.ID, s.deps.now())
	if err := s.deps.Repos.Dosimeters.UpdateDosimeter(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update dosimeter: %w", err)
	}
	return done(MsgDosimeterUpdated, d.ToJSON()), nil
}

func (s *DosimeterService) Delete(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Dosimeters.GetDosimeter); err != nil {
		return nil, err
	}
	for _, id := range sel.IDs {
		if err := s.deps.Repos.Dosimeters.DeleteDosimeter(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete dosimeter %d: %w", id, err)
		}
	}
	return done(MsgDosimeterDeleted, nil), nil
}

// Generate creates count Aluminium dosimeters with the lowest free DOS ids.
func (s *DosimeterService) Generate(ctx context.Context, actor *domain.User, count int) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := listing.CheckInRange(float64(count), 1, maxGeneratedDosID); err != nil {
		return nil, err
	}

	unlock, err := s.deps.Locker.Lock(ctx, dosIDLockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to lock dos id allocation: %w", err)
	}
	defer unlock()

	all, err := s.deps.Repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list dosimeters: %w", err)
	}
	used := make([]string, len(all))
	for i, d := range all {
		used[i] = d.DosID
	}
	ids, err := equipment.NextFreeN(used, equipment.DosimeterRange, count)
	if errors.Is(err, equipment.ErrRangeExhausted) {
		return nil, invalid(MsgInvalid)
	}
	if err != nil {
		return nil, err
	}
	created := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		d := &domain.Dosimeter{DosID: id, Status: domain.StatusRegistered, DosType: domain.DosimeterTypeAluminium}
		d.Touch(actor.ID, s.deps.now())
		if _, err := s.deps.Repos.Dosimeters.CreateDosimeter(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to create dosimeter %s: %w", id, err)
		}
		created = append(created, d.ToJSON())
	}
	s.deps.Logger.Info("Dosimeter ids generated", zap.Int("count", len(ids)), zap.Strings("dos_ids", ids))
	return done(MsgDosimetersCreated, created), nil
}

// AttachBox puts dosimeters into the box with the given box id; "None" or "" takes them out.
func (s *DosimeterService) AttachBox(ctx context.Context, actor *domain.User, sel Selection, boxID string) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if len(sel.IDs) == 0 {
		return nil, invalid(MsgNoDosimetersForBox)
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Dosimeters.GetDosimeter); err != nil {
		return nil, err
	}
	dosimeters, err := s.deps.Repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{IDs: sel.IDs})
	if err != nil {
		return nil, fmt.Errorf("failed to list dosimeters: %w", err)
	}
	for _, d := range dosimeters {
		if !equipment.Is(d.DosID, equipment.KindDosimeter) {
			return nil, invalid(MsgDosimetersInvalidDosID)
		}
	}
	var box *domain.Box
	if boxID != "" && boxID != "None" {
		b, err := s.deps.Repos.Boxes.GetBoxByBoxID(ctx, boxID)
		if isNoRows(err) {
			return nil, invalid(MsgBoxDoesNotExist)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get box: %w", err)
		}
		box = b
	}
	for _, d := range dosimeters {
		if box != nil {
			d.BoxID = domain.NullID(box.ID)
		} else {
			d.BoxID.Valid = false
		}
		d.Touch(actor.ID, s.deps.now())
		if err := s.deps.Repos.Dosimeters.UpdateDosimeter(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to attach dosimeter %d: %w", d.ID, err)
		}
	}
	return done(MsgSuccess, nil), nil
}
