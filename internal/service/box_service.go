package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"irrad-data/internal/domain"
	"irrad-data/internal/equipment"
	"irrad-data/internal/listing"
	"irrad-data/internal/repository"
)

const (
	boxItemSample    = "sample"
	boxItemDosimeter = "dosimeter"
	boxIDLockKey     = "box_id"
)

type BoxService struct {
	deps  *Deps
	perms *Permissions
}

func NewBoxService(d *Deps, perms *Permissions) *BoxService {
	return &BoxService{deps: d, perms: perms}
}

type BoxInput struct {
	BoxID           string  `json:"box_id"`
	Description     string  `json:"description"`
	ResponsibleID   int64   `json:"responsible_id"`
	CurrentLocation string  `json:"current_location"`
	Length          float64 `json:"length"`
	Height          float64 `json:"height"`
	Width           float64 `json:"width"`
	Weight          float64 `json:"weight"`
}

func (in *BoxInput) validate() error {
	in.BoxID = strings.TrimSpace(in.BoxID)
	if equipment.Type(in.BoxID, equipment.Root) != equipment.KindBox {
		return invalid(MsgIncorrectBoxIDFormat)
	}
	for _, v := range []float64{in.Length, in.Height, in.Width, in.Weight} {
		if err := listing.CheckInRange(v, 0); err != nil {
			return err
		}
	}
	return nil
}

func (in *BoxInput) apply(b *domain.Box) {
	b.BoxID = in.BoxID
	b.Description = domain.NullString(in.Description)
	b.ResponsibleID = domain.NullID(in.ResponsibleID)
	b.CurrentLocation = in.CurrentLocation
	b.Length = in.Length
	b.Height = in.Height
	b.Width = in.Width
	b.Weight = in.Weight
}

func (s *BoxService) get(ctx context.Context, id int64) (*domain.Box, error) {
	b, err := s.deps.Repos.Boxes.GetBox(ctx, id)
	if err != nil {
		return nil, notFound(err, "box", id)
	}
	return b, nil
}

func (s *BoxService) boxIDTaken(ctx context.Context, boxID string, exceptID int64) (bool, error) {
	b, err := s.deps.Repos.Boxes.GetBoxByBoxID(ctx, boxID)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check box id: %w", err)
	}
	return b.ID != exceptID, nil
}

func boxFields(b *domain.Box) []string {
	return []string{b.BoxID, b.Description.String, b.CurrentLocation, b.LastLocation}
}

func (s *BoxService) List(ctx context.Context, actor *domain.User, req ListRequest) (*listing.Page[map[string]any], error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	boxes, err := s.deps.Repos.Boxes.ListBoxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list boxes: %w", err)
	}
	p := page(boxes, req, boxFields)
	return &p, nil
}

type BoxDetails struct {
	Box   map[string]any   `json:"box"`
	Items []domain.BoxItem `json:"items"`
}

// Details is open to users with a sample of theirs in the box.
func (s *BoxService) Details(ctx context.Context, actor *domain.User, id int64) (*BoxDetails, error) {
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermBoxDetails, id); err != nil {
		return nil, err
	}
	items, err := s.items(ctx, b)
	if err != nil {
		return nil, err
	}
	return &BoxDetails{Box: b.ToJSON(), Items: items}, nil
}

// NextID is the lowest free box id.
func (s *BoxService) NextID(ctx context.Context, actor *domain.User) (string, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return "", err
	}
	return s.nextID(ctx)
}

func (s *BoxService) nextID(ctx context.Context) (string, error) {
	boxes, err := s.deps.Repos.Boxes.ListBoxes(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list boxes: %w", err)
	}
	used := make([]string, len(boxes))
	for i, b := range boxes {
		used[i] = b.BoxID
	}
	id, err := equipment.NextFree(used, equipment.BoxRange)
	if errors.Is(err, equipment.ErrRangeExhausted) {
		return "", invalid(MsgInvalid)
	}
	return id, err
}

// insert creates a box; an empty box id takes the next free one.
func (s *BoxService) insert(ctx context.Context, actor *domain.User, in *BoxInput) (*domain.Box, error) {
	if strings.TrimSpace(in.BoxID) == "" {
		unlock, err := s.deps.Locker.Lock(ctx, boxIDLockKey)
		if err != nil {
			return nil, fmt.Errorf("failed to lock box id allocation: %w", err)
		}
		defer unlock()
		if in.BoxID, err = s.nextID(ctx); err != nil {
			return nil, err
		}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	taken, err := s.boxIDTaken(ctx, in.BoxID, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid(MsgInvalid)
	}
	b := &domain.Box{}
	in.apply(b)
	b.LastLocation = b.CurrentLocation
	b.Touch(actor.ID, s.deps.now())
	if _, err := s.deps.Repos.Boxes.CreateBox(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create box: %w", err)
	}
	return b, nil
}

func (s *BoxService) Create(ctx context.Context, actor *domain.User, in BoxInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	b, err := s.insert(ctx, actor, &in)
	if err != nil {
		return nil, err
	}
	return done(MsgBoxCreated, b.ToJSON()), nil
}

func (s *BoxService) Clone(ctx context.Context, actor *domain.User, id int64, in BoxInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	b, err := s.insert(ctx, actor, &in)
	if err != nil {
		return nil, err
	}
	return done(MsgBoxCloned, b.ToJSON()), nil
}

func (s *BoxService) Update(ctx context.Context, actor *domain.User, id int64, in BoxInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	taken, err := s.boxIDTaken(ctx, in.BoxID, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid(MsgInvalid)
	}
	prev := b.CurrentLocation
	in.apply(b)
	if prev != b.CurrentLocation {
		b.LastLocation = prev
	}
	b.Touch(actor.ID, s.deps.now())
	if err := s.deps.Repos.Boxes.UpdateBox(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to update box: %w", err)
	}
	return done(MsgBoxUpdated, b.ToJSON()), nil
}

func (s *BoxService) Delete(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Boxes.GetBox); err != nil {
		return nil, err
	}
	for _, id := range sel.IDs {
		if err := s.deps.Repos.Boxes.DeleteBox(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete box %d: %w", id, err)
		}
	}
	return done(MsgBoxDeleted, nil), nil
}

// items lists the samples and dosimeters stored in b.
func (s *BoxService) items(ctx context.Context, b *domain.Box) ([]domain.BoxItem, error) {
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{BoxID: b.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list box samples: %w", err)
	}
	dosimeters, err := s.deps.Repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{BoxID: b.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list box dosimeters: %w", err)
	}
	items := make([]domain.BoxItem, 0, len(samples)+len(dosimeters))
	for _, sm := range samples {
		items = append(items, domain.BoxItem{ItemID: sm.ID, ID: sm.SetID.String, Type: boxItemSample, Name: sm.Name, Weight: sm.Weight})
	}
	for _, d := range dosimeters {
		items = append(items, domain.BoxItem{ItemID: d.ID, ID: d.DosID, Type: boxItemDosimeter, Weight: d.Weight})
	}
	return items, nil
}

func boxItemFields(it domain.BoxItem) []string { return []string{it.ID, it.Type} }

// Items lists the content of a box, searchable by equipment id or type.
func (s *BoxService) Items(ctx context.Context, actor *domain.User, id int64, req ListRequest) (*listing.Page[domain.BoxItem], error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx, b)
	if err != nil {
		return nil, err
	}
	p := pageRows(listing.Filter(items, req.Query, boxItemFields), req)
	return &p, nil
}

// resolved is an equipment id matched to its stored sample or dosimeter.
type resolved struct {
	sample    *domain.Sample
	dosimeter *domain.Dosimeter
}

func (s *BoxService) resolve(ctx context.Context, itemID string) (*resolved, error) {
	switch equipment.Type(itemID, equipment.Any) {
	case equipment.KindSample:
		sm, err := sampleBySetID(ctx, s.deps.Repos.Samples, itemID)
		if err != nil || sm == nil {
			return nil, err
		}
		return &resolved{sample: sm}, nil
	case equipment.KindDosimeter:
		d, err := s.deps.Repos.Dosimeters.GetDosimeterByDosID(ctx, itemID)
		if isNoRows(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get dosimeter: %w", err)
		}
		return &resolved{dosimeter: d}, nil
	}
	return nil, nil
}

// sampleBySetID returns nil when no sample carries setID.
func sampleBySetID(ctx context.Context, repo repository.SamplesRepository, setID string) (*domain.Sample, error) {
	samples, err := repo.ListSamples(ctx, repository.SamplesFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	for _, sm := range samples {
		if sm.SetID.Valid && sm.SetID.String == setID {
			return sm, nil
		}
	}
	return nil, nil
}

// place moves r into boxID; an invalid boxID takes it out of any box.
func (s *BoxService) place(ctx context.Context, actor *domain.User, r *resolved, boxID sql.NullInt64) error {
	now := s.deps.now()
	if r.sample != nil {
		r.sample.BoxID = boxID
		r.sample.Touch(actor.ID, now)
		return s.deps.Repos.Samples.UpdateSample(ctx, r.sample)
	}
	r.dosimeter.BoxID = boxID
	r.dosimeter.Touch(actor.ID, now)
	return s.deps.Repos.Dosimeters.UpdateDosimeter(ctx, r.dosimeter)
}

// AddItems puts the equipment with the given SET or DOS ids into box id.
func (s *BoxService) AddItems(ctx context.Context, actor *domain.User, id int64, itemIDs []string) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	b, err := s.deps.Repos.Boxes.GetBox(ctx, id)
	if isNoRows(err) {
		return nil, invalid(MsgBoxNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get box: %w", err)
	}
	if len(itemIDs) == 0 {
		return nil, invalid(MsgInvalid)
	}
	found := make([]*resolved, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		r, err := s.resolve(ctx, strings.TrimSpace(itemID))
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, invalid(MsgInvalid)
		}
		found = append(found, r)
	}
	for _, r := range found {
		if err := s.place(ctx, actor, r, domain.NullID(b.ID)); err != nil {
			return nil, fmt.Errorf("failed to add item to box: %w", err)
		}
	}
	return done(MsgBoxItemsAdded, nil), nil
}

// RemoveItems takes the equipment with the given ids out of box id.
func (s *BoxService) RemoveItems(ctx context.Context, actor *domain.User, id int64, itemIDs []string) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(itemIDs) == 0 {
		return nil, invalid(MsgInvalidItemID)
	}
	found := make([]*resolved, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		r, err := s.resolve(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if r == nil || !r.inBox(b.ID) {
			return nil, invalid(MsgInvalidItemID)
		}
		found = append(found, r)
	}
	for _, r := range found {
		if err := s.place(ctx, actor, r, sql.NullInt64{}); err != nil {
			return nil, fmt.Errorf("failed to remove item from box: %w", err)
		}
	}
	return done(MsgBoxItemRemoved, nil), nil
}

func (r *resolved) inBox(boxID int64) bool {
	if r.sample != nil {
		return r.sample.BoxID.Valid && r.sample.BoxID.Int64 == boxID
	}
	return r.dosimeter.BoxID.Valid && r.dosimeter.BoxID.Int64 == boxID
}
