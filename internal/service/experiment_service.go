package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"irrad-data/internal/domain"
	"irrad-data/internal/listing"
	"irrad-data/internal/notify"
	"irrad-data/internal/occupancy"
	"irrad-data/internal/repository"
)

const availabilityLayout = "2006-01-02"

// ExperimentService manages experiments, their category, fluences, materials and members.
type ExperimentService struct {
	deps  *Deps
	perms *Permissions
}

func NewExperimentService(d *Deps, perms *Permissions) *ExperimentService {
	return &ExperimentService{deps: d, perms: perms}
}

// CategoryInput is the category part of the experiment form.
type CategoryInput struct {
	Kind            string `json:"category"`
	Area5x5         bool   `json:"irradiation_area_5x5"`
	Area10x10       bool   `json:"irradiation_area_10x10"`
	Area20x20       bool   `json:"irradiation_area_20x20"`
	CategoryType    string `json:"category_type"`
	IrradiationArea string `json:"irradiation_area"`
	ModusOperandi   string `json:"modus_operandi"`
}

// ExperimentInput is the experiment form.
type ExperimentInput struct {
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	CERNExperiment   string        `json:"cern_experiment"`
	ResponsibleEmail string        `json:"responsible"`
	EmergencyPhone   string        `json:"emergency_phone"`
	Availability     string        `json:"availability"`
	Constraints      string        `json:"constraints"`
	IrradiationType  string        `json:"irradiation_type"`
	NumberSamples    int           `json:"number_samples"`
	Comments         string        `json:"comments"`
	RegulationsFlag  bool          `json:"regulations_flag"`
	PublicExperiment bool          `json:"public_experiment"`
	Category         CategoryInput `json:"category"`
	ReqFluences      []string      `json:"req_fluences"`
	Materials        []string      `json:"materials"`
}

// validate checks the form in the order the alerts are given: required fields,
// category, fluences, materials. Title uniqueness is checked by the caller.
func (in *ExperimentInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || strings.TrimSpace(in.Description) == "" || strings.TrimSpace(in.CERNExperiment) == "" ||
		strings.TrimSpace(in.EmergencyPhone) == "" || in.Availability == "" || in.IrradiationType == "" ||
		in.NumberSamples <= 0 {
		return invalid(MsgMissingFields)
	}
	if _, err := time.Parse(availabilityLayout, in.Availability); err != nil {
		return invalid(MsgMissingFields)
	}
	return in.validateDetails()
}

func (in *ExperimentInput) validateDetails() error {
	switch {
	case in.Category.Kind == "":
		return invalid(MsgNoCategory)
	case !domain.Contains(domain.Categories, in.Category.Kind):
		return invalid(MsgInvalidCategory)
	}
	if in.Category.Kind == domain.CategoryPassiveStandard {
		if in.category().SelectedAreas() != 1 {
			return invalid(MsgMultipleAreas)
		}
	} else if in.Category.CategoryType == "" || in.Category.IrradiationArea == "" {
		return invalid(MsgInvalidCategory)
	}
	if len(in.ReqFluences) == 0 {
		return invalid(MsgInvalidFluence)
	}
	for _, f := range in.ReqFluences {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil || v <= 0 {
			return invalid(MsgInvalidFluence)
		}
	}
	if len(in.Materials) == 0 {
		return invalid(MsgInvalidMaterial)
	}
	for _, m := range in.Materials {
		if strings.TrimSpace(m) == "" {
			return invalid(MsgInvalidMaterial)
		}
	}
	return nil
}

func (in *ExperimentInput) category() *domain.ExperimentCategory {
	c := &domain.ExperimentCategory{Kind: in.Category.Kind}
	if c.Kind == domain.CategoryPassiveStandard {
		c.Area5x5, c.Area10x10, c.Area20x20 = in.Category.Area5x5, in.Category.Area10x10, in.Category.Area20x20
	} else {
		c.CategoryType = in.Category.CategoryType
		c.IrradiationArea = in.Category.IrradiationArea
		c.ModusOperandi = in.Category.ModusOperandi
	}
	return c
}

func (in *ExperimentInput) apply(e *domain.Experiment) {
	avail, _ := time.Parse(availabilityLayout, in.Availability)
	e.Title = in.Title
	e.Description = in.Description
	e.CERNExperiment = in.CERNExperiment
	e.EmergencyPhone = in.EmergencyPhone
	e.Availability = domain.NullTime(avail)
	e.Constraints = in.Constraints
	e.IrradiationType = in.IrradiationType
	e.NumberSamples = in.NumberSamples
	e.Comments = domain.NullString(in.Comments)
	e.RegulationsFlag = in.RegulationsFlag
	e.PublicExperiment = in.PublicExperiment
	e.Category = in.Category.Kind
}

// ExperimentTotals sums the figures of a list of experiments.
type ExperimentTotals struct {
	RegisteredSamples  int     `json:"total_registered_samples"`
	DeclaredSamples    int     `json:"total_declared_samples"`
	RadiationLengthOcc float64 `json:"total_radiation_length_occupancy"`
	NuCollLengthOcc    float64 `json:"total_nu_coll_length_occupancy"`
	NuIntLengthOcc     float64 `json:"total_nu_int_length_occupancy"`
}

func totalsOf(exps []*domain.Experiment) ExperimentTotals {
	var t ExperimentTotals
	for _, e := range exps {
		t.RegisteredSamples += e.NumberRegisteredSamples
		t.DeclaredSamples += e.NumberSamples
		t.RadiationLengthOcc += e.RadiationLengthOcc
		t.NuCollLengthOcc += e.NuCollLengthOcc
		t.NuIntLengthOcc += e.NuIntLengthOcc
	}
	return t
}

// ExperimentList is a page of experiments plus totals over the whole filtered list.
type ExperimentList struct {
	listing.Page[map[string]any]
	Totals ExperimentTotals `json:"totals"`
}

func experimentFields(e *domain.Experiment) []string {
	return []string{e.Title, e.Description, e.CERNExperiment, e.Category, e.Status, e.IrradiationType, e.Visibility()}
}

func experimentList(exps []*domain.Experiment, req ListRequest) *ExperimentList {
	exps = listing.Filter(exps, req.Query, experimentFields)
	rows := jsonItems(exps)
	return &ExperimentList{Page: pageRows(rows, req), Totals: totalsOf(exps)}
}

// List shows the experiments the actor can write to; admins see all of them.
func (s *ExperimentService) List(ctx context.Context, actor *domain.User, req ListRequest) (*ExperimentList, error) {
	if err := s.perms.Require(ctx, actor, PermLogin); err != nil {
		return nil, err
	}
	var (
		exps []*domain.Experiment
		err  error
	)
	if actor.IsAdmin() {
		exps, err = s.deps.Repos.Experiments.ListExperiments(ctx, repository.ExperimentsFilter{})
	} else {
		exps, err = s.perms.WriteAuthorised(ctx, actor)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	return experimentList(exps, req), nil
}

// ListForUser shows an admin the experiments a given user is involved in.
func (s *ExperimentService) ListForUser(ctx context.Context, actor *domain.User, userID int64, req ListRequest) (*ExperimentList, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	u, err := s.deps.Repos.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	exps, err := s.perms.WriteAuthorised(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	return experimentList(exps, req), nil
}

func (s *ExperimentService) Shared(ctx context.Context, actor *domain.User, req ListRequest) (*ExperimentList, error) {
	if err := s.perms.Require(ctx, actor, PermLogin); err != nil {
		return nil, err
	}
	exps, err := s.perms.Shared(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared experiments: %w", err)
	}
	return experimentList(exps, req), nil
}

// ExperimentDetails is everything shown on the experiment page.
type ExperimentDetails struct {
	Experiment  map[string]any   `json:"experiment"`
	Responsible map[string]any   `json:"responsible,omitempty"`
	Category    map[string]any   `json:"category,omitempty"`
	ReqFluences []string         `json:"req_fluences"`
	Materials   []string         `json:"materials"`
	Users       []map[string]any `json:"users"`
	Occupancy   occupancy.Values `json:"occupancy"`
}

func (s *ExperimentService) get(ctx context.Context, id int64) (*domain.Experiment, error) {
	e, err := s.deps.Repos.Experiments.GetExperiment(ctx, id)
	if err != nil {
		return nil, notFound(err, "experiment", id)
	}
	return e, nil
}

func (s *ExperimentService) Details(ctx context.Context, actor *domain.User, id int64) (*ExperimentDetails, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperimentDetails, id); err != nil {
		return nil, err
	}
	repo := s.deps.Repos.Experiments
	d := &ExperimentDetails{Experiment: e.ToJSON(), ReqFluences: []string{}, Materials: []string{}}
	if e.ResponsibleID.Valid {
		if u, err := s.deps.Repos.Users.GetUser(ctx, e.ResponsibleID.Int64); err == nil {
			d.Responsible = u.ToJSON()
		}
	}
	if c, err := repo.GetCategory(ctx, id); err == nil {
		d.Category = c.ToJSON()
	} else if !isNoRows(err) {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	fluences, err := repo.ListReqFluences(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list fluences: %w", err)
	}
	for _, f := range fluences {
		d.ReqFluences = append(d.ReqFluences, f.ReqFluence)
	}
	materials, err := repo.ListMaterials(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	for _, m := range materials {
		d.Materials = append(d.Materials, m.Material)
	}
	members, err := repo.ListMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	d.Users = jsonItems(members)
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{ExperimentID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	d.Occupancy = occupancy.FromSamples(samples)
	return d, nil
}

// responsible resolves the responsible email of the form, registering unknown users.
// An empty email makes the actor responsible.
func (s *ExperimentService) responsible(ctx context.Context, actor *domain.User, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || email == actor.Email {
		return actor, nil
	}
	u, err := s.deps.Repos.Users.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !strings.Contains(email, "@") {
		return nil, invalid(MsgMissingFields)
	}
	u = &domain.User{Email: email, Role: domain.RoleUser}
	if _, err := s.deps.Repos.Users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *ExperimentService) titleTaken(ctx context.Context, title string, exceptID int64) (bool, error) {
	e, err := s.deps.Repos.Experiments.GetExperimentByTitle(ctx, title)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check title: %w", err)
	}
	return e.ID != exceptID, nil
}

// saveDetails stores category, fluences and materials of e from in.
func (s *ExperimentService) saveDetails(ctx context.Context, e *domain.Experiment, in *ExperimentInput) error {
	repo := s.deps.Repos.Experiments
	c := in.category()
	c.ExperimentID = e.ID
	if err := repo.SaveCategory(ctx, c); err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	existing, err := repo.ListReqFluences(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("failed to list fluences: %w", err)
	}
	fluences := make([]*domain.ReqFluence, len(in.ReqFluences))
	for i, f := range in.ReqFluences {
		fluences[i] = &domain.ReqFluence{ExperimentID: e.ID, ReqFluence: strings.TrimSpace(f)}
		if i < len(existing) {
			fluences[i].ID = existing[i].ID
		}
	}
	if err := repo.SaveReqFluences(ctx, e.ID, fluences); err != nil {
		return fmt.Errorf("failed to save fluences: %w", err)
	}
	existingMat, err := repo.ListMaterials(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("failed to list materials: %w", err)
	}
	materials := make([]*domain.Material, len(in.Materials))
	for i, m := range in.Materials {
		materials[i] = &domain.Material{ExperimentID: e.ID, Material: strings.TrimSpace(m)}
		if i < len(existingMat) {
			materials[i].ID = existingMat[i].ID
		}
	}
	if err := repo.SaveMaterials(ctx, e.ID, materials); err != nil {
		return fmt.Errorf("failed to save materials: %w", err)
	}
	return nil
}

// Create registers a new experiment with status Registered.
func (s *ExperimentService) Create(ctx context.Context, actor *domain.User, in ExperimentInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermLogin); err != nil {
		return nil, err
	}
	e, err := s.insert(ctx, actor, &in)
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("Experiment registered", zap.Int64("experiment_id", e.ID), zap.String("title", e.Title), zap.String("by", actor.Email))
	return done(MsgExperimentCreated, e.ToJSON()), nil
}

func (s *ExperimentService) insert(ctx context.Context, actor *domain.User, in *ExperimentInput) (*domain.Experiment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	taken, err := s.titleTaken(ctx, in.Title, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid(MsgTitleNotUnique)
	}
	resp, err := s.responsible(ctx, actor, in.ResponsibleEmail)
	if err != nil {
		return nil, err
	}
	e := &domain.Experiment{}
	in.apply(e)
	e.Status = domain.StatusRegistered
	e.ResponsibleID = domain.NullID(resp.ID)
	e.NumberUsers = 1
	e.Touch(actor.ID, s.deps.now())
	if _, err := s.deps.Repos.Experiments.CreateExperiment(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create experiment: %w", err)
	}
	if err := s.saveDetails(ctx, e, in); err != nil {
		return nil, err
	}
	return e, nil
}

// Update edits an experiment that is not completed yet.
func (s *ExperimentService) Update(ctx context.Context, actor *domain.User, id int64, in ExperimentInput) (*Outcome, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, id); err != nil {
		return nil, err
	}
	if strings.EqualFold(e.Status, domain.StatusCompleted) {
		return nil, invalid(MsgExperimentCompleted)
	}
	if err := s.edit(ctx, actor, e, &in); err != nil {
		return nil, err
	}
	return done(MsgExperimentUpdated, e.ToJSON()), nil
}

func (s *ExperimentService) edit(ctx context.Context, actor *domain.User, e *domain.Experiment, in *ExperimentInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	taken, err := s.titleTaken(ctx, in.Title, e.ID)
	if err != nil {
		return err
	}
	if taken {
		return invalid(MsgTitleNotUnique)
	}
	if in.ResponsibleEmail != "" {
		resp, err := s.responsible(ctx, actor, in.ResponsibleEmail)
		if err != nil {
			return err
		}
		e.ResponsibleID = domain.NullID(resp.ID)
	}
	in.apply(e)
	e.Touch(actor.ID, s.deps.now())
	if err := s.deps.Repos.Experiments.UpdateExperiment(ctx, e); err != nil {
		return fmt.Errorf("failed to update experiment: %w", err)
	}
	return s.saveDetails(ctx, e, in)
}

// Clone registers a copy of experiment id under a new title, keeping its members.
func (s *ExperimentService) Clone(ctx context.Context, actor *domain.User, id int64, in ExperimentInput) (*Outcome, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, id); err != nil {
		return nil, err
	}
	e, err := s.insert(ctx, actor, &in)
	if err != nil {
		return nil, err
	}
	members, err := s.deps.Repos.Experiments.ListMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	for _, m := range members {
		if err := s.deps.Repos.Experiments.AddMember(ctx, e.ID, m.ID); err != nil {
			return nil, fmt.Errorf("failed to copy member %d: %w", m.ID, err)
		}
	}
	if err := s.RecomputeTotals(ctx, e.ID); err != nil {
		return nil, err
	}
	return done(MsgExperimentCloned, e.ToJSON()), nil
}

// Validate marks an experiment Validated, optionally saving a reviewed form first.
func (s *ExperimentService) Validate(ctx context.Context, actor *domain.User, id int64, in *ExperimentInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(e.Status, domain.StatusCompleted) {
		return nil, invalid(MsgExperimentCompleted)
	}
	if in != nil {
		if err := s.edit(ctx, actor, e, in); err != nil {
			return nil, err
		}
	}
	e.Status = domain.StatusValidated
	e.Touch(actor.ID, s.deps.now())
	if err := s.deps.Repos.Experiments.UpdateExperiment(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to validate experiment: %w", err)
	}
	s.notify(ctx, actor, e, notify.KindExperimentValidated)
	return done(MsgExperimentValidated, e.ToJSON()), nil
}

// UpdateStatus sets the status of several experiments; completing one notifies its users.
func (s *ExperimentService) UpdateStatus(ctx context.Context, actor *domain.User, sel Selection, status string) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Experiments.GetExperiment); err != nil {
		return nil, err
	}
	if !domain.Contains(domain.ExperimentStatuses, status) {
		return nil, invalid(MsgInvalid)
	}
	for _, id := range sel.IDs {
		e, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		e.Status = status
		e.Touch(actor.ID, s.deps.now())
		if err := s.deps.Repos.Experiments.UpdateExperiment(ctx, e); err != nil {
			return nil, fmt.Errorf("failed to update experiment %d: %w", id, err)
		}
		if status == domain.StatusCompleted {
			s.notify(ctx, actor, e, notify.KindExperimentCompleted)
		}
	}
	return done(MsgSuccess, nil), nil
}

func (s *ExperimentService) UpdateComment(ctx context.Context, actor *domain.User, id int64, comment string) (*Outcome, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, id); err != nil {
		return nil, err
	}
	e.Comments = domain.NullString(comment)
	e.Touch(actor.ID, s.deps.now())
	if err := s.deps.Repos.Experiments.UpdateExperiment(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return done(MsgSuccess, e.ToJSON()), nil
}

// SetVisibility makes the selected experiments Public or Private.
func (s *ExperimentService) SetVisibility(ctx context.Context, actor *domain.User, sel Selection, visibility string) (*Outcome, error) {
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Experiments.GetExperiment); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, sel.IDs...); err != nil {
		return nil, err
	}
	if visibility != domain.VisibilityPublic && visibility != domain.VisibilityPrivate {
		return nil, invalid(MsgInvalid)
	}
	for _, id := range sel.IDs {
		e, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		e.PublicExperiment = visibility == domain.VisibilityPublic
		e.Touch(actor.ID, s.deps.now())
		if err := s.deps.Repos.Experiments.UpdateExperiment(ctx, e); err != nil {
			return nil, fmt.Errorf("failed to update visibility of %d: %w", id, err)
		}
	}
	return done(MsgSuccess, nil), nil
}

func (s *ExperimentService) Delete(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Experiments.GetExperiment); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, sel.IDs...); err != nil {
		return nil, err
	}
	for _, id := range sel.IDs {
		e, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		// recipients have to be collected before the members are gone
		s.notify(ctx, actor, e, notify.KindExperimentDeleted)
		if err := s.deps.Repos.Experiments.DeleteExperiment(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete experiment %d: %w", id, err)
		}
	}
	return done(MsgExperimentDeleted, nil), nil
}

// RequireValidated rejects non-admin work on experiments still waiting for validation.
func (s *ExperimentService) RequireValidated(ctx context.Context, actor *domain.User, id int64) error {
	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if e.Status == domain.StatusRegistered && !actor.IsAdmin() {
		return invalid(MsgExperimentNotValidated)
	}
	return nil
}

// Users lists the members of an experiment, responsible included.
func (s *ExperimentService) Users(ctx context.Context, actor *domain.User, id int64, req ListRequest) (*listing.Page[map[string]any], error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, id); err != nil {
		return nil, err
	}
	users, err := s.deps.Repos.Experiments.ListMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if e.ResponsibleID.Valid {
		if u, err := s.deps.Repos.Users.GetUser(ctx, e.ResponsibleID.Int64); err == nil {
			users = append(users, u)
		}
	}
	p := page(users, req, userFields)
	return &p, nil
}

// AddUser adds a member by email, registering the user when unknown.
func (s *ExperimentService) AddUser(ctx context.Context, actor *domain.User, id int64, email string) (*Outcome, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, id); err != nil {
		return nil, err
	}
	if err := s.RequireValidated(ctx, actor, id); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, invalid(MsgInvalid)
	}
	msg := MsgUserAdded
	u, err := s.deps.Repos.Users.GetUserByEmail(ctx, email)
	if isNoRows(err) {
		u = &domain.User{Email: email, Role: domain.RoleUser}
		if _, err := s.deps.Repos.Users.CreateUser(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		msg = MsgUserCreated
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.deps.Repos.Experiments.AddMember(ctx, id, u.ID); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	if err := s.RecomputeTotals(ctx, id); err != nil {
		return nil, err
	}
	return done(msg, u.ToJSON()), nil
}

// RemoveUsers removes members; the responsible cannot be removed.
func (s *ExperimentService) RemoveUsers(ctx context.Context, actor *domain.User, id int64, sel Selection) (*Outcome, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, id); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Users.GetUser); err != nil {
		return nil, err
	}
	for _, uid := range sel.IDs {
		if e.ResponsibleID.Valid && e.ResponsibleID.Int64 == uid {
			return nil, invalid(MsgResponsibleNotRemovable)
		}
	}
	for _, uid := range sel.IDs {
		if err := s.deps.Repos.Experiments.RemoveMember(ctx, id, uid); err != nil {
			return nil, fmt.Errorf("failed to remove member %d: %w", uid, err)
		}
	}
	if err := s.RecomputeTotals(ctx, id); err != nil {
		return nil, err
	}
	return done(MsgUserRemoved, nil), nil
}

// ArchiveRow is a sample that was moved out of the experiment.
type ArchiveRow struct {
	Sample    map[string]any `json:"sample"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
}

func (s *ExperimentService) Archive(ctx context.Context, actor *domain.User, id int64) ([]ArchiveRow, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.perms.Require(ctx, actor, PermExperiment, id); err != nil {
		return nil, err
	}
	rows, err := s.deps.Repos.Experiments.ListArchive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	out := make([]ArchiveRow, 0, len(rows))
	for _, a := range rows {
		sm, err := s.deps.Repos.Samples.GetSample(ctx, a.SampleID)
		if err != nil {
			s.deps.Logger.Warn("Archived sample missing", zap.Int64("sample_id", a.SampleID), zap.Error(err))
			continue
		}
		r := ArchiveRow{Sample: sm.ToJSON()}
		if a.Timestamp.Valid {
			ts := a.Timestamp.Time
			r.Timestamp = &ts
		}
		out = append(out, r)
	}
	return out, nil
}

// RecomputeTotals refreshes the sample count, user count and occupancy sums of an experiment.
func (s *ExperimentService) RecomputeTotals(ctx context.Context, id int64) error {
	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{ExperimentID: id})
	if err != nil {
		return fmt.Errorf("failed to list samples: %w", err)
	}
	members, err := s.deps.Repos.Experiments.ListMembers(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	occ := occupancy.FromSamples(samples)
	e.NumberRegisteredSamples = len(samples)
	e.NumberUsers = len(members) + 1
	e.RadiationLengthOcc = occ.RadiationLength
	e.NuCollLengthOcc = occ.NuCollLength
	e.NuIntLengthOcc = occ.NuIntLength
	if err := s.deps.Repos.Experiments.UpdateExperiment(ctx, e); err != nil {
		return fmt.Errorf("failed to update experiment totals: %w", err)
	}
	return nil
}

// notify tells the responsible and members about e. Failures are logged only.
func (s *ExperimentService) notify(ctx context.Context, actor *domain.User, e *domain.Experiment, kind notify.Kind) {
	var recipients []string
	if e.ResponsibleID.Valid {
		if u, err := s.deps.Repos.Users.GetUser(ctx, e.ResponsibleID.Int64); err == nil {
			recipients = append(recipients, u.Email)
		}
	}
	if members, err := s.deps.Repos.Experiments.ListMembers(ctx, e.ID); err == nil {
		for _, m := range members {
			recipients = append(recipients, m.Email)
		}
	}
	ev := notify.Event{
		Kind:         kind,
		ExperimentID: e.ID,
		Title:        e.Title,
		Recipients:   recipients,
		Actor:        actor.Email,
		At:           s.deps.now(),
	}
	if err := s.deps.Notifier.Notify(ctx, ev); err != nil {
		s.deps.Logger.Warn("Failed to publish notification",
			zap.String("kind", string(kind)), zap.Int64("experiment_id", e.ID), zap.Error(err))
	}
}
