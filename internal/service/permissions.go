package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"irrad-data/internal/domain"
	"irrad-data/internal/repository"
)

// Perm names a permission checked by Require.
type Perm string

const (
	PermAdmin             Perm = "admin"
	PermLogin             Perm = "login"
	PermExperiment        Perm = "experiment"
	PermExperimentSamples Perm = "experiment_samples"
	PermSample            Perm = "sample"
	PermExperimentDetails Perm = "experiment_details"
	PermBoxDetails        Perm = "box_details"
)

// Permissions decides what a user may read and write.
type Permissions struct {
	repos *repository.Repos
}

func NewPermissions(repos *repository.Repos) *Permissions {
	return &Permissions{repos: repos}
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// Require returns ErrPermissionDenied unless user holds perm on every id.
// Admins hold every permission; login only needs a user.
func (p *Permissions) Require(ctx context.Context, user *domain.User, perm Perm, ids ...int64) error {
	if user == nil {
		return ErrPermissionDenied
	}
	if user.IsAdmin() || perm == PermLogin {
		return nil
	}
	if perm == PermAdmin {
		return ErrPermissionDenied
	}
	for _, id := range ids {
		ok, err := p.allowed(ctx, user, perm, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s %d", ErrPermissionDenied, perm, id)
		}
	}
	return nil
}

func (p *Permissions) allowed(ctx context.Context, user *domain.User, perm Perm, id int64) (bool, error) {
	switch perm {
	case PermExperiment:
		return p.involved(ctx, user, id)
	case PermExperimentSamples:
		ok, err := p.involved(ctx, user, id)
		if !ok || err != nil {
			return false, err
		}
		e, err := p.repos.Experiments.GetExperiment(ctx, id)
		if err != nil {
			return false, err
		}
		return strings.ToLower(e.Status) != "registered", nil
	case PermSample:
		s, err := p.repos.Samples.GetSample(ctx, id)
		if isNoRows(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !s.ExperimentID.Valid {
			return false, nil
		}
		return p.involved(ctx, user, s.ExperimentID.Int64)
	case PermExperimentDetails:
		exps, err := p.ReadAuthorised(ctx, user)
		if err != nil {
			return false, err
		}
		return containsExperiment(exps, id), nil
	case PermBoxDetails:
		samples, err := p.repos.Samples.ListSamples(ctx, repository.SamplesFilter{BoxID: id})
		if err != nil {
			return false, err
		}
		writable, err := p.WriteAuthorised(ctx, user)
		if err != nil {
			return false, err
		}
		for _, s := range samples {
			if s.ExperimentID.Valid && containsExperiment(writable, s.ExperimentID.Int64) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

// involved reports whether user is the responsible or a member of the experiment.
func (p *Permissions) involved(ctx context.Context, user *domain.User, experimentID int64) (bool, error) {
	e, err := p.repos.Experiments.GetExperiment(ctx, experimentID)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if e.ResponsibleID.Valid && e.ResponsibleID.Int64 == user.ID {
		return true, nil
	}
	members, err := p.repos.Experiments.ListMembers(ctx, experimentID)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.ID == user.ID {
			return true, nil
		}
	}
	return false, nil
}

// WriteAuthorised lists the experiments user is responsible for or a member of,
// newest first.
func (p *Permissions) WriteAuthorised(ctx context.Context, user *domain.User) ([]*domain.Experiment, error) {
	if user == nil {
		return nil, nil
	}
	return p.repos.Experiments.ListExperiments(ctx, repository.ExperimentsFilter{UserID: user.ID})
}

// ReadAuthorised lists what user may read: everything for admins, only their own
// experiments when any of them is private, else their own plus the public ones.
func (p *Permissions) ReadAuthorised(ctx context.Context, user *domain.User) ([]*domain.Experiment, error) {
	if user == nil {
		return nil, nil
	}
	if user.IsAdmin() {
		return p.repos.Experiments.ListExperiments(ctx, repository.ExperimentsFilter{})
	}
	own, err := p.WriteAuthorised(ctx, user)
	if err != nil {
		return nil, err
	}
	if hasPrivate(own) {
		return own, nil
	}
	return p.repos.Experiments.ListExperiments(ctx, repository.ExperimentsFilter{UserID: user.ID, IncludePublic: true})
}

// Shared is empty for users owning a private experiment and ReadAuthorised otherwise.
func (p *Permissions) Shared(ctx context.Context, user *domain.User) ([]*domain.Experiment, error) {
	if user == nil {
		return nil, nil
	}
	if !user.IsAdmin() {
		own, err := p.WriteAuthorised(ctx, user)
		if err != nil {
			return nil, err
		}
		if hasPrivate(own) {
			return []*domain.Experiment{}, nil
		}
	}
	return p.ReadAuthorised(ctx, user)
}

func hasPrivate(exps []*domain.Experiment) bool {
	for _, e := range exps {
		if !e.PublicExperiment {
			return true
		}
	}
	return false
}

func containsExperiment(exps []*domain.Experiment, id int64) bool {
	for _, e := range exps {
		if e.ID == id {
			return true
		}
	}
	return false
}

// RequireSamplesOf checks that user may act on every sample and that each one
// belongs to experimentID.
func (p *Permissions) RequireSamplesOf(ctx context.Context, user *domain.User, experimentID int64, samples []*domain.Sample) error {
	ids := make([]int64, 0, len(samples))
	for _, sm := range samples {
		ids = append(ids, sm.ID)
	}
	if err := p.Require(ctx, user, PermSample, ids...); err != nil {
		return err
	}
	for _, sm := range samples {
		if !sm.ExperimentID.Valid || sm.ExperimentID.Int64 != experimentID {
			return invalid(MsgInvalid)
		}
	}
	return nil
}
