package infoream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"irrad-data/internal/equipment"
)

// ErrBoxNotRegistered means the box has to exist in inforEAM before items are put into it.
var ErrBoxNotRegistered = errors.New("box is not registered in inforEAM")

type ActionKind string

const (
	ActionCreateEquipment ActionKind = "create_equipment"
	ActionUpdateEquipment ActionKind = "update_equipment"
	ActionAttachParent    ActionKind = "attach_parent"
	ActionDetachParent    ActionKind = "detach_parent"
	ActionCreateComment   ActionKind = "create_comment"
	ActionUpdateComment   ActionKind = "update_comment"
)

// Action is one planned inforEAM write.
type Action struct {
	Kind      ActionKind
	Equipment *Equipment
	Comment   *Comment
	Child     string
	Parent    string
}

// ActionError reports the action that failed and stopped the run.
type ActionError struct {
	Action Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("inforEAM %s failed: %v", e.Action.Kind, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Planner turns facility items into ordered inforEAM writes, reading the
// current inforEAM state to choose between create and update.
type Planner struct {
	API API
	Now func() time.Time
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Planner) exists(ctx context.Context, code string) (bool, error) {
	_, err := p.API.ReadEquipment(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (p *Planner) commentExists(ctx context.Context, code string) (bool, error) {
	_, err := p.API.ReadComment(ctx, code, CommentLine)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// PlanItem plans the writes for a sample or dosimeter outside a box.
// Samples also get their layer comment created or updated.
func (p *Planner) PlanItem(ctx context.Context, item Item) ([]Action, error) {
	eq, err := NewEquipment(item, p.now())
	if err != nil {
		return nil, err
	}
	found, err := p.exists(ctx, eq.Code)
	if err != nil {
		return nil, err
	}

	var actions []Action
	if found {
		actions = append(actions, Action{Kind: ActionUpdateEquipment, Equipment: eq})
	} else {
		actions = append(actions, Action{Kind: ActionCreateEquipment, Equipment: eq})
	}

	if equipment.Type(item.ID, equipment.Any) != equipment.KindSample {
		return actions, nil
	}
	comment := NewComment(eq.Code, item.Comment)
	hasComment := false
	if found {
		if hasComment, err = p.commentExists(ctx, eq.Code); err != nil {
			return nil, err
		}
	}
	if hasComment {
		actions = append(actions, Action{Kind: ActionUpdateComment, Comment: comment})
	} else {
		actions = append(actions, Action{Kind: ActionCreateComment, Comment: comment})
	}
	return actions, nil
}

// PlanBox plans the box update and, for every item inside it, the item write
// plus the move under the box. Items already known to inforEAM are detached
// from their previous parent first.
func (p *Planner) PlanBox(ctx context.Context, box Item, items []Item) ([]Action, error) {
	boxEq, err := NewEquipment(box, p.now())
	if err != nil {
		return nil, err
	}
	found, err := p.exists(ctx, boxEq.Code)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrBoxNotRegistered
	}

	actions := []Action{{Kind: ActionUpdateEquipment, Equipment: boxEq}}
	for _, item := range items {
		eq, err := NewEquipment(item, p.now())
		if err != nil {
			return nil, err
		}
		itemFound, err := p.exists(ctx, eq.Code)
		if err != nil {
			return nil, err
		}
		if itemFound {
			actions = append(actions,
				Action{Kind: ActionUpdateEquipment, Equipment: eq},
				Action{Kind: ActionDetachParent, Child: eq.Code},
			)
		} else {
			actions = append(actions, Action{Kind: ActionCreateEquipment, Equipment: eq})
		}
		actions = append(actions, Action{Kind: ActionAttachParent, Child: eq.Code, Parent: boxEq.Code})
	}
	return actions, nil
}

// Apply runs actions in order and stops at the first failure.
func Apply(ctx context.Context, api API, actions []Action, logger *zap.Logger) error {
	for _, a := range actions {
		var err error
		switch a.Kind {
		case ActionCreateEquipment:
			err = api.CreateEquipment(ctx, a.Equipment)
		case ActionUpdateEquipment:
			err = api.UpdateEquipment(ctx, a.Equipment)
		case ActionAttachParent:
			err = api.AttachParent(ctx, a.Child, a.Parent)
		case ActionDetachParent:
			err = api.DetachParent(ctx, a.Child)
		case ActionCreateComment:
			err = api.CreateComment(ctx, a.Comment)
		case ActionUpdateComment:
			err = api.UpdateComment(ctx, a.Comment)
		default:
			err = fmt.Errorf("unknown action %q", a.Kind)
		}
		if err != nil {
			logger.Error("inforEAM action failed", zap.String("action", string(a.Kind)), zap.Error(err))
			return &ActionError{Action: a, Err: err}
		}
	}
	return nil
}
