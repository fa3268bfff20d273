package infoream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedNow() time.Time { return time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC) }

func kinds(actions []Action) []ActionKind {
	out := make([]ActionKind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

func TestPlanItem_NewSample(t *testing.T) {
	sim := NewSimulator()
	p := &Planner{API: sim, Now: fixedNow}

	actions, err := p.PlanItem(context.Background(), Item{ID: "SET-000010", Comment: "layers: []\n"})
	require.NoError(t, err)
	assert.Equal(t, []ActionKind{ActionCreateEquipment, ActionCreateComment}, kinds(actions))
	assert.Equal(t, "PXXISET001-CR000010", actions[1].Comment.EntityKeyCode)
	assert.Equal(t, CommentLine, actions[1].Comment.LineNumber)
}

func TestPlanItem_ExistingSampleWithComment(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	p := &Planner{API: sim, Now: fixedNow}

	first, err := p.PlanItem(ctx, Item{ID: "SET-000010", Comment: "a"})
	require.NoError(t, err)
	require.NoError(t, Apply(ctx, sim, first, zap.NewNop()))

	second, err := p.PlanItem(ctx, Item{ID: "SET-000010", Comment: "b"})
	require.NoError(t, err)
	assert.Equal(t, []ActionKind{ActionUpdateEquipment, ActionUpdateComment}, kinds(second))
	require.NoError(t, Apply(ctx, sim, second, zap.NewNop()))

	c, err := sim.ReadComment(ctx, "PXXISET001-CR000010", CommentLine)
	require.NoError(t, err)
	assert.Equal(t, "b", c.Text)
}

func TestPlanItem_DosimeterHasNoComment(t *testing.T) {
	p := &Planner{API: NewSimulator(), Now: fixedNow}
	actions, err := p.PlanItem(context.Background(), Item{ID: "DOS-000005"})
	require.NoError(t, err)
	assert.Equal(t, []ActionKind{ActionCreateEquipment}, kinds(actions))
}

func TestPlanBox_RequiresRegisteredBox(t *testing.T) {
	p := &Planner{API: NewSimulator(), Now: fixedNow}
	_, err := p.PlanBox(context.Background(), Item{ID: "BOX-000001"}, nil)
	assert.ErrorIs(t, err, ErrBoxNotRegistered)
}

func TestPlanBox_MovesItems(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	p := &Planner{API: sim, Now: fixedNow}
	box := Item{ID: "BOX-000001"}
	boxEq, err := NewEquipment(box, fixedNow())
	require.NoError(t, err)
	require.NoError(t, sim.CreateEquipment(ctx, boxEq))
	existing, err := NewEquipment(Item{ID: "DOS-000002"}, fixedNow())
	require.NoError(t, err)
	require.NoError(t, sim.CreateEquipment(ctx, existing))

	actions, err := p.PlanBox(ctx, box, []Item{{ID: "SET-000003"}, {ID: "DOS-000002"}})
	require.NoError(t, err)
	assert.Equal(t, []ActionKind{
		ActionUpdateEquipment,
		ActionCreateEquipment, ActionAttachParent,
		ActionUpdateEquipment, ActionDetachParent, ActionAttachParent,
	}, kinds(actions))

	require.NoError(t, Apply(ctx, sim, actions, zap.NewNop()))
	assert.Equal(t, "HCPWPDI002-CR000001", sim.Parent("PXXISET001-CR000003"))
	assert.Equal(t, "HCPWPDI002-CR000001", sim.Parent("PXXIDOS001-CR000002"))
}

func TestApply_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	sim.Fail = errors.New("gateway down")

	actions := []Action{
		{Kind: ActionCreateEquipment, Equipment: &Equipment{Code: "A"}},
		{Kind: ActionCreateEquipment, Equipment: &Equipment{Code: "B"}},
	}
	err := Apply(ctx, sim, actions, zap.NewNop())

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "A", actionErr.Action.Equipment.Code)
	_, readErr := sim.ReadEquipment(ctx, "B")
	assert.ErrorIs(t, readErr, ErrNotFound)
}
