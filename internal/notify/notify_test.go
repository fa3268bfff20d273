package notify

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Notify(context.Background(), Event{Kind: KindExperimentCompleted, ExperimentID: 7}))
	require.Len(t, r.Events, 1)
	assert.Equal(t, int64(7), r.Events[0].ExperimentID)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), Event{Kind: KindExperimentDeleted}))
}

func TestStreamNotifier_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	n := NewStreamNotifier(client, "irrad:notifications", 100, "irrad@cern.ch", zap.NewNop())

	err := n.Notify(context.Background(), Event{Kind: KindExperimentDeleted, ExperimentID: 1})
	assert.Error(t, err)
}
