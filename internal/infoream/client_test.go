package infoream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"irrad-data/internal/config"
	"irrad-data/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(config.InforEAMConfig{BaseURL: srv.URL, Username: "svc", Password: "pw", Timeout: 5 * time.Second}, zap.NewNop())
	c.httpClient.SetRetryCount(0)
	return c
}

func TestClient_ReadEquipment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/equipment/PXXISET001-CR000042", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "svc", user)
		assert.Equal(t, "pw", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"PXXISET001-CR000042","serialNumber":"SET-000042","userDefinedFields":{"udfnum07":1.5}}`))
	})

	eq, err := c.ReadEquipment(context.Background(), "PXXISET001-CR000042")
	require.NoError(t, err)
	assert.Equal(t, "SET-000042", eq.SerialNumber)
	assert.Equal(t, 1.5, eq.UserDefinedFields.Length)
}

func TestClient_ReadEquipment_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"equipment record couldn't be found"}`))
	})

	_, err := c.ReadEquipment(context.Background(), "PXXISET001-CR000001")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	})

	err := c.UpdateEquipment(context.Background(), &Equipment{Code: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestClient_ReadEquipmentBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/equipment/batch", r.URL.Path)
		var body batchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"A", "B"}, body.Codes)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"code":"A","found":true,"serialNumber":"SET-000001"},{"code":"B","found":false,"errorMessage":"The equipment record couldn't be found."}]}`))
	})

	got, err := c.ReadEquipmentBatch(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Found)
	assert.Equal(t, "SET-000001", got[0].SerialNumber)
	assert.False(t, got[1].Found)
	assert.Contains(t, got[1].ErrorMessage, "couldn't be found")
}

func TestClient_DetachParent_SendsEmptyParent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/equipment/C1/hierarchy", r.URL.Path)
		var body Hierarchy
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "C1", body.Code)
		assert.Equal(t, "", body.HierarchyAssetCode)
		assert.Equal(t, "true", body.HierarchyAssetDependent)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DetachParent(context.Background(), "C1"))
}

func TestClient_ReadComment_EmptyMeansMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/OBJ/C1/5", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.ReadComment(context.Background(), "C1", CommentLine)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_PrintLabel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/print-requests", r.URL.Path)
		var body PrintRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "NiceLabel", body.BarcodingSoftware)
		assert.Equal(t, "E", body.Type)
		assert.Equal(t, 2, body.PrintQty)
		assert.Equal(t, "SET-000042", body.PrintVariables.Fields[0].Entry.Value)
		w.WriteHeader(http.StatusCreated)
	})

	pr, err := NewPrintRequest("SET-000042", LabelOptions{Printer: `\\print\irrad`, Template: "IRRAD_SET", Copies: 2})
	require.NoError(t, err)
	require.NoError(t, c.PrintLabel(context.Background(), pr))
}

func TestCached_ReadEquipment(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			calls++
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"C1","serialNumber":"SET-000001"}`))
	})
	cached := NewCached(c, store.NewMemoryKV(), time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		eq, err := cached.ReadEquipment(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, "SET-000001", eq.SerialNumber)
	}
	assert.Equal(t, 1, calls)

	require.NoError(t, cached.UpdateEquipment(ctx, &Equipment{Code: "C1"}))
	_, err := cached.ReadEquipment(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNew_Simulate(t *testing.T) {
	api := New(config.InforEAMConfig{Simulate: true}, store.NewMemoryKV(), zap.NewNop())
	_, ok := api.(*Simulator)
	assert.True(t, ok)
}
