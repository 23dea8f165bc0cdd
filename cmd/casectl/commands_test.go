package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/idgen"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/service"
)

type harness struct {
	dir string
	now time.Time
}

func (h *harness) opener() serviceOpener {
	return func(context.Context) (*service.CaseService, func(), error) {
		svc := service.NewCaseService(service.CaseDependencies{
			Cases:   repository.NewJSONCaseStore(h.dir),
			History: repository.NewJSONHistoryLog(h.dir),
			IDs:     idgen.NewCounterGenerator("CASE", idgen.NewFileCounter(h.dir)),
			Logger:  zap.NewNop(),
			Clock:   func() time.Time { return h.now },
		})
		return svc, func() {}, nil
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(h.opener())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateShowAndList(t *testing.T) {
	h := &harness{dir: t.TempDir(), now: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}

	out, err := h.run(t, "create", "--title", "VPN down", "--category", "network", "--escalated", "si", "--sla-hours", "1")
	require.NoError(t, err)
	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "CASE0001", created["id"])
	assert.Equal(t, "Escalated", created["status"])

	_, err = h.run(t, "create", "--title", "Printer")
	require.NoError(t, err)

	out, err = h.run(t, "list", "--escalated", "yes")
	require.NoError(t, err)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "CASE0001", listed[0]["id"])

	out, err = h.run(t, "show", "CASE0002")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Printer"`)

	out, err = h.run(t, "categories")
	require.NoError(t, err)
	assert.JSONEq(t, `["network"]`, out)
}

func TestUpdateOnlyAppliesGivenFlags(t *testing.T) {
	h := &harness{dir: t.TempDir(), now: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	_, err := h.run(t, "create", "--title", "Laptop", "--notes", "keep")
	require.NoError(t, err)

	out, err := h.run(t, "update", "CASE0001", "--status", "OK")
	require.NoError(t, err)
	var updated map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, "OK", updated["status"])
	assert.Equal(t, "keep", updated["notes"])
	assert.Equal(t, "Laptop", updated["title"])

	_, err = h.run(t, "update", "CASE0404", "--notes", "x")
	assert.Error(t, err)
}

func TestSweepDeleteAndHistory(t *testing.T) {
	h := &harness{dir: t.TempDir(), now: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	_, err := h.run(t, "create", "--title", "VPN", "--escalated", "true", "--sla-hours", "1")
	require.NoError(t, err)

	h.now = h.now.Add(2 * time.Hour)
	out, err := h.run(t, "sweep")
	require.NoError(t, err)
	assert.JSONEq(t, `{"demoted":1}`, out)

	out, err = h.run(t, "delete", "CASE0001")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, out)

	out, err = h.run(t, "history", "--case-id", "CASE0001")
	require.NoError(t, err)
	var history []domain.HistoryEvent
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 3)
	assert.Equal(t, domain.HistoryActionDelete, history[0].Action)
	assert.Equal(t, domain.HistoryActionSLAAuto, history[1].Action)
	assert.Equal(t, domain.HistoryActionCreate, history[2].Action)
}

func TestInvalidEscalatedFlag(t *testing.T) {
	h := &harness{dir: t.TempDir(), now: time.Now()}
	_, err := h.run(t, "create", "--title", "x", "--escalated", "maybe")
	assert.Error(t, err)
}
