package auditlog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	entries   []Entry
	createErr error
	lastList  Filter
	total     int64
}

func (m *memStore) Create(_ context.Context, e *Entry) error {
	if m.createErr != nil {
		return m.createErr
	}
	e.ID = uuid.New()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memStore) List(_ context.Context, f Filter) ([]Entry, int64, error) {
	m.lastList = f
	return m.entries, m.total, nil
}

func TestRecord(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, nil)
	actor, target := uuid.New(), uuid.New()

	svc.Record(context.Background(), actor, target, ActionOrganizerApproved, map[string]interface{}{"org": "BU Dining"}, "10.0.0.1", StatusSuccess)
	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, actor, *e.ActorID)
	assert.Equal(t, target, *e.TargetID)
	assert.JSONEq(t, `{"org":"BU Dining"}`, string(e.Details))
	assert.Equal(t, "10.0.0.1", e.IPAddress)

	svc.Record(context.Background(), uuid.Nil, uuid.Nil, ActionOrganizerRevoked, nil, "", StatusFailure)
	require.Len(t, store.entries, 2)
	assert.Nil(t, store.entries[1].ActorID)
	assert.Nil(t, store.entries[1].TargetID)
	assert.JSONEq(t, `{}`, string(store.entries[1].Details))
}

func TestRecordSwallowsStoreErrors(t *testing.T) {
	svc := NewService(&memStore{createErr: errors.New("db down")}, nil)
	assert.NotPanics(t, func() {
		svc.Record(context.Background(), uuid.New(), uuid.New(), ActionOrganizerRejected, nil, "", StatusSuccess)
	})
}

func TestListPagination(t *testing.T) {
	store := &memStore{total: 41}
	svc := NewService(store, nil)

	page, err := svc.List(context.Background(), Filter{Page: 0, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 20, store.lastList.Limit)

	page, err = svc.List(context.Background(), Filter{Page: 2, Limit: 50, Action: ActionOrganizerApproved})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, ActionOrganizerApproved, store.lastList.Action)
}
