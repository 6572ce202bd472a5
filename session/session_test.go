package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatedesk/db"
	"gatedesk/models"
)

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("offline") }
func (brokenKV) Set(context.Context, string, []byte) error   { return errors.New("offline") }
func (brokenKV) Delete(context.Context, string) error        { return errors.New("offline") }
func (brokenKV) Close() error                                { return nil }

func TestStore_SetCurrentClear(t *testing.T) {
	ctx := context.Background()
	kv := db.NewMemory()
	s := NewStore(kv, nil)

	_, ok := s.Current(ctx)
	assert.False(t, ok)

	s.Set(ctx, models.Identity{Code: "G7", Name: "Bola"})

	reopened := NewStore(kv, nil)
	id, ok := reopened.Current(ctx)
	require.True(t, ok)
	assert.Equal(t, models.Identity{Code: "G7", Name: "Bola"}, id)

	reopened.Clear(ctx)
	_, ok = reopened.Current(ctx)
	assert.False(t, ok)
	_, ok = NewStore(kv, nil).Current(ctx)
	assert.False(t, ok)
}

func TestStore_CorruptIdentity(t *testing.T) {
	ctx := context.Background()
	kv := db.NewMemory()
	require.NoError(t, kv.Set(ctx, db.KeySession, []byte(`{"name":"no code"}`)))

	_, ok := NewStore(kv, nil).Current(ctx)
	assert.False(t, ok)
}

func TestStore_BrokenBackendKeepsProcessSession(t *testing.T) {
	ctx := context.Background()
	s := NewStore(brokenKV{}, nil)

	_, ok := s.Current(ctx)
	assert.False(t, ok)

	s.Set(ctx, models.Identity{Code: "G1", Name: "Ade"})
	id, ok := s.Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "G1", id.Code)
}

func TestRoster_SessionMatchPolicy(t *testing.T) {
	guards := []models.Guard{{Code: "G1", Name: "Ade"}, {Code: "G2", Name: "Bola"}}

	roster := Roster(guards, models.Identity{Code: "G2"}, true, nil)
	require.Len(t, roster, 2)
	assert.Equal(t, models.DutyOff, roster[0].Status)
	assert.Equal(t, models.DutyOn, roster[1].Status)

	roster = Roster(guards, models.Identity{Code: "G2"}, false, SessionMatchPolicy)
	assert.Equal(t, models.DutyOff, roster[1].Status)

	allOn := func(models.Guard, models.Identity, bool) models.DutyStatus { return models.DutyOn }
	roster = Roster(guards, models.Identity{}, false, allOn)
	assert.Equal(t, models.DutyOn, roster[0].Status)
}
