package clan

import (
	"encoding/json"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk.co.dudmesh.aura/internal/model"
)

// memoryStore persists by snapshotting the document as JSON, so a failed
// update can be told apart from a successful one.
type memoryStore struct {
	doc   *model.Document
	saved string
}

func (m *memoryStore) Update(fn func(doc *model.Document) error) error {
	if err := fn(m.doc); err != nil {
		return err
	}
	data, err := json.Marshal(m.doc)
	if err != nil {
		return err
	}
	m.saved = string(data)
	return nil
}

func (m *memoryStore) View(fn func(doc *model.Document) error) error {
	return fn(m.doc)
}

type fixedSession struct {
	session *model.Session
}

func (f *fixedSession) Current() *model.Session {
	return f.session
}

func newClans() (*service, *memoryStore, *fixedSession) {
	store := &memoryStore{doc: &model.Document{
		Users: []*model.User{
			{ID: "user_alice", Name: "Alice", Username: "alice"},
			{ID: "user_bob", Name: "Bob", Username: "bob"},
		},
		Clans: []*model.Clan{},
	}}
	sessions := &fixedSession{session: model.NewSession(store.doc.Users[0])}
	return New(store, sessions, clockwork.NewFakeClock()), store, sessions
}

func TestCreateClan(t *testing.T) {
	assert := assert.New(t)
	clans, store, _ := newClans()

	clan, err := clans.CreateClan(&model.CreateClanParams{Name: " Wolves ", Tag: "@wolves", Description: "pack"})
	require.NoError(t, err)
	assert.Equal("Wolves", clan.Name)
	assert.Equal(model.UserID("user_alice"), clan.LeaderID)
	assert.Equal("Alice", clan.LeaderName)
	assert.Equal([]model.Member{{ID: "user_alice", Name: "Alice", Role: model.MemberRoleLeader}}, clan.Members)

	alice := store.doc.UserByID("user_alice")
	if assert.NotNil(alice.ClanID) {
		assert.Equal(clan.ID, *alice.ClanID)
	}

	_, err = clans.CreateClan(&model.CreateClanParams{Name: "Bears", Tag: "@bears"})
	assert.Equal(model.ErrorAlreadyInClan, err)
}

func TestCreateClanRules(t *testing.T) {
	tests := []struct {
		name   string
		params model.CreateClanParams
		want   error
	}{
		{"Short Name", model.CreateClanParams{Name: "Wo", Tag: "@wo"}, model.ErrorClanNameTooShort},
		{"Missing Sigil", model.CreateClanParams{Name: "Wolves", Tag: "wolves"}, model.ErrorInvalidTag},
		{"Sigil Only", model.CreateClanParams{Name: "Wolves", Tag: "@"}, model.ErrorInvalidTag},
		{"Tag Taken", model.CreateClanParams{Name: "Other", Tag: "@taken"}, model.ErrorClanTagTaken},
		{"Name Taken", model.CreateClanParams{Name: "Taken", Tag: "@other"}, model.ErrorClanNameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clans, store, _ := newClans()
			store.doc.Clans = []*model.Clan{{ID: "clan_1", Name: "Taken", Tag: "@taken"}}

			_, err := clans.CreateClan(&tt.params)
			assert.Equal(t, tt.want, err)
			assert.Len(t, store.doc.Clans, 1)
			assert.Nil(t, store.doc.UserByID("user_alice").ClanID)
			assert.Empty(t, store.saved)
		})
	}
}

func TestJoinClan(t *testing.T) {
	assert := assert.New(t)
	clans, store, sessions := newClans()

	clan, err := clans.CreateClan(&model.CreateClanParams{Name: "Wolves", Tag: "@wolves"})
	require.NoError(t, err)

	_, err = clans.JoinClan(clan.ID)
	assert.Equal(model.ErrorAlreadyInClan, err)

	sessions.session = model.NewSession(store.doc.UserByID("user_bob"))
	_, err = clans.JoinClan("clan_missing")
	assert.Equal(model.ErrorClanNotFound, err)

	joined, err := clans.JoinClan(clan.ID)
	require.NoError(t, err)
	if assert.Len(joined.Members, 2) {
		assert.Equal(model.Member{ID: "user_bob", Name: "Bob", Role: model.MemberRoleMember}, joined.Members[1])
	}
	assert.Equal(clan.ID, *store.doc.UserByID("user_bob").ClanID)

	t.Run("Stale Membership", func(t *testing.T) {
		store.doc.UserByID("user_bob").ClanID = nil
		_, err := clans.JoinClan(clan.ID)
		assert.Equal(model.ErrorAlreadyMember, err)
	})

	t.Run("List", func(t *testing.T) {
		list, err := clans.ListClans()
		require.NoError(t, err)
		if assert.Len(list, 1) {
			assert.Equal("@wolves", list[0].Tag)
			assert.Len(list[0].Members, 2)
		}
	})
}

func TestAnonymous(t *testing.T) {
	clans, _, sessions := newClans()
	sessions.session = nil

	_, err := clans.CreateClan(&model.CreateClanParams{Name: "Wolves", Tag: "@wolves"})
	assert.Equal(t, model.ErrorUnauthenticated, err)
	_, err = clans.JoinClan("clan_1")
	assert.Equal(t, model.ErrorUnauthenticated, err)
}
