package clan

import (
	"strings"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.aura/internal/model"
)

const MinNameLength = 3

type Store interface {
	Update(fn func(doc *model.Document) error) error
	View(fn func(doc *model.Document) error) error
}

type Sessions interface {
	Current() *model.Session
}

type service struct {
	store    Store
	sessions Sessions
	clock    clockwork.Clock
}

func New(store Store, sessions Sessions, clock clockwork.Clock) *service {
	return &service{
		store:    store,
		sessions: sessions,
		clock:    clock,
	}
}

// CreateClan creates a clan led by the current user, who must not already
// belong to one.
func (s *service) CreateClan(params *model.CreateClanParams) (*model.Clan, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, model.ErrorUnauthenticated
	}

	name := strings.TrimSpace(params.Name)
	tag := strings.TrimSpace(params.Tag)
	description := strings.TrimSpace(params.Description)

	var clan model.Clan
	err := s.store.Update(func(doc *model.Document) error {
		leader := doc.UserByID(current.ID)
		if leader == nil {
			return model.ErrorUnauthenticated
		}
		if leader.ClanID != nil {
			return model.ErrorAlreadyInClan
		}
		if utf8.RuneCountInString(name) < MinNameLength {
			return model.ErrorClanNameTooShort
		}
		if !model.ValidTag(tag) {
			return model.ErrorInvalidTag
		}
		for _, c := range doc.Clans {
			if c.Tag == tag {
				return model.ErrorClanTagTaken
			}
		}
		for _, c := range doc.Clans {
			if c.Name == name {
				return model.ErrorClanNameTaken
			}
		}

		c := &model.Clan{
			ID:          model.NewClanID(),
			Name:        name,
			Tag:         tag,
			Description: description,
			LeaderID:    leader.ID,
			LeaderName:  leader.Name,
			Members: []model.Member{
				{ID: leader.ID, Name: leader.Name, Role: model.MemberRoleLeader},
			},
			CreatedAt: *model.NewTimestamp(s.clock.Now()),
		}
		doc.Clans = append(doc.Clans, c)
		clanID := c.ID
		leader.ClanID = &clanID
		clan = copyClan(c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("user %s created clan %s %s", current.Username, clan.Name, clan.Tag)
	return &clan, nil
}

func (s *service) JoinClan(clanID model.ClanID) (*model.Clan, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, model.ErrorUnauthenticated
	}

	var clan model.Clan
	err := s.store.Update(func(doc *model.Document) error {
		user := doc.UserByID(current.ID)
		if user == nil {
			return model.ErrorUnauthenticated
		}
		c := doc.ClanByID(clanID)
		if c == nil {
			return model.ErrorClanNotFound
		}
		if user.ClanID != nil {
			return model.ErrorAlreadyInClan
		}
		if c.HasMember(user.ID) {
			return model.ErrorAlreadyMember
		}
		c.Members = append(c.Members, model.Member{ID: user.ID, Name: user.Name, Role: model.MemberRoleMember})
		id := c.ID
		user.ClanID = &id
		clan = copyClan(c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("user %s joined clan %s", current.Username, clan.Name)
	return &clan, nil
}

// ListClans returns clans in creation order.
func (s *service) ListClans() ([]model.Clan, error) {
	clans := []model.Clan{}
	err := s.store.View(func(doc *model.Document) error {
		for _, c := range doc.Clans {
			clans = append(clans, copyClan(c))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clans, nil
}

func copyClan(c *model.Clan) model.Clan {
	out := *c
	out.Members = append([]model.Member(nil), c.Members...)
	return out
}
