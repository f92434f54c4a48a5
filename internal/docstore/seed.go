package docstore

import (
	"fmt"

	"uk.co.dudmesh.aura/internal/model"
)

type seedAccount struct {
	prefix        string
	name          string
	username      string
	password      string
	email         string
	avatar        string
	creator       bool
	owner         bool
	securityLevel int
}

var seedAccounts = []seedAccount{
	{
		prefix:        "admin_",
		name:          "Administrator",
		username:      "admin",
		password:      "admin123",
		email:         "admin@auramessenger.com",
		avatar:        "https://via.placeholder.com/150/6366f1/ffffff?text=ADMIN",
		securityLevel: 10,
	},
	{
		prefix:        "owner_",
		name:          "Owner",
		username:      "owner",
		password:      "owner123",
		email:         "owner@auramessenger.com",
		avatar:        "https://via.placeholder.com/150/f43f5e/ffffff?text=OWNER",
		creator:       true,
		owner:         true,
		securityLevel: 100,
	},
}

func (s *Store) seed() (*model.Document, error) {
	now := model.NewTimestamp(s.clock.Now())
	settings := model.DefaultSystemSettings()

	doc := &model.Document{
		Users:          make([]*model.User, 0, len(seedAccounts)),
		Posts:          []*model.Post{},
		Clans:          []*model.Clan{},
		Warnings:       []*model.Warning{},
		SecurityLogs:   []*model.SecurityLog{},
		SystemSettings: &settings,
	}

	for _, account := range seedAccounts {
		password, err := s.hasher.Hash(account.password)
		if err != nil {
			return nil, fmt.Errorf("hashing password for %s: %w", account.username, err)
		}
		doc.Users = append(doc.Users, &model.User{
			ID:               model.UserID(account.prefix + model.CreateID()),
			Name:             account.name,
			Username:         account.username,
			Password:         password,
			Email:            account.email,
			Avatar:           account.avatar,
			Verified:         true,
			IsOfficial:       true,
			IsContentCreator: account.creator,
			IsAdmin:          true,
			IsOwner:          account.owner,
			CreatedAt:        *now,
			LastLogin:        *now,
			SecurityLevel:    account.securityLevel,
		})
	}
	return doc, nil
}
