package model

import "strings"

type ClanID string

type MemberRole string

const (
	MemberRoleLeader MemberRole = "leader"
	MemberRoleMember MemberRole = "member"
)

// TagSigil must lead every clan tag, e.g. @alpha.
const TagSigil = "@"

type CreateClanParams struct {
	Name        string `json:"name"`
	Tag         string `json:"tag"`
	Description string `json:"description"`
}

type Member struct {
	ID   UserID     `json:"id"`
	Name string     `json:"name"`
	Role MemberRole `json:"role"`
}

type Clan struct {
	ID          ClanID    `json:"id"`
	Name        string    `json:"name"`
	Tag         string    `json:"tag"`
	Description string    `json:"description"`
	LeaderID    UserID    `json:"leaderId"`
	LeaderName  string    `json:"leaderName"`
	Members     []Member  `json:"members"`
	CreatedAt   Timestamp `json:"createdAt"`
}

func (c *Clan) HasMember(userID UserID) bool {
	for _, m := range c.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

func ValidTag(tag string) bool {
	return strings.HasPrefix(tag, TagSigil) && len([]rune(tag)) >= 2
}
