package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const (
	keyUsers          = "users"
	keyPosts          = "posts"
	keyClans          = "clans"
	keyWarnings       = "warnings"
	keySecurityLogs   = "securityLogs"
	keySystemSettings = "systemSettings"
)

// Document is the aggregate root persisted as a single JSON value. Unknown
// top-level fields survive a load/persist round trip untouched.
type Document struct {
	Users          []*User
	Posts          []*Post
	Clans          []*Clan
	Warnings       []*Warning
	SecurityLogs   []*SecurityLog
	SystemSettings *SystemSettings

	extra   map[string]json.RawMessage
	dropped []string
}

func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.extra)+6)
	for key, value := range d.extra {
		out[key] = value
	}
	out[keyUsers] = d.Users
	out[keyPosts] = d.Posts
	out[keyClans] = d.Clans
	out[keyWarnings] = d.Warnings
	out[keySecurityLogs] = d.SecurityLogs
	out[keySystemSettings] = d.SystemSettings
	return json.Marshal(out)
}

// UnmarshalJSON decodes every known collection independently. A collection
// that is missing or not an array is left nil and reported by Dropped, so
// validation can backfill it. An array whose elements fail to decode fails the
// whole document.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = Document{}
	for key, value := range raw {
		var err error
		switch key {
		case keyUsers:
			err = d.decode(key, value, '[', &d.Users)
		case keyPosts:
			err = d.decode(key, value, '[', &d.Posts)
		case keyClans:
			err = d.decode(key, value, '[', &d.Clans)
		case keyWarnings:
			err = d.decode(key, value, '[', &d.Warnings)
		case keySecurityLogs:
			err = d.decode(key, value, '[', &d.SecurityLogs)
		case keySystemSettings:
			err = d.decode(key, value, '{', &d.SystemSettings)
		default:
			if d.extra == nil {
				d.extra = make(map[string]json.RawMessage)
			}
			d.extra[key] = value
		}
		if err != nil {
			return err
		}
	}
	sort.Strings(d.dropped)
	return nil
}

// decode unmarshals value into dst when it opens with the expected
// delimiter. Any other shape is recorded as dropped.
func (d *Document) decode(key string, value json.RawMessage, open byte, dst interface{}) error {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != open {
		d.dropped = append(d.dropped, key)
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// Dropped lists the known fields that could not be decoded on the last load.
func (d *Document) Dropped() []string {
	return d.dropped
}

func (d *Document) UserByID(id UserID) *User {
	for _, u := range d.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (d *Document) UserByUsername(username string) *User {
	for _, u := range d.Users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (d *Document) UserByEmail(email string) *User {
	for _, u := range d.Users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (d *Document) ClanByID(id ClanID) *Clan {
	for _, c := range d.Clans {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// PostIndex returns the position of the post in the feed, or -1.
func (d *Document) PostIndex(id PostID) int {
	for i, p := range d.Posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Settings returns the system settings, falling back to defaults for a
// document that has not been validated yet.
func (d *Document) Settings() SystemSettings {
	if d.SystemSettings == nil {
		return DefaultSystemSettings()
	}
	return *d.SystemSettings
}
