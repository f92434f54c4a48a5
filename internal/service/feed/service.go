package feed

import (
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.aura/internal/model"
)

const (
	SpamWindow = time.Minute
	SpamLimit  = 3
)

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
	cooldown time.Duration
	lastPost time.Time
}

// New creates the feed. The cooldown applies to the process as a whole, not
// per author; zero disables it.
func New(store Store, sessions Sessions, clock clockwork.Clock, cooldown time.Duration) *service {
	return &service{
		store:    store,
		sessions: sessions,
		clock:    clock,
		cooldown: cooldown,
	}
}

func (s *service) CreatePost(content string) (*model.Post, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, model.ErrorUnauthenticated
	}

	now := s.clock.Now()
	var post model.Post
	err := s.store.Update(func(doc *model.Document) error {
		author := doc.UserByID(current.ID)
		if author == nil {
			return model.ErrorUnauthenticated
		}
		settings := doc.Settings()
		if settings.MaintenanceMode && !author.Role().CanModerate() {
			return model.ErrorMaintenance
		}

		author.ClearExpired(now)
		if author.MuteActive(now) {
			return &model.MutedError{Remaining: author.MutedUntil.Sub(now)}
		}
		if remaining := s.cooldownRemaining(now); remaining > 0 {
			return &model.CooldownError{Remaining: remaining}
		}

		content = strings.TrimSpace(content)
		if content == "" {
			return model.ErrorEmptyContent
		}
		if settings.MaxPostsPerUser > 0 && author.PostsCount >= settings.MaxPostsPerUser {
			return model.ErrorPostLimitReached
		}
		if settings.AntiSpamEnabled && recentPosts(doc, author.ID, now) >= SpamLimit {
			return model.ErrorRateLimited
		}

		p := &model.Post{
			ID:        model.NewPostID(),
			Content:   content,
			UserID:    author.ID,
			Timestamp: *model.NewTimestamp(now),
		}
		doc.Posts = append([]*model.Post{p}, doc.Posts...)
		author.PostsCount++
		post = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.lastPost = now
	log.Infof("user %s created post %s", current.Username, post.ID)
	return &post, nil
}

// ListFeed returns every post, newest first.
func (s *service) ListFeed() ([]model.Post, error) {
	return s.list(func(p *model.Post) bool { return true })
}

func (s *service) ListUserPosts(userID model.UserID) ([]model.Post, error) {
	return s.list(func(p *model.Post) bool { return p.UserID == userID })
}

func (s *service) list(keep func(p *model.Post) bool) ([]model.Post, error) {
	posts := []model.Post{}
	err := s.store.View(func(doc *model.Document) error {
		for _, p := range doc.Posts {
			if keep(p) {
				posts = append(posts, *p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Timestamp.After(posts[j].Timestamp.Time)
	})
	return posts, nil
}

func (s *service) cooldownRemaining(now time.Time) time.Duration {
	if s.cooldown <= 0 || s.lastPost.IsZero() {
		return 0
	}
	return s.cooldown - now.Sub(s.lastPost)
}

func recentPosts(doc *model.Document, author model.UserID, now time.Time) int {
	count := 0
	for _, p := range doc.Posts {
		if p.UserID == author && now.Sub(p.Timestamp.Time) < SpamWindow {
			count++
		}
	}
	return count
}
