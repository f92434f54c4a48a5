package docstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.aura/internal/crypt"
	"uk.co.dudmesh.aura/internal/model"
)

const DocumentSlot = "auraMessengerDB"

type Slots interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Store owns the in-memory document and mirrors it to its slot after every
// mutation. It is not safe for concurrent use; callers serialise access.
type Store struct {
	slots  Slots
	clock  clockwork.Clock
	hasher crypt.Hasher
	doc    *model.Document
}

func New(slots Slots, clock clockwork.Clock, hasher crypt.Hasher) *Store {
	return &Store{
		slots:  slots,
		clock:  clock,
		hasher: hasher,
	}
}

// Load reads and validates the persisted document. An absent slot yields a
// freshly seeded document; an unreadable one is replaced by a fresh seed.
func (s *Store) Load() error {
	raw, err := s.slots.Get(DocumentSlot)
	if err != nil {
		if errors.Is(err, model.ErrorSlotNotFound) {
			log.Infof("no saved document found, creating a fresh one")
			return s.Reset()
		}
		if errors.Is(err, model.ErrorStorageCorrupted) {
			log.Errorf("document slot failed its integrity check, resetting: %v", err)
			return s.Reset()
		}
		return fmt.Errorf("reading document slot: %w", err)
	}

	var doc *model.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.Errorf("%v: parsing document: %v, resetting", model.ErrorStorageCorrupted, err)
		return s.Reset()
	}
	if err := s.Validate(doc); err != nil {
		log.Errorf("%v: %v, resetting", model.ErrorStorageCorrupted, err)
		return s.Reset()
	}

	s.doc = doc
	return s.Persist()
}

// Validate backfills missing collections and settings and rejects null
// entries. It never removes data.
func (s *Store) Validate(doc *model.Document) error {
	if doc == nil {
		return errors.New("document is empty")
	}
	for _, field := range doc.Dropped() {
		log.Warnf("invalid field %s in document, creating a new one", field)
	}
	if doc.Users == nil {
		doc.Users = []*model.User{}
	}
	if doc.Posts == nil {
		doc.Posts = []*model.Post{}
	}
	if doc.Clans == nil {
		doc.Clans = []*model.Clan{}
	}
	if doc.Warnings == nil {
		doc.Warnings = []*model.Warning{}
	}
	if doc.SecurityLogs == nil {
		doc.SecurityLogs = []*model.SecurityLog{}
	}
	if doc.SystemSettings == nil {
		settings := model.DefaultSystemSettings()
		doc.SystemSettings = &settings
	}
	for _, check := range []error{
		firstNull("user", doc.Users),
		firstNull("post", doc.Posts),
		firstNull("clan", doc.Clans),
		firstNull("warning", doc.Warnings),
		firstNull("security log", doc.SecurityLogs),
	} {
		if check != nil {
			return check
		}
	}
	return nil
}

func firstNull[T any](name string, items []*T) error {
	for i, item := range items {
		if item == nil {
			return fmt.Errorf("%s %d is null", name, i)
		}
	}
	return nil
}

func (s *Store) Persist() error {
	data, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}
	if err := s.slots.Set(DocumentSlot, string(data)); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Reset replaces the document with a freshly seeded one and persists it.
func (s *Store) Reset() error {
	doc, err := s.seed()
	if err != nil {
		return fmt.Errorf("seeding document: %w", err)
	}
	s.doc = doc
	log.Infof("fresh document created")
	return s.Persist()
}

// Update runs fn against the document and persists the result. fn must check
// its preconditions before mutating; when it returns an error nothing is
// written.
func (s *Store) Update(fn func(doc *model.Document) error) error {
	if s.doc == nil {
		return errors.New("document not loaded")
	}
	if err := fn(s.doc); err != nil {
		return err
	}
	return s.Persist()
}

func (s *Store) View(fn func(doc *model.Document) error) error {
	if s.doc == nil {
		return errors.New("document not loaded")
	}
	return fn(s.doc)
}
