// Package favorites owns the ordered list of saved locations and keeps it
// written through to a storage slot.
package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/textweather/internal/models"
	"github.com/kjstillabower/textweather/internal/observability"
	"github.com/kjstillabower/textweather/internal/storage"
)

// StorageKey is the slot holding the JSON-serialized favorites list.
const StorageKey = "weather_favorites"

// Store holds the in-memory favorites list and mirrors every mutation to the slot
// before returning. Not safe for concurrent use; the controller serializes access.
type Store struct {
	slot   storage.Slot
	clock  clockwork.Clock
	logger *zap.Logger
	list   []models.Favorite
}

// NewStore returns an empty Store over slot. Call Load to read persisted favorites.
// A nil clock uses the real clock; a nil logger discards output.
func NewStore(slot storage.Slot, clock clockwork.Clock, logger *zap.Logger) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{slot: slot, clock: clock, logger: logger}
}

// Load replaces the in-memory list with the persisted one and returns a copy.
// An absent, unreadable or malformed slot yields an empty list; nothing is surfaced to the caller.
// Records with an empty or repeated id are dropped.
func (s *Store) Load(ctx context.Context) []models.Favorite {
	s.list = nil
	defer func() { observability.FavoritesCount.Set(float64(len(s.list))) }()

	raw, ok, err := s.slot.Get(ctx, StorageKey)
	if err != nil {
		s.logger.Warn("favorites slot unreadable, starting empty", zap.Error(err))
		return []models.Favorite{}
	}
	if !ok {
		return []models.Favorite{}
	}

	var stored []models.Favorite
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("favorites slot malformed, starting empty", zap.Error(err))
		return []models.Favorite{}
	}

	seen := make(map[string]struct{}, len(stored))
	for _, f := range stored {
		if f.ID == "" {
			s.logger.Warn("dropping favorite without id", zap.String("name", f.Name))
			continue
		}
		if _, dup := seen[f.ID]; dup {
			s.logger.Warn("dropping favorite with duplicate id", zap.String("id", f.ID))
			continue
		}
		seen[f.ID] = struct{}{}
		s.list = append(s.list, f)
	}
	return s.List()
}

// Save overwrites the slot with list and, on success, makes it the in-memory list.
func (s *Store) Save(ctx context.Context, list []models.Favorite) error {
	if list == nil {
		list = []models.Favorite{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	if err := s.slot.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("write favorites: %w", err)
	}
	s.list = append([]models.Favorite(nil), list...)
	observability.FavoritesCount.Set(float64(len(s.list)))
	return nil
}

// Add appends fav and persists. The list is unchanged if the write fails.
func (s *Store) Add(ctx context.Context, fav models.Favorite) error {
	if fav.ID == "" {
		return fmt.Errorf("add favorite: empty id")
	}
	if s.IndexOf(fav.ID) >= 0 {
		return fmt.Errorf("add favorite: duplicate id %s", fav.ID)
	}
	next := make([]models.Favorite, 0, len(s.list)+1)
	next = append(next, s.list...)
	next = append(next, fav)
	if err := s.Save(ctx, next); err != nil {
		observability.FavoriteMutationsTotal.WithLabelValues("add", "error").Inc()
		return err
	}
	observability.FavoriteMutationsTotal.WithLabelValues("add", "success").Inc()
	return nil
}

// Remove deletes the favorite with id and persists. It returns the index the entry
// occupied and found=false, without writing, when no entry matches.
func (s *Store) Remove(ctx context.Context, id string) (index int, found bool, err error) {
	index = s.IndexOf(id)
	if index < 0 {
		observability.FavoriteMutationsTotal.WithLabelValues("remove", "not_found").Inc()
		return -1, false, nil
	}
	next := make([]models.Favorite, 0, len(s.list)-1)
	next = append(next, s.list[:index]...)
	next = append(next, s.list[index+1:]...)
	if err := s.Save(ctx, next); err != nil {
		observability.FavoriteMutationsTotal.WithLabelValues("remove", "error").Inc()
		return index, true, err
	}
	observability.FavoriteMutationsTotal.WithLabelValues("remove", "success").Inc()
	return index, true, nil
}

// List returns a copy of the favorites in tab order.
func (s *Store) List() []models.Favorite {
	out := make([]models.Favorite, len(s.list))
	copy(out, s.list)
	return out
}

func (s *Store) Len() int { return len(s.list) }

// Get returns the favorite with id.
func (s *Store) Get(id string) (models.Favorite, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s.list[i], true
	}
	return models.Favorite{}, false
}

// IndexOf returns the position of id, or -1.
func (s *Store) IndexOf(id string) int {
	for i, f := range s.list {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// NewID returns the creation time in Unix milliseconds, bumped until it is unused.
func (s *Store) NewID() string {
	n := s.clock.Now().UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if s.IndexOf(id) < 0 {
			return id
		}
		n++
	}
}

// NextActive picks the favorite to activate after the active one at removedIndex was
// deleted from list: the entry at max(0, removedIndex-1). ok is false when list is empty.
func NextActive(list []models.Favorite, removedIndex int) (id string, ok bool) {
	if len(list) == 0 {
		return "", false
	}
	i := removedIndex - 1
	if i < 0 {
		i = 0
	}
	if i >= len(list) {
		i = len(list) - 1
	}
	return list[i].ID, true
}
