// Package roster stores a user's saved contact cards as one JSON document.
package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/edchat-io/edchat/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxCards bounds the stored roster size.
const maxCards = 500

// Card is one roster entry.
type Card struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	BG   string `json:"bg"`
}

// Service reads and writes per-user roster state.
type Service struct {
	db *gorm.DB
}

// NewService constructs a Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Cards returns the user's roster. Users with no state get an empty list.
// Malformed entries stored by older clients are skipped, not surfaced.
func (s *Service) Cards(ctx context.Context, userID uint64) ([]Card, error) {
	var state models.RosterState
	errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&state).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return []Card{}, nil
		}
		return nil, fmt.Errorf("roster: load state: %w", errFind)
	}
	if len(state.Cards) == 0 {
		return []Card{}, nil
	}

	var raw []json.RawMessage
	if errDecode := json.Unmarshal(state.Cards, &raw); errDecode != nil {
		return []Card{}, nil
	}
	cards := make([]Card, 0, len(raw))
	for _, entry := range raw {
		var card Card
		if errDecode := json.Unmarshal(entry, &card); errDecode != nil {
			continue
		}
		if card.ID == "" || card.Name == "" {
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// PutCards replaces the user's roster with the normalized input and
// returns what was stored.
func (s *Service) PutCards(ctx context.Context, userID uint64, cards []Card) ([]Card, error) {
	normalized := Normalize(cards)

	payload, errMarshal := json.Marshal(normalized)
	if errMarshal != nil {
		return nil, fmt.Errorf("roster: encode cards: %w", errMarshal)
	}

	state := models.RosterState{UserID: userID, Cards: datatypes.JSON(payload)}
	errSave := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cards", "updated_at"}),
	}).Create(&state).Error
	if errSave != nil {
		return nil, fmt.Errorf("roster: save state: %w", errSave)
	}
	return normalized, nil
}

// Normalize trims fields, drops entries missing an id or name, removes
// duplicate ids keeping the first occurrence, and caps the list size.
func Normalize(cards []Card) []Card {
	normalized := make([]Card, 0, len(cards))
	seen := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		name := strings.TrimSpace(card.Name)
		if name == "" {
			continue
		}
		id := strings.TrimSpace(card.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		normalized = append(normalized, Card{ID: id, Name: name, BG: strings.TrimSpace(card.BG)})
		if len(normalized) == maxCards {
			break
		}
	}
	return normalized
}
