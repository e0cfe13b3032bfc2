package roster

import (
	"context"
	"fmt"
	"testing"

	"github.com/edchat-io/edchat/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(&models.User{}, &models.RosterState{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{
		Email:    fmt.Sprintf("%s@example.com", t.Name()),
		Username: t.Name(),
		Password: "x",
		Plan:     models.PlanBase,
	}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	return &user
}

func TestNormalize(t *testing.T) {
	input := []Card{
		{ID: " a ", Name: " Alice ", BG: " blue "},
		{ID: "", Name: "NoID"},
		{ID: "b", Name: "   "},
		{ID: "a", Name: "Duplicate"},
		{ID: "c", Name: "Carol"},
	}
	got := Normalize(input)
	if len(got) != 2 {
		t.Fatalf("got %d cards, want 2", len(got))
	}
	if got[0] != (Card{ID: "a", Name: "Alice", BG: "blue"}) {
		t.Fatalf("first card = %+v", got[0])
	}
	if got[1] != (Card{ID: "c", Name: "Carol"}) {
		t.Fatalf("second card = %+v", got[1])
	}
}

func TestNormalizeCapsListSize(t *testing.T) {
	input := make([]Card, maxCards+50)
	for i := range input {
		input[i] = Card{ID: fmt.Sprintf("id-%d", i), Name: fmt.Sprintf("n%d", i)}
	}
	got := Normalize(input)
	if len(got) != maxCards {
		t.Fatalf("got %d cards, want %d", len(got), maxCards)
	}
}

func TestCardsEmptyForNewUser(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	user := seedUser(t, db)

	cards, err := svc.Cards(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("cards: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("got %d cards for new user", len(cards))
	}
}

func TestPutCardsRoundTrip(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	user := seedUser(t, db)
	ctx := context.Background()

	stored, err := svc.PutCards(ctx, user.ID, []Card{
		{ID: "1", Name: "Alice"},
		{ID: "2", Name: "Bob", BG: "green"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d cards", len(stored))
	}

	cards, errGet := svc.Cards(ctx, user.ID)
	if errGet != nil {
		t.Fatalf("cards: %v", errGet)
	}
	if len(cards) != 2 || cards[0].Name != "Alice" || cards[1].BG != "green" {
		t.Fatalf("round trip mismatch: %+v", cards)
	}

	// A second put replaces the whole document.
	if _, errPut := svc.PutCards(ctx, user.ID, []Card{{ID: "9", Name: "Zed"}}); errPut != nil {
		t.Fatalf("second put: %v", errPut)
	}
	cards, errGet = svc.Cards(ctx, user.ID)
	if errGet != nil {
		t.Fatalf("cards: %v", errGet)
	}
	if len(cards) != 1 || cards[0].ID != "9" {
		t.Fatalf("replacement mismatch: %+v", cards)
	}

	var states int64
	if errCount := db.Model(&models.RosterState{}).Count(&states).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if states != 1 {
		t.Fatalf("%d state rows, want 1", states)
	}
}

func TestCardsSkipsMalformedEntries(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	user := seedUser(t, db)

	state := models.RosterState{
		UserID: user.ID,
		Cards:  []byte(`[{"id":"1","name":"Good"},{"id":"","name":"Bad"},42]`),
	}
	if errCreate := db.Create(&state).Error; errCreate != nil {
		t.Fatalf("seed state: %v", errCreate)
	}

	cards, err := svc.Cards(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("cards: %v", err)
	}
	if len(cards) != 1 || cards[0].Name != "Good" {
		t.Fatalf("cards = %+v", cards)
	}
}
