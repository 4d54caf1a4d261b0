package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/99minutos/template-backend/internal/core/domain"
)

func TestUserDocument_RoundTripThroughBSON(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	in := &domain.User{
		ID:        12,
		TenantID:  3,
		Username:  "alice",
		Email:     "a@x.io",
		Password:  "$2a$10$digest",
		Status:    domain.StatusActive,
		Source:    domain.SourceInternal,
		Roles:     []domain.Role{{ID: "admin"}},
		CreatedAt: created,
		UpdatedAt: created,
	}

	raw, err := bson.Marshal(toDocument(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc userDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out := toDomain(&doc)

	if out.ID != 12 || out.Username != "alice" || out.Email != "a@x.io" {
		t.Fatalf("unexpected user: %+v", out)
	}
	if out.Password != in.Password {
		t.Fatalf("digest not preserved")
	}
	if !out.CreatedAt.Equal(created) {
		t.Fatalf("expected %v, got %v", created, out.CreatedAt)
	}
	if len(out.Roles) != 1 || out.Roles[0].ID != "admin" {
		t.Fatalf("unexpected roles: %v", out.Roles)
	}
}

func TestUserDocument_OmitsEmptyEmail(t *testing.T) {
	raw, err := bson.Marshal(toDocument(&domain.User{Username: "bob"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := bson.Raw(raw).LookupErr("email"); err == nil {
		t.Fatalf("empty email must not be stored, the unique index is sparse")
	}
}

func TestUserDocument_KeepsFullTimestamps(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 123_456_789, time.UTC)
	in := &domain.User{Username: "carol", CreatedAt: created, UpdatedAt: created}

	doc := toDocument(in)
	if got := toDomain(doc); !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(created) {
		t.Fatalf("record returned by Create lost precision: %v", got.CreatedAt)
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var stored bson.M
	if err := bson.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	dt, ok := stored["created_at"].(primitive.DateTime)
	if !ok {
		t.Fatalf("created_at stored as %T, want BSON datetime", stored["created_at"])
	}
	if !dt.Time().Equal(created.Truncate(time.Millisecond)) {
		t.Fatalf("unexpected stored time %v", dt.Time())
	}
}
