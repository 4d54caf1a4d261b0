package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/99minutos/template-backend/internal/core/domain"
)

const (
	usersCollection    = "users"
	countersCollection = "counters"
	userSequence       = "users"
)

// UserRepository stores users in MongoDB. Numeric ids come from a counters
// collection so they match the other stores.
type UserRepository struct {
	users    *mongo.Collection
	counters *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users:    db.Collection(usersCollection),
		counters: db.Collection(countersCollection),
	}
}

type userDocument struct {
	ID         uint64    `bson:"_id"`
	TenantID   uint64    `bson:"tenant_id"`
	Username   string    `bson:"username"`
	Email      string    `bson:"email,omitempty"`
	Password   string    `bson:"password_hash"`
	FirstName  string    `bson:"first_name,omitempty"`
	LastName   string    `bson:"last_name,omitempty"`
	Status     string    `bson:"status"`
	Source     string    `bson:"source"`
	Roles      []string  `bson:"roles,omitempty"`
	TotpSecret string    `bson:"totp_secret,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type counterDocument struct {
	Seq uint64 `bson:"seq"`
}

// EnsureIndexes creates the unique username and email indexes. Email is
// sparse so users without one do not collide.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	_, err := r.users.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	doc := toDocument(user)
	doc.ID = id

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return toDomain(doc), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) SoftDelete(ctx context.Context, id uint64) error {
	return r.set(ctx, id, bson.M{"status": string(domain.StatusDeleted)})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint64, digest string) error {
	return r.set(ctx, id, bson.M{"password_hash": digest})
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.users.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *UserRepository) nextID(ctx context.Context) (uint64, error) {
	var c counterDocument
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": userSequence},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("next user id: %w", err)
	}
	return c.Seq, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return toDomain(&doc), nil
}

func (r *UserRepository) set(ctx context.Context, id uint64, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func toDocument(u *domain.User) *userDocument {
	return &userDocument{
		ID:         u.ID,
		TenantID:   u.TenantID,
		Username:   u.Username,
		Email:      u.Email,
		Password:   u.Password,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Status:     string(u.Status),
		Source:     string(u.Source),
		Roles:      u.RoleIDs(),
		TotpSecret: u.TotpSecret,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func toDomain(d *userDocument) *domain.User {
	u := &domain.User{
		ID:         d.ID,
		TenantID:   d.TenantID,
		Username:   d.Username,
		Email:      d.Email,
		Password:   d.Password,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Status:     domain.UserStatus(d.Status),
		Source:     domain.UserSource(d.Source),
		TotpSecret: d.TotpSecret,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
	for _, id := range d.Roles {
		u.Roles = append(u.Roles, domain.Role{ID: id})
	}
	return u
}
