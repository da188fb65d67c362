package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/trading-simulator/internal/core/domain"
	"github.com/99minutos/trading-simulator/internal/core/ports"
)

const activityCollection = "account_activity"

// ActivityRepository implements ports.ActivityRepository using MongoDB.
type ActivityRepository struct {
	col *mongo.Collection
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{col: db.Collection(activityCollection)}
}

var _ ports.ActivityRepository = (*ActivityRepository)(nil)

type activityDoc struct {
	UserID     int64                `bson:"user_id"`
	Username   string               `bson:"username"`
	Kind       string               `bson:"kind"`
	Symbol     string               `bson:"symbol,omitempty"`
	Shares     int64                `bson:"shares,omitempty"`
	Amount     primitive.Decimal128 `bson:"amount"`
	At         time.Time            `bson:"at"`
	RecordedAt time.Time            `bson:"recorded_at"`
}

func toActivityDoc(a *domain.Activity) (activityDoc, error) {
	amount, err := primitive.ParseDecimal128(a.Amount.String())
	if err != nil {
		return activityDoc{}, fmt.Errorf("encode amount: %w", err)
	}
	return activityDoc{
		UserID:     a.UserID,
		Username:   a.Username,
		Kind:       string(a.Kind),
		Symbol:     a.Symbol,
		Shares:     a.Shares,
		Amount:     amount,
		At:         a.At.UTC(),
		RecordedAt: time.Now().UTC(),
	}, nil
}

func (d activityDoc) toDomain() domain.Activity {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		amount = decimal.Zero
	}
	return domain.Activity{
		UserID:   d.UserID,
		Username: d.Username,
		Kind:     domain.ActivityKind(d.Kind),
		Symbol:   d.Symbol,
		Shares:   d.Shares,
		Amount:   amount,
		At:       d.At,
	}
}

// Insert persists an entry to the account_activity audit collection.
func (r *ActivityRepository) Insert(ctx context.Context, a *domain.Activity) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toActivityDoc(a)
	if err != nil {
		return err
	}
	_, err = r.col.InsertOne(ctx, doc)
	return err
}

// ListByUser returns the user's most recent entries, newest first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []activityDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}

	out := make([]domain.Activity, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EnsureIndexes creates necessary indexes on the activity collection.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
