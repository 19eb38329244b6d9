package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ObservationCollection = "ledger_observations"

type mongoObservation struct {
	ledger.Observation `bson:",inline"`
	ExpiresAt          *time.Time `bson:"expires_at,omitempty"`
}

// MongoObservationStore keeps the audit trail in a MongoDB collection. With a
// non-zero retention each document carries expires_at for a TTL index.
type MongoObservationStore struct {
	coll      *mongo.Collection
	retention time.Duration
}

func NewMongoObservationStore(db *mongo.Database, retention time.Duration) *MongoObservationStore {
	return &MongoObservationStore{coll: db.Collection(ObservationCollection), retention: retention}
}

func (s *MongoObservationStore) Record(ctx context.Context, o ledger.Observation) error {
	doc := mongoObservation{Observation: o}
	if s.retention > 0 {
		exp := o.At.Add(s.retention)
		doc.ExpiresAt = &exp
	}
	_, err := s.coll.InsertOne(ctx, doc)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to insert observation %s: %w", o.ID, err)
	}
	return nil
}

func (s *MongoObservationStore) History(ctx context.Context, game string, limit int) ([]ledger.Observation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}}).SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, bson.M{"game": game}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations of game %s: %w", game, err)
	}
	defer cur.Close(ctx)

	var docs []mongoObservation
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]ledger.Observation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Observation)
	}
	return out, nil
}
