package usage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mopts "go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoRecord struct {
	UserID        string    `bson:"_id"`
	MonthlyCount  int64     `bson:"monthly_count"`
	DailyCount    int64     `bson:"daily_count"`
	DailyAnchor   string    `bson:"daily_anchor,omitempty"`
	BillingPeriod string    `bson:"billing_period"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func (m mongoRecord) toRecord(trackDaily bool) Record {
	rec := Record{
		UserID:        m.UserID,
		MonthlyCount:  m.MonthlyCount,
		BillingPeriod: Period(m.BillingPeriod),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
	if trackDaily {
		rec.DailyCount = m.DailyCount
		rec.DailyAnchor = parseDay(m.DailyAnchor)
	}
	return rec
}

// MongoStore keeps one document per user. Increment is a single
// findOneAndUpdate with a pipeline update, which MongoDB applies atomically
// to the document.
type MongoStore struct {
	coll *mongo.Collection
	opts *options
}

// NewMongoStore creates a store over coll. Panics if coll is nil.
func NewMongoStore(coll *mongo.Collection, opts ...Option) *MongoStore {
	if coll == nil {
		panic("usage: MongoStore requires a collection")
	}
	return &MongoStore{coll: coll, opts: applyOptions(opts)}
}

// Get returns the effective record, upserting an empty document on first access.
func (s *MongoStore) Get(ctx context.Context, userID string) (Record, error) {
	if err := validateUserID(userID); err != nil {
		return Record{}, err
	}

	now := s.opts.now()

	var doc mongoRecord
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc)
	switch {
	case err == nil:
		return doc.toRecord(s.opts.gate.DailyTrackingAvailable()).Effective(now), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		_, err := s.coll.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: userID}},
			bson.D{{Key: "$setOnInsert", Value: bson.D{
				{Key: "monthly_count", Value: int64(0)},
				{Key: "daily_count", Value: int64(0)},
				{Key: "billing_period", Value: string(PeriodOf(now))},
				{Key: "updated_at", Value: now},
			}}},
			mopts.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return Record{}, unavailable(err)
		}
		return newRecord(userID, now), nil
	default:
		return Record{}, unavailable(err)
	}
}

// Increment applies the counters update in one pipeline stage. Field paths in
// a single $set stage refer to the pre-update document.
func (s *MongoStore) Increment(ctx context.Context, userID string, qty int64) (Record, error) {
	if err := validateIncrement(userID, qty); err != nil {
		return Record{}, err
	}

	now := s.opts.now()
	trackDaily := s.opts.gate.DailyTrackingAvailable()

	set := bson.D{
		{Key: "billing_period", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$billing_period", string(PeriodOf(now))}}}},
		{Key: "monthly_count", Value: bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$monthly_count", int64(0)}}},
			qty,
		}}}},
		{Key: "updated_at", Value: now},
	}
	if trackDaily {
		today := formatDay(now)
		set = append(set,
			bson.E{Key: "daily_count", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$daily_anchor", today}}},
				bson.D{{Key: "$add", Value: bson.A{
					bson.D{{Key: "$ifNull", Value: bson.A{"$daily_count", int64(0)}}},
					qty,
				}}},
				qty,
			}}}},
			bson.E{Key: "daily_anchor", Value: today},
		)
	}

	var doc mongoRecord
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: userID}},
		mongo.Pipeline{{{Key: "$set", Value: set}}},
		mopts.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(mopts.After),
	).Decode(&doc)
	if err != nil {
		return Record{}, unavailable(err)
	}
	return doc.toRecord(trackDaily), nil
}

// ResetMonthly zeroes monthly counters of documents outside next.
func (s *MongoStore) ResetMonthly(ctx context.Context, next Period) (int64, error) {
	if !next.Valid() {
		return 0, ErrInvalidPeriod
	}

	res, err := s.coll.UpdateMany(ctx,
		bson.D{{Key: "billing_period", Value: bson.D{{Key: "$ne", Value: string(next)}}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "monthly_count", Value: int64(0)},
			{Key: "billing_period", Value: string(next)},
			{Key: "updated_at", Value: s.opts.now()},
		}}},
	)
	if err != nil {
		return 0, unavailable(err)
	}
	return res.ModifiedCount, nil
}
