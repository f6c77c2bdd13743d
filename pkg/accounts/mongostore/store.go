// Package mongostore is the MongoDB account store. An account is one document:
//
//	{_id: <account id>, subscription: <raw flag>, usage: {<feature>: <count>}}
//
// Increments use $inc on the single usage.<feature> path.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/quotakit/pkg/accounts"
)

const DefaultCollection = "accounts"

var ErrInvalidFeature = errors.New("mongostore.errors.invalid_feature")

type Store struct {
	coll *mongo.Collection
}

var (
	_ accounts.Store       = (*Store)(nil)
	_ accounts.Incrementer = (*Store)(nil)
)

func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

type flagDoc struct {
	Subscription any `bson:"subscription"`
}

type usageDoc struct {
	Usage map[string]int64 `bson:"usage"`
}

func (s *Store) ReadSubscriptionFlag(ctx context.Context, accountID string) (any, error) {
	var doc flagDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: accountID}},
		options.FindOne().SetProjection(bson.D{{Key: "subscription", Value: 1}}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, accounts.ErrAccountNotFound
		}
		return nil, fmt.Errorf("read subscription flag: %w", err)
	}
	return doc.Subscription, nil
}

func (s *Store) ReadUsageCounter(ctx context.Context, accountID, feature string) (int64, bool, error) {
	path, err := usagePath(feature)
	if err != nil {
		return 0, false, err
	}

	var doc usageDoc
	err = s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: accountID}},
		options.FindOne().SetProjection(bson.D{{Key: path, Value: 1}}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read usage counter: %w", err)
	}

	n, ok := doc.Usage[feature]
	return n, ok, nil
}

func (s *Store) WriteUsageCounter(ctx context.Context, accountID, feature string, value int64) error {
	path, err := usagePath(feature)
	if err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("%w: %d", accounts.ErrInvalidCounter, value)
	}

	_, err = s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: accountID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: path, Value: value}}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("write usage counter: %w", err)
	}
	return nil
}

func (s *Store) IncrementUsageCounter(ctx context.Context, accountID, feature string, delta int64) (int64, error) {
	path, err := usagePath(feature)
	if err != nil {
		return 0, err
	}

	var doc usageDoc
	err = s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: accountID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: path, Value: delta}}}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After).
			SetProjection(bson.D{{Key: path, Value: 1}}),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("increment usage counter: %w", err)
	}
	return doc.Usage[feature], nil
}

func usagePath(feature string) (string, error) {
	if feature == "" || strings.ContainsAny(feature, ".$") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFeature, feature)
	}
	return "usage." + feature, nil
}
