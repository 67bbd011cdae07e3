package usermeta

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore keeps one document per user. Values are stored as JSON strings
// so arrays and scalars round-trip without BSON conversion.
type MongoStore struct {
	coll *mongo.Collection
}

type mongoUser struct {
	ID      string            `bson:"_id"`
	Public  map[string]string `bson:"public,omitempty"`
	Private map[string]string `bson:"private,omitempty"`
}

// NewMongoStore uses the "user_metadata" collection of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("user_metadata")}
}

func (s *MongoStore) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	var doc mongoUser
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return newUser(userID), nil
	}
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}

	u := newUser(userID)
	for k, v := range doc.Public {
		u.PublicMetadata[k] = json.RawMessage(v)
	}
	for k, v := range doc.Private {
		u.PrivateMetadata[k] = json.RawMessage(v)
	}
	return u, nil
}

func (s *MongoStore) UpdateUserMetadata(ctx context.Context, userID string, upd Update) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	set := bson.M{}
	for k, v := range upd.Public {
		set["public."+k] = string(v)
	}
	for k, v := range upd.Private {
		set["private."+k] = string(v)
	}
	set["updated_at"] = time.Now().UTC()

	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set}, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return errors.Join(ErrUpdateFailed, err)
	}
	return nil
}

func (s *MongoStore) ListUserIDs(ctx context.Context, fn func(string) error) error {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return errors.Join(ErrListFailed, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return errors.Join(ErrListFailed, err)
		}
		if err := fn(doc.ID); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return errors.Join(ErrListFailed, err)
	}
	return nil
}
