package etl

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/moviesync/pkg/models"
)

const mongoWriteTimeout = 30 * time.Second

// MongoIndex stores each stream in a collection of the same name, keyed by
// _id.
type MongoIndex struct {
	DB *mongo.Database
}

func NewMongoIndex(client *mongo.Client, database string) *MongoIndex {
	return &MongoIndex{DB: client.Database(database)}
}

// Upsert replaces the whole document so a rewrite leaves no stale fields.
func (m *MongoIndex) Upsert(ctx context.Context, collection, id string, doc models.Document) error {
	ctx, cancel := context.WithTimeout(ctx, mongoWriteTimeout)
	defer cancel()

	coll := m.DB.Collection(collection)
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		err = fmt.Errorf("mongo replace %s/%s: %w", collection, id, err)
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			return MarkTransient(err)
		}
		return err
	}
	return nil
}
