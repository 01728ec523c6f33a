package readmodel

import (
	"context"

	"github.com/wyfcoding/allowance/xerrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore 基于 MongoDB 的读模型存储实现。
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore 创建 MongoDB 读模型存储。
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{db: client.Database(database)}
}

// Upsert 以 _id 为键整篇替换文档。
func (s *MongoStore) Upsert(ctx context.Context, collection, id string, doc any) error {
	filter := bson.M{"_id": id}

	wrapped := bson.M{"_id": id, "data": doc}
	opts := options.Replace().SetUpsert(true)

	if _, err := s.db.Collection(collection).ReplaceOne(ctx, filter, wrapped, opts); err != nil {
		return xerrors.Unavailable("read model upsert failed", err).
			WithContext("collection", collection).
			WithContext("id", id)
	}

	return nil
}

// Delete 删除文档。
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return xerrors.Unavailable("read model delete failed", err).
			WithContext("collection", collection).
			WithContext("id", id)
	}

	return nil
}
