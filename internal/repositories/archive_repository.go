package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/foxncici/mincici/internal/models"
)

// PostArchive mirrors posts into a searchable secondary store. The live
// tree stays the source of truth; the archive exists for text search and
// per-author history queries that the tree cannot serve.
type PostArchive interface {
	Upsert(ctx context.Context, post models.ArchivedPost) error
	Remove(ctx context.Context, postID string) error
	Search(ctx context.Context, query string, skip, limit int64) ([]models.ArchivedPost, error)
	ByUser(ctx context.Context, userID string, skip, limit int64) ([]models.ArchivedPost, error)
}

// MongoPostArchive implements PostArchive on a MongoDB collection.
type MongoPostArchive struct {
	collection *mongo.Collection
}

// NewMongoPostArchive builds the archive over the given collection.
func NewMongoPostArchive(collection *mongo.Collection) *MongoPostArchive {
	return &MongoPostArchive{collection: collection}
}

// Upsert inserts or replaces the mirror document keyed by post id.
func (r *MongoPostArchive) Upsert(ctx context.Context, post models.ArchivedPost) error {
	filter := bson.M{"post_id": post.PostID}
	update := bson.M{"$set": post}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Remove drops the mirror document for a deleted post.
func (r *MongoPostArchive) Remove(ctx context.Context, postID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"post_id": postID})
	return err
}

// Search runs a case-insensitive substring match over post content, newest
// first.
func (r *MongoPostArchive) Search(ctx context.Context, query string, skip, limit int64) ([]models.ArchivedPost, error) {
	filter := bson.M{"content": bson.M{"$regex": query, "$options": "i"}}
	return r.find(ctx, filter, skip, limit)
}

// ByUser lists a user's archived posts, newest first.
func (r *MongoPostArchive) ByUser(ctx context.Context, userID string, skip, limit int64) ([]models.ArchivedPost, error) {
	return r.find(ctx, bson.M{"user_id": userID}, skip, limit)
}

func (r *MongoPostArchive) find(ctx context.Context, filter bson.M, skip, limit int64) ([]models.ArchivedPost, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.ArchivedPost{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
