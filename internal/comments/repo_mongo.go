package comments

import (
	"context"

	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	mongopkg "github.com/angelmondragon/blogqna-backend/pkg/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(client *mongopkg.Client) *MongoRepository {
	return &MongoRepository{coll: client.Database().Collection(mongopkg.CollectionComments)}
}

func (r *MongoRepository) Create(ctx context.Context, comment *models.Comment) error {
	_, err := r.coll.InsertOne(ctx, comment)
	return err
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		if mongopkg.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

func (r *MongoRepository) ListTopLevel(ctx context.Context, postID string, limit int) ([]models.Comment, error) {
	filter := bson.M{"post": postID, "parentComment": bson.M{"$exists": false}}
	return r.find(ctx, filter, limit)
}

func (r *MongoRepository) ListReplies(ctx context.Context, parentIDs []string, limit int) ([]models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"parentComment": bson.M{"$in": parentIDs}}, limit)
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, limit int) ([]models.Comment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var rows []models.Comment
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
