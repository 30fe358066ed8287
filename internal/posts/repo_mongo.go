package posts

import (
	"context"

	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	mongopkg "github.com/angelmondragon/blogqna-backend/pkg/mongo"
	"github.com/angelmondragon/blogqna-backend/pkg/pagination"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository keeps likes as an array of user ids on the post document.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(client *mongopkg.Client) *MongoRepository {
	return &MongoRepository{coll: client.Database().Collection(mongopkg.CollectionPosts)}
}

func (r *MongoRepository) Create(ctx context.Context, post *models.Post) error {
	if post.Likes == nil {
		post.Likes = []string{}
	}
	_, err := r.coll.InsertOne(ctx, post)
	return err
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if mongopkg.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if post.Likes == nil {
		post.Likes = []string{}
	}
	return &post, nil
}

func (r *MongoRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	pulled, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
	if err != nil {
		return false, err
	}
	if pulled.ModifiedCount > 0 {
		return false, nil
	}

	added, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	if err != nil {
		return false, err
	}
	if added.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return true, nil
}

func (r *MongoRepository) List(ctx context.Context, q FeedQuery) ([]models.Post, error) {
	filter := bson.D{}
	if q.Type != nil {
		filter = append(filter, bson.E{Key: "type", Value: *q.Type})
	}
	if q.Cursor != nil {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"createdAt": bson.M{"$lt": q.Cursor.CreatedAt}},
			bson.M{"createdAt": q.Cursor.CreatedAt, "_id": bson.M{"$lt": q.Cursor.ID}},
		}})
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(pagination.LimitWithBuffer(q.Limit)))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	rows := []models.Post{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Likes == nil {
			rows[i].Likes = []string{}
		}
	}
	return rows, nil
}
