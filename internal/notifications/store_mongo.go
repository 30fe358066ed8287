package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	mongopkg "github.com/angelmondragon/blogqna-backend/pkg/mongo"
	"github.com/angelmondragon/blogqna-backend/pkg/pagination"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps notifications in their own collection and the ordered
// history as an array of ids on the user document. The two writes are not
// atomic: when the $push fails the inserted record is deleted again.
type MongoStore struct {
	users         *mongo.Collection
	notifications *mongo.Collection
}

func NewMongoStore(client *mongopkg.Client) *MongoStore {
	db := client.Database()
	return &MongoStore{
		users:         db.Collection(mongopkg.CollectionUsers),
		notifications: db.Collection(mongopkg.CollectionNotifications),
	}
}

func (s *MongoStore) Append(ctx context.Context, n *models.Notification) error {
	err := s.users.FindOne(ctx, bson.M{"_id": n.TargetUserID}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if mongopkg.IsNotFound(err) {
		return &StoreError{Op: OpFindUser, Err: ErrUserNotFound}
	}
	if err != nil {
		return &StoreError{Op: OpFindUser, Err: err}
	}

	if _, err := s.notifications.InsertOne(ctx, n); err != nil {
		return &StoreError{Op: OpCreateNotification, Err: err}
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": n.TargetUserID},
		bson.M{"$push": bson.M{"notifications": n.ID}},
	)
	if err == nil && res.MatchedCount == 0 {
		err = ErrUserNotFound
	}
	if err != nil {
		return &StoreError{Op: OpAppendRef, Err: s.compensate(n.ID, err)}
	}
	return nil
}

// compensate removes an orphaned notification record. It runs detached from the
// request context so a cancelled caller still leaves no record behind.
func (s *MongoStore) compensate(id string, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.notifications.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

type userHistory struct {
	Notifications []string `bson:"notifications"`
}

func (s *MongoStore) History(ctx context.Context, userID string) ([]string, error) {
	var doc userHistory
	err := s.users.FindOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"notifications": 1})).Decode(&doc)
	if mongopkg.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Notifications, nil
}

func (s *MongoStore) List(ctx context.Context, q ListQuery) ([]models.Notification, error) {
	filter := bson.D{{Key: "targetUserId", Value: q.UserID}}
	if q.UnreadOnly {
		filter = append(filter, bson.E{Key: "read", Value: false})
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
	cur, err := s.notifications.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	rows := []models.Notification{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MongoStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.notifications.CountDocuments(ctx, bson.M{"targetUserId": userID, "read": false})
}

func (s *MongoStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.notifications.UpdateMany(ctx,
		bson.M{"targetUserId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

type notificationID struct {
	ID string `bson:"_id"`
}

func (s *MongoStore) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cur, err := s.notifications.Find(ctx,
		bson.M{"read": true, "createdAt": bson.M{"$lt": cutoff}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return 0, err
	}
	var docs []notificationID
	if err := cur.All(ctx, &docs); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	if _, err := s.users.UpdateMany(ctx,
		bson.M{"notifications": bson.M{"$in": ids}},
		bson.M{"$pull": bson.M{"notifications": bson.M{"$in": ids}}},
	); err != nil {
		return 0, err
	}
	res, err := s.notifications.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
