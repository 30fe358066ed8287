package mongo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates indexes for every collection", func(mt *mtest.T) {
		for range indexModels() {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
		}
		client := FromDatabase(mt.DB)
		require.NoError(mt, client.EnsureIndexes(context.Background()))
	})

	mt.Run("surfaces command errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    85,
			Message: "index options conflict",
			Name:    "IndexOptionsConflict",
		}))
		client := FromDatabase(mt.DB)
		assert.Error(mt, client.EnsureIndexes(context.Background()))
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(mongo.ErrNoDocuments))
	assert.True(t, IsNotFound(fmt.Errorf("find user: %w", mongo.ErrNoDocuments)))
	assert.False(t, IsNotFound(fmt.Errorf("boom")))
}

func TestIndexModelsCoverCollections(t *testing.T) {
	models := indexModels()
	for _, name := range []string{CollectionUsers, CollectionPosts, CollectionComments, CollectionNotifications} {
		assert.NotEmpty(t, models[name], name)
	}
	unique := models[CollectionUsers][0]
	assert.Equal(t, bson.D{{Key: "email", Value: 1}}, unique.Keys)
}
