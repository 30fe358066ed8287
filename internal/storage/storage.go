// Package storage picks the persistence backend and hands out the repositories
// and notification store bound to it.
package storage

import (
	"context"
	"fmt"

	"github.com/angelmondragon/blogqna-backend/internal/comments"
	"github.com/angelmondragon/blogqna-backend/internal/notifications"
	"github.com/angelmondragon/blogqna-backend/internal/posts"
	"github.com/angelmondragon/blogqna-backend/internal/users"
	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/angelmondragon/blogqna-backend/pkg/db"
	"github.com/angelmondragon/blogqna-backend/pkg/logger"
	"github.com/angelmondragon/blogqna-backend/pkg/migrate"
	mongopkg "github.com/angelmondragon/blogqna-backend/pkg/mongo"
)

// Backend bundles every persistence collaborator for one backend.
type Backend struct {
	Name          string
	Users         users.Repository
	Posts         posts.Repository
	Comments      comments.Repository
	Notifications notifications.Store

	// SQL is set for the sql backend only.
	SQL   *db.Client
	mongo *mongopkg.Client
}

// Open connects to the backend named by cfg.Store and prepares its schema.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Backend, error) {
	switch {
	case cfg.Store.UsesSQL():
		client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
		if err != nil {
			return nil, fmt.Errorf("open sql backend: %w", err)
		}
		if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("migrate sql backend: %w", err)
		}
		return FromSQL(client), nil
	case cfg.Store.UsesMongo():
		client, err := mongopkg.New(ctx, cfg.Mongo, logg)
		if err != nil {
			return nil, fmt.Errorf("open mongo backend: %w", err)
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			_ = client.Close(context.Background())
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return FromMongo(client), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// FromSQL builds a backend over an open gorm client.
func FromSQL(client *db.Client) *Backend {
	conn := client.DB()
	return &Backend{
		Name:          config.StoreBackendSQL,
		Users:         users.NewSQLRepository(conn),
		Posts:         posts.NewSQLRepository(conn),
		Comments:      comments.NewSQLRepository(conn),
		Notifications: notifications.NewSQLStore(client),
		SQL:           client,
	}
}

// FromMongo builds a backend over a connected mongo client.
func FromMongo(client *mongopkg.Client) *Backend {
	return &Backend{
		Name:          config.StoreBackendMongo,
		Users:         users.NewMongoRepository(client),
		Posts:         posts.NewMongoRepository(client),
		Comments:      comments.NewMongoRepository(client),
		Notifications: notifications.NewMongoStore(client),
		mongo:         client,
	}
}

// Ping reports whether the backend is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	switch {
	case b.SQL != nil:
		return b.SQL.Ping(ctx)
	case b.mongo != nil:
		return b.mongo.Ping(ctx)
	}
	return fmt.Errorf("storage backend not initialized")
}

func (b *Backend) Close(ctx context.Context) error {
	switch {
	case b.SQL != nil:
		return b.SQL.Close()
	case b.mongo != nil:
		return b.mongo.Close(ctx)
	}
	return nil
}
