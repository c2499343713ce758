package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/internal/store"
	"leadflow/pkg/health"
	"leadflow/pkg/migrations"
)

type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// Connect opens the clients the configured store and rule cache need.
// On error every client opened so far is closed.
func (dc *DatabaseConnector) Connect(ctx context.Context) (store.Connections, error) {
	var conns store.Connections
	var err error

	needPostgres := dc.Config.Store.Type == constants.StoreTypePostgres
	needMongo := dc.Config.Store.Type == constants.StoreTypeMongoDB
	needRedis := dc.Config.Automation.RuleCache.Enabled

	if needPostgres {
		if conns.Postgres, err = dc.InitPostgreSQL(ctx); err != nil {
			return conns, err
		}
	}
	if needMongo {
		if conns.Mongo, err = dc.InitMongoDB(ctx); err != nil {
			dc.ShutdownDatabases(ctx, conns)
			return store.Connections{}, err
		}
	}
	if needRedis {
		if conns.Redis, err = dc.InitRedis(ctx); err != nil {
			dc.ShutdownDatabases(ctx, conns)
			return store.Connections{}, err
		}
	}
	return conns, nil
}

// RegisterHealthChecks adds a check per open client. Redis only backs the
// rule cache, so its failure degrades the service instead of failing it.
func (dc *DatabaseConnector) RegisterHealthChecks(registry *health.CheckerRegistry, conns store.Connections) {
	if conns.Postgres != nil {
		registry.Register(health.NewPostgreSQLChecker(conns.Postgres))
	}
	if conns.Mongo != nil {
		registry.Register(health.NewMongoDBChecker(conns.Mongo))
	}
	if conns.Redis != nil {
		registry.RegisterOptional(health.NewRedisChecker(conns.Redis))
	}
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	if dc.Config.Database.Redis.Host == "" {
		return nil, fmt.Errorf("redis host is not configured")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", dc.Config.Database.Redis.Host, dc.Config.Database.Redis.Port),
		Password: dc.Config.Database.Redis.Password,
		DB:       dc.Config.Database.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.InfowCtx(ctx, "Redis connected successfully")
	return rdb, nil
}

func (dc *DatabaseConnector) InitPostgreSQL(ctx context.Context) (*sql.DB, error) {
	pg := dc.Config.Database.Postgres
	if pg.Host == "" {
		return nil, fmt.Errorf("postgres host is not configured")
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pg.User,
		pg.Password,
		pg.Host,
		pg.Port,
		pg.DBName,
		pg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dc.Config.Database.RunMigrations {
		if err := store.RunPostgresMigrations(db, dc.Config.Database.MigrationsDir); err != nil {
			db.Close()
			return nil, err
		}
		dc.Logger.InfowCtx(ctx, "PostgreSQL migrations applied", "dir", dc.Config.Database.MigrationsDir)
	}

	dc.Logger.InfowCtx(ctx, "PostgreSQL connected successfully")
	return db, nil
}

func (dc *DatabaseConnector) InitMongoDB(ctx context.Context) (*mongo.Client, error) {
	if dc.Config.Database.MongoDB.URI == "" {
		return nil, fmt.Errorf("mongodb uri is not configured")
	}

	mongoOpts := options.Client().ApplyURI(dc.Config.Database.MongoDB.URI)
	mongoClient, err := mongo.Connect(ctx, mongoOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := mongoClient.Ping(ctx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if dc.Config.Database.RunMigrations {
		db := mongoClient.Database(dc.Config.Database.MongoDB.Database)
		if err := migrations.EnsureMongoCollections(ctx, db); err != nil {
			mongoClient.Disconnect(ctx)
			return nil, err
		}
	}

	dc.Logger.InfowCtx(ctx, "MongoDB connected successfully")
	return mongoClient, nil
}

func (dc *DatabaseConnector) ShutdownDatabases(ctx context.Context, conns store.Connections) []error {
	var errs []error

	if conns.Redis != nil {
		if err := conns.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if conns.Postgres != nil {
		if err := conns.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close error: %w", err))
		}
	}

	if conns.Mongo != nil {
		if err := conns.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect error: %w", err))
		}
	}

	return errs
}
