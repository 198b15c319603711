package repository

import (
	"context"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gocql/gocql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/nathanyu/order-fanout/internal/config"
	"github.com/nathanyu/order-fanout/internal/fanout"
	"github.com/nathanyu/order-fanout/internal/queue"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

var dbTracer = otel.Tracer("repository")

const connectTimeout = 5 * time.Second

// Stores holds one handle per backing store. It is built once at startup
// and passed to the components that need it. A nil handle means the store
// is not configured; every repository built from it reports that instead
// of failing.
type Stores struct {
	SQL       *sqlx.DB
	Mongo     *mongo.Client
	MongoDB   *mongo.Database
	Cassandra *gocql.ClusterConfig
	Neo4j     neo4j.DriverWithContext
	Redis     *redis.Client
	NATS      *nats.Conn

	wideColumn *WideColumnRepository
}

// Connect opens every configured store. Clients that reconnect lazily
// (SQL, Mongo, Neo4j, Redis) are kept even when the first ping fails so a
// store that starts late is used once it is up.
func Connect(ctx context.Context, cfg *config.Config) *Stores {
	s := &Stores{}

	if cfg.Relational.DSN != "" {
		db, err := sqlx.Open(cfg.Relational.Driver, cfg.Relational.DSN)
		if err != nil {
			slog.Warn("relational store disabled", "driver", cfg.Relational.Driver, "error", err)
		} else {
			db.SetMaxOpenConns(10)
			db.SetConnMaxIdleTime(time.Minute)
			s.SQL = db
			ping(ctx, "relational", db.PingContext)
		}
	}

	if cfg.Mongo.URI != "" {
		client, err := mongo.Connect(ctx, options.Client().
			ApplyURI(cfg.Mongo.URI).
			SetServerSelectionTimeout(2*time.Second).
			SetConnectTimeout(connectTimeout))
		if err != nil {
			slog.Warn("document store disabled", "error", err)
		} else {
			s.Mongo = client
			s.MongoDB = client.Database(cfg.Mongo.Database)
			ping(ctx, "document", func(ctx context.Context) error { return client.Ping(ctx, nil) })
		}
	}

	if len(cfg.Cassandra.Hosts) > 0 {
		cluster := gocql.NewCluster(cfg.Cassandra.Hosts...)
		cluster.Keyspace = cfg.Cassandra.Keyspace
		cluster.Consistency = gocql.One
		cluster.Timeout = connectTimeout
		cluster.ConnectTimeout = connectTimeout
		if cfg.Cassandra.Username != "" {
			cluster.Authenticator = gocql.PasswordAuthenticator{
				Username: cfg.Cassandra.Username,
				Password: cfg.Cassandra.Password,
			}
		}
		s.Cassandra = cluster
	}

	if cfg.Neo4j.URI != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI,
			neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, ""))
		if err != nil {
			slog.Warn("graph store disabled", "error", err)
		} else {
			s.Neo4j = driver
			ping(ctx, "graph", driver.VerifyConnectivity)
		}
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: 2 * time.Second,
		})
		s.Redis = client
		ping(ctx, "keyvalue", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	}

	if cfg.NATS.URL != "" {
		conn, err := queue.Connect(cfg.NATS.URL, cfg.ServiceName)
		if err != nil {
			slog.Warn("event publishing disabled", "error", err)
		} else {
			s.NATS = conn
		}
	}

	return s
}

func ping(ctx context.Context, store string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Warn("store unreachable at startup, will retry on use", "store", store, "error", err)
		return
	}
	slog.Info("store connected", "store", store)
}

func (s *Stores) Catalog() *CatalogRepository {
	return NewCatalogRepository(s.SQL)
}

func (s *Stores) Seeder() *CatalogSeeder {
	return NewCatalogSeeder(s.SQL)
}

func (s *Stores) Documents() *DocumentRepository {
	if s.MongoDB == nil {
		return NewDocumentRepository(nil)
	}
	return NewDocumentRepository(s.MongoDB.Collection(TicketCollection))
}

func (s *Stores) WideColumn() *WideColumnRepository {
	if s.wideColumn == nil {
		s.wideColumn = NewWideColumnRepository(s.Cassandra)
	}
	return s.wideColumn
}

// Sinks returns the fanout targets in a fixed order. The event publisher
// is only included when NATS is configured.
func (s *Stores) Sinks(subject string) []fanout.Sink {
	sinks := []fanout.Sink{
		s.Documents(),
		s.WideColumn(),
		NewInventoryRepository(s.SQL),
		NewGraphRepository(s.Neo4j),
		NewKeyValueRepository(s.Redis),
	}
	if s.NATS != nil {
		sinks = append(sinks, queue.NewOrderPublisher(s.NATS, subject))
	}
	return sinks
}

// EnsureSchema creates the wide-column table and the document indexes.
// Failures are logged; the stores may be provisioned externally.
func (s *Stores) EnsureSchema(ctx context.Context) {
	if err := s.WideColumn().EnsureSchema(ctx); err != nil {
		slog.Warn("wide-column schema bootstrap failed", "error", err)
	}
	if err := s.Documents().EnsureIndexes(ctx); err != nil {
		slog.Warn("document index bootstrap failed", "error", err)
	}
}

func (s *Stores) Close(ctx context.Context) {
	if s.NATS != nil {
		s.NATS.Drain()
	}
	if s.wideColumn != nil {
		s.wideColumn.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
	if s.Neo4j != nil {
		s.Neo4j.Close(ctx)
	}
	if s.Mongo != nil {
		s.Mongo.Disconnect(ctx)
	}
	if s.SQL != nil {
		s.SQL.Close()
	}
}
