package database

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"shop_back_end/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// Clients regroupe les connexions partagées ; Elastic et MinIO sont optionnels
type Clients struct {
	Scylla  *ScyllaManager
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
}

// Connect ouvre toutes les connexions décrites par la configuration
func Connect(ctx context.Context, cfg *config.Config) (*Clients, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	scylla, err := NewScyllaManager(cfg.Scylla)
	if err != nil {
		return nil, err
	}
	if cfg.Scylla.AutoSchema {
		if err := scylla.EnsureSchema(ctx); err != nil {
			scylla.Close()
			return nil, err
		}
	}

	rdb, err := ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		scylla.Close()
		return nil, err
	}

	clients := &Clients{Scylla: scylla, Redis: rdb}

	if clients.Elastic, err = ConnectElastic(cfg.Elastic); err != nil {
		log.Printf("⚠️ Elasticsearch indisponible, recherche via ScyllaDB: %v", err)
	}
	if clients.MinIO, err = ConnectMinIO(ctx, cfg.MinIO); err != nil {
		log.Printf("⚠️ MinIO indisponible, upload désactivé: %v", err)
	}

	log.Println("✅ Toutes les bases de données sont connectées")
	return clients, nil
}

func (c *Clients) Close() {
	if c.Scylla != nil {
		c.Scylla.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("⚠️ Fermeture Redis: %v", err)
		}
	}
}

// =============================================
// SCYLLA DB (un keyspace par domaine)
// =============================================

type ScyllaManager struct {
	cfg         config.ScyllaConfig
	consistency gocql.Consistency
	sessions    map[string]*gocql.Session // keyspace → session
	mu          sync.Mutex
}

func NewScyllaManager(cfg config.ScyllaConfig) (*ScyllaManager, error) {
	consistency, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
	if err != nil {
		return nil, fmt.Errorf("consistance ScyllaDB invalide: %w", err)
	}
	return &ScyllaManager{
		cfg:         cfg,
		consistency: consistency,
		sessions:    make(map[string]*gocql.Session),
	}, nil
}

func (sm *ScyllaManager) cluster(keyspace string) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(sm.cfg.Hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = sm.consistency
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = sm.cfg.Timeout
	cluster.NumConns = sm.cfg.NumConns
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = time.Second
	if sm.cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: sm.cfg.Username,
			Password: sm.cfg.Password,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// Session retourne la session d'un keyspace, recréée si elle ne répond plus
func (sm *ScyllaManager) Session(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, ok := sm.sessions[keyspace]; ok {
		if err := session.Query("SELECT now() FROM system.local").Exec(); err == nil {
			return session, nil
		}
		session.Close()
		delete(sm.sessions, keyspace)
	}

	session, err := sm.cluster(keyspace).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", keyspace, err)
	}
	sm.sessions[keyspace] = session
	log.Printf("✅ Nouvelle session ScyllaDB pour keyspace '%s'", keyspace)
	return session, nil
}

func (sm *ScyllaManager) UsersSession() (*gocql.Session, error) {
	return sm.Session(sm.cfg.UsersKeyspace)
}

func (sm *ScyllaManager) ProductsSession() (*gocql.Session, error) {
	return sm.Session(sm.cfg.ProductsKeyspace)
}

func (sm *ScyllaManager) OrdersSession() (*gocql.Session, error) {
	return sm.Session(sm.cfg.OrdersKeyspace)
}

func (sm *ScyllaManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for keyspace, session := range sm.sessions {
		session.Close()
		log.Printf("🔌 Session ScyllaDB fermée pour keyspace '%s'", keyspace)
	}
	sm.sessions = make(map[string]*gocql.Session)
}

// =============================================
// REDIS
// =============================================

func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connexion Redis %s: %w", cfg.Addr, err)
	}
	log.Println("✅ Connecté à Redis")
	return client, nil
}

// =============================================
// ELASTICSEARCH
// =============================================

// ConnectElastic retourne nil sans erreur si aucune adresse n'est configurée
func ConnectElastic(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, nil
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	res, err := client.Info()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch: %s", res.Status())
	}
	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================

// ConnectMinIO crée le bucket s'il n'existe pas ; nil sans erreur si non configuré
func ConnectMinIO(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		log.Printf("🪣 Bucket MinIO '%s' créé", cfg.Bucket)
	}
	log.Println("✅ Connecté à MinIO")
	return client, nil
}
