package database

import (
	"context"
	"fmt"
	"log"

	"shop_back_end/internal/config"
)

var productsTables = []string{
	`CREATE TABLE IF NOT EXISTS %s.products (
		product_id uuid PRIMARY KEY,
		name text,
		description text,
		price decimal,
		stock int,
		category text,
		season text,
		image_url text,
		average_rating double,
		review_count int,
		version int,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS %s.reviews_by_product (
		product_id uuid,
		user_id uuid,
		review_id uuid,
		user_name text,
		rating int,
		comment text,
		status text,
		moderation_comment text,
		moderated_at timestamp,
		moderated_by uuid,
		created_at timestamp,
		updated_at timestamp,
		PRIMARY KEY (product_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS %s.reviews_by_id (
		review_id uuid PRIMARY KEY,
		product_id uuid,
		user_id uuid
	)`,
}

var usersTables = []string{
	`CREATE TABLE IF NOT EXISTS %s.users (
		user_id uuid PRIMARY KEY,
		name text,
		email text,
		password_hash text,
		role text,
		status text,
		provider text,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS %s.users_by_email (
		email text PRIMARY KEY,
		user_id uuid
	)`,
}

var ordersTables = []string{
	`CREATE TABLE IF NOT EXISTS %s.orders (
		order_id uuid PRIMARY KEY,
		user_id uuid,
		status text,
		items text,
		subtotal decimal,
		shipping decimal,
		total decimal,
		payment_method text,
		payment_intent_id text,
		customer_name text,
		customer_phone text,
		customer_address text,
		customer_email text,
		version int,
		created_at timestamp,
		updated_at timestamp,
		delivered_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS %s.orders_by_user (
		user_id uuid,
		created_at timestamp,
		order_id uuid,
		PRIMARY KEY (user_id, created_at, order_id)
	) WITH CLUSTERING ORDER BY (created_at DESC, order_id ASC)`,
}

// KeyspaceSchema : tables d'un keyspace ; %s est remplacé par le keyspace
type KeyspaceSchema struct {
	Keyspace string
	Tables   []string
}

// Schema regroupe les tables par keyspace ; plusieurs domaines peuvent partager le même
func (sm *ScyllaManager) Schema() []KeyspaceSchema {
	return BuildSchema(sm.cfg)
}

func BuildSchema(cfg config.ScyllaConfig) []KeyspaceSchema {
	var out []KeyspaceSchema
	add := func(keyspace string, tables []string) {
		for i := range out {
			if out[i].Keyspace == keyspace {
				out[i].Tables = append(out[i].Tables, tables...)
				return
			}
		}
		out = append(out, KeyspaceSchema{Keyspace: keyspace, Tables: append([]string(nil), tables...)})
	}
	add(cfg.ProductsKeyspace, productsTables)
	add(cfg.UsersKeyspace, usersTables)
	add(cfg.OrdersKeyspace, ordersTables)
	return out
}

// EnsureSchema crée keyspaces et tables manquants
func (sm *ScyllaManager) EnsureSchema(ctx context.Context) error {
	bootstrap, err := sm.cluster("").CreateSession()
	if err != nil {
		return fmt.Errorf("session d'initialisation: %w", err)
	}
	defer bootstrap.Close()

	for _, ks := range sm.Schema() {
		keyspace, tables := ks.Keyspace, ks.Tables
		ddl := fmt.Sprintf(
			"CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}",
			keyspace, sm.cfg.ReplicationFactor)
		if err := bootstrap.Query(ddl).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("création keyspace %s: %w", keyspace, err)
		}
		for _, table := range tables {
			if err := bootstrap.Query(fmt.Sprintf(table, keyspace)).WithContext(ctx).Exec(); err != nil {
				return fmt.Errorf("création table dans %s: %w", keyspace, err)
			}
		}
		log.Printf("📐 Schéma ScyllaDB vérifié pour '%s'", keyspace)
	}
	return nil
}
