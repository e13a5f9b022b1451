package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore gère la révocation des JWT et les comptes désactivés
type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

// --- Blacklist JWT (révocation avant expiration) ---

// BlacklistToken révoque un token jusqu'à son expiration
func (s *TokenStore) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, fmt.Sprintf("blacklist:%s", tokenID), "revoked", ttl).Err()
}

func (s *TokenStore) IsTokenBlacklisted(ctx context.Context, tokenID string) bool {
	exists, err := s.rdb.Exists(ctx, fmt.Sprintf("blacklist:%s", tokenID)).Result()
	if err != nil {
		log.Printf("⚠️ Erreur vérification blacklist: %v", err)
		return false
	}
	return exists > 0
}

// --- Comptes désactivés ---

// DisableUser invalide immédiatement les sessions d'un compte inactif
func (s *TokenStore) DisableUser(ctx context.Context, userID string) error {
	return s.rdb.Set(ctx, fmt.Sprintf("disabled:%s", userID), "true", 0).Err()
}

func (s *TokenStore) EnableUser(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, fmt.Sprintf("disabled:%s", userID)).Err()
}

func (s *TokenStore) IsUserDisabled(ctx context.Context, userID string) bool {
	exists, err := s.rdb.Exists(ctx, fmt.Sprintf("disabled:%s", userID)).Result()
	if err != nil {
		log.Printf("⚠️ Erreur vérification compte: %v", err)
		return false
	}
	return exists > 0
}
