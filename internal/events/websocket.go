package events

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// Feed relaie le canal des commandes vers les websockets admin
type Feed struct {
	rdb      *redis.Client
	upgrader websocket.Upgrader
	ping     time.Duration
}

func NewFeed(rdb *redis.Client, allowedOrigins []string) *Feed {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Feed{
		rdb:  rdb,
		ping: 30 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

// Serve est monté derrière le garde admin
func (f *Feed) Serve(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := f.rdb.Subscribe(ctx, Channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("❌ Abonnement %s: %v", Channel, err)
		return
	}
	ch := pubsub.Channel()

	// détecte la fermeture côté client
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{"type": "connected"}); err != nil {
		return
	}

	ticker := time.NewTicker(f.ping)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
