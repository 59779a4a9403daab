package order

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"qarte_back_end/internal/database"
	"qarte_back_end/internal/events"
	"qarte_back_end/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Autoriser toutes les origines (à ajuster en production)
		return true
	},
}

// Live ouvre le pont WebSocket vers les canaux d'événements du
// restaurant. L'abonnement n'est pas persisté : il est rétabli à chaque
// connexion, et un client qui a raté des événements se resynchronise via
// GET /notifications et /orders — la base reste la source de vérité.
func (h *Handler) Live(c *gin.Context) {
	restaurantID := c.Param("restaurantId")
	if !sameRestaurant(c, restaurantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Restaurant non autorisé"})
		return
	}

	channels := []string{events.RestaurantChannel(restaurantID)}
	role := c.GetString("role")
	if role == models.RoleKitchen || role == models.RoleAdmin {
		channels = append(channels, events.KitchenChannel)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	pubsub := database.Redis.Subscribe(ctx, channels...)
	defer pubsub.Close()

	ch := pubsub.Channel()

	conn.WriteJSON(map[string]interface{}{
		"event":    "connected",
		"channels": channels,
	})

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// La trame Redis est déjà l'enveloppe JSON du contrat de fil,
			// on la relaie telle quelle.
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-time.After(30 * time.Second):
			// Ping pour garder la connexion active
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
