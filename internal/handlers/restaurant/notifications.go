package restaurant

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"qarte_back_end/internal/engine"
	"qarte_back_end/internal/models"
)

// Handler porte les dépendances des endpoints restaurant.
type Handler struct {
	Store engine.OrderStore
}

func sameRestaurant(c *gin.Context, restaurantID string) bool {
	return c.GetString("role") == models.RoleAdmin || c.GetString("restaurant_id") == restaurantID
}

// Notifications renvoie l'historique durable des événements, plus récent
// d'abord : les badges du dashboard, et le secours des clients qui se
// reconnectent après une coupure du canal temps réel.
func (h *Handler) Notifications(c *gin.Context) {
	restaurantID := c.Param("id")
	if !sameRestaurant(c, restaurantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Restaurant non autorisé"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Store.ListNotifications(ctx, restaurantID, limit)
	if err != nil {
		log.Println("❌ Erreur lecture notifications:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": list})
}
