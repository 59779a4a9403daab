package order

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qarte_back_end/internal/engine"
	"qarte_back_end/internal/models"
)

// Handler porte les dépendances des endpoints commandes.
type Handler struct {
	Engine *engine.Engine
	Store  engine.OrderStore
}

// actorFrom reconstruit l'identité explicite passée au moteur depuis les
// claims posés par le middleware JWT.
func actorFrom(c *gin.Context) engine.Actor {
	return engine.Actor{
		ID:           c.GetString("user_id"),
		Role:         c.GetString("role"),
		RestaurantID: c.GetString("restaurant_id"),
	}
}

// sameRestaurant vérifie que l'acteur appartient au restaurant visé.
// Les admins de la plateforme voient tout.
func sameRestaurant(c *gin.Context, restaurantID string) bool {
	return c.GetString("role") == models.RoleAdmin || c.GetString("restaurant_id") == restaurantID
}

// GetOrder renvoie une commande avec ses lignes.
func (h *Handler) GetOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Store.GetOrder(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		log.Println("❌ Erreur lecture commande:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	if !sameRestaurant(c, order.RestaurantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Commande d'un autre restaurant"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateStatus traite PATCH /api/orders/:id/status : la machine à états
// valide l'arête et le rôle, l'erreur nomme l'arête refusée.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Paid   *bool  `json:"paid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	updated, err := h.Engine.Transition(ctx, c.Param("id"), actorFrom(c), req.Status, req.Paid)
	if err != nil {
		h.renderTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// UpdateItemStatus traite PATCH /api/orders/:id/items/:itemId/status.
func (h *Handler) UpdateItemStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	updated, err := h.Engine.TransitionItem(ctx, c.Param("id"), c.Param("itemId"), actorFrom(c), req.Status)
	if err != nil {
		h.renderTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) renderTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
	case errors.Is(err, engine.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Println("❌ Erreur transition:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
	}
}

// ListByRestaurant renvoie les commandes d'un restaurant, plus récentes
// d'abord. C'est le refetch déclenché par le signal orders-updated.
func (h *Handler) ListByRestaurant(c *gin.Context) {
	restaurantID := c.Param("id")
	if !sameRestaurant(c, restaurantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Restaurant non autorisé"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	orders, err := h.Store.ListOrdersByRestaurant(ctx, restaurantID, 50)
	if err != nil {
		log.Println("❌ Erreur liste commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
