package payement

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qarte_back_end/internal/engine"
)

// Handler porte les dépendances des endpoints de paiement.
type Handler struct {
	Engine *engine.Engine
}

// StripeWebhook reçoit les livraisons webhook Stripe et les passe à
// l'intake. La livraison est au moins une fois : les doublons sont
// absorbés par l'intake, un échec ici se traduit par une relivraison
// pilotée par Stripe.
func (h *Handler) StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	order, err := h.Engine.IngestPaymentConfirmation(ctx, payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrAuthenticity):
			log.Println("❌ Signature Stripe invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
		case errors.Is(err, engine.ErrBadConfirmation):
			log.Println("⚠️ Confirmation inexploitable:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Métadonnées invalides"})
		default:
			// Erreur de persistance : on répond 500 pour que Stripe relivre.
			log.Println("❌ Intake échoué:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		}
		return
	}

	if order == nil {
		// Type d'événement non suivi, acquitté sans suite.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "order_id": order.ID})
}
