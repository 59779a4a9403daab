package payement

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"

	"qarte_back_end/internal/models"
)

// CreateCheckoutSession crée la session de paiement Stripe pour le panier
// d'un convive. Le panier complet part dans les métadonnées de la session :
// au retour du webhook, la commande est créée depuis cet instantané, sans
// re-consulter le menu (les prix facturés et enregistrés coïncident).
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req struct {
		RestaurantID string            `json:"restaurant_id" binding:"required"`
		TableID      string            `json:"table_id"`
		Items        []models.CartItem `json:"items" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}
	for _, item := range req.Items {
		if item.MenuItemID == "" || item.Quantity <= 0 || item.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Ligne de panier invalide", "menu_item_id": item.MenuItemID})
			return
		}
	}

	cartJSON, err := json.Marshal(req.Items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sérialisation panier"})
		return
	}

	baseURL := os.Getenv("STOREFRONT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("eur"),
				UnitAmount: stripe.Int64(item.Price),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(baseURL + "/merci?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(baseURL + "/panier"),
		Metadata: map[string]string{
			"restaurant_id": req.RestaurantID,
			"table_id":      req.TableID,
			"cart":          string(cartJSON),
		},
	}

	s, err := session.New(params)
	if err != nil {
		log.Printf("❌ Erreur Stripe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création paiement"})
		return
	}

	log.Printf("💳 Session checkout créée : %s (%d articles) pour le restaurant %s",
		s.ID, len(req.Items), req.RestaurantID)

	c.JSON(http.StatusOK, gin.H{
		"session_id":   s.ID,
		"checkout_url": s.URL,
	})
}
