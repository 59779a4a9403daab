package restaurant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"qarte_back_end/internal/cache"
	"qarte_back_end/internal/engine"
)

// TableQR génère le QR code d'une table : l'URL du storefront avec le
// restaurant et la table pré-remplis. C'est le point d'entrée que le
// restaurateur imprime et colle sur ses tables.
func (h *Handler) TableQR(c *gin.Context) {
	restaurantID := c.Param("id")
	tableID := c.Param("tableId")

	if !sameRestaurant(c, restaurantID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Restaurant non autorisé"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	restaurant, err := cache.GetRestaurantFromCache(ctx, restaurantID, h.Store.GetRestaurant)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant introuvable"})
			return
		}
		log.Println("❌ Erreur lecture restaurant:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	baseURL := os.Getenv("STOREFRONT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	target := fmt.Sprintf("%s/r/%s?table=%s", baseURL, restaurant.Slug, tableID)

	png, err := qrcode.Encode(target, qrcode.Medium, 512)
	if err != nil {
		log.Println("❌ Erreur génération QR code:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération QR code"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
