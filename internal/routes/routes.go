package routes

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"qarte_back_end/internal/engine"
	"qarte_back_end/internal/handlers/order"
	"qarte_back_end/internal/handlers/payement"
	"qarte_back_end/internal/handlers/restaurant"
	"qarte_back_end/internal/middleware"
	"qarte_back_end/internal/models"
)

func RegisterRoutes(r *gin.Engine, eng *engine.Engine, store engine.OrderStore) {
	corsConfig := cors.DefaultConfig()
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = strings.Split(origins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	payH := &payement.Handler{Engine: eng}
	orderH := &order.Handler{Engine: eng, Store: store}
	restH := &restaurant.Handler{Store: store}

	staffRoles := []string{models.RoleKitchen, models.RoleStaff, models.RoleOwner, models.RoleAdmin}

	api := r.Group("/api")

	// Storefront public (accès par QR code, sans compte)
	api.POST("/checkout", middleware.CheckoutRateLimit(), payH.CreateCheckoutSession)
	api.POST("/webhooks/stripe", payH.StripeWebhook)

	// Espace authentifié (dashboard, affichage cuisine)
	auth := api.Group("", middleware.AuthRequired())
	auth.GET("/orders/:id", orderH.GetOrder)
	auth.PATCH("/orders/:id/status", middleware.RequireRole(staffRoles...), orderH.UpdateStatus)
	auth.PATCH("/orders/:id/items/:itemId/status", middleware.RequireRole(staffRoles...), orderH.UpdateItemStatus)
	auth.GET("/restaurants/:id/orders", orderH.ListByRestaurant)
	auth.GET("/restaurants/:id/notifications", restH.Notifications)
	auth.GET("/restaurants/:id/tables/:tableId/qr",
		middleware.RequireRole(models.RoleOwner, models.RoleAdmin), restH.TableQR)
	auth.GET("/live/:restaurantId", orderH.Live)
}
