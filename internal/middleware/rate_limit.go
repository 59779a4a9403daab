package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"qarte_back_end/internal/database"
)

const (
	// Limites du checkout public
	CheckoutMaxRequests = 10
	CheckoutWindow      = 1 * time.Minute
)

// CheckoutRateLimit limite les créations de session de paiement par IP.
// Le storefront est public (accès par QR code, sans compte) : sans cette
// limite n'importe qui peut marteler l'API Stripe.
func CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		key := "checkout_attempts:" + c.ClientIP()

		pipe := database.Redis.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, CheckoutWindow)
		if _, err := pipe.Exec(ctx); err != nil {
			// Redis indisponible : on laisse passer plutôt que de bloquer les paiements
			log.Printf("⚠️ Rate limit indisponible: %v", err)
			c.Next()
			return
		}

		if incr.Val() > CheckoutMaxRequests {
			ttl := database.Redis.TTL(ctx, key).Val()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de tentatives de paiement. Réessayez dans un instant",
				"retry_after": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
