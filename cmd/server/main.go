package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"

	"qarte_back_end/internal/config"
	"qarte_back_end/internal/database"
	"qarte_back_end/internal/engine"
	"qarte_back_end/internal/events"
	"qarte_back_end/internal/routes"
	"qarte_back_end/internal/store"
	"qarte_back_end/internal/utils"
)

func main() {
	config.Load()

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	log.Println("✅ Stripe initialisé")

	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Fatal("❌ STRIPE_WEBHOOK_SECRET manquant : impossible de vérifier les confirmations de paiement")
	}

	database.ConnectDatabases()
	defer database.CloseScylla()

	orderStore := store.NewScyllaStore()
	bus := events.NewRedisBus(database.Redis)
	dispatcher := events.NewDispatcher(orderStore, bus)

	eng := engine.New(orderStore, dispatcher, webhookSecret)
	if os.Getenv("SMTP_HOST") != "" {
		eng.Mailer = utils.SMTPMailer{}
		log.Println("✅ Reçus par e-mail activés")
	} else {
		log.Println("⚠️ SMTP_HOST absent — reçus par e-mail désactivés")
	}

	r := gin.Default()
	routes.RegisterRoutes(r, eng, orderStore)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur Qarte lancé sur le port", port)
	r.Run(":" + port)
}
