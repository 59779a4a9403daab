package engine

import (
	"context"

	"qarte_back_end/internal/events"
	"qarte_back_end/internal/models"
)

// OrderStore est la seule interface autorisée à muter commandes et
// notifications ; toute coordination entre requêtes concurrentes passe
// par elle, jamais par de l'état partagé en mémoire.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error)
	ListOrdersByRestaurant(ctx context.Context, restaurantID string, limit int) ([]models.Order, error)

	// CreateOrder crée la commande et ses lignes de façon atomique.
	// Retourne false sans erreur si la session de paiement a déjà été
	// vue : les livraisons dupliquées se départagent côté base.
	CreateOrder(ctx context.Context, order *models.Order) (bool, error)

	// UpdateOrderStatus applique status=to seulement si status=from
	// (écriture conditionnelle). Retourne false si un écrivain
	// concurrent est passé avant.
	UpdateOrderStatus(ctx context.Context, orderID, from, to string, paid *bool) (bool, error)
	UpdateItemStatus(ctx context.Context, orderID, itemID, from, to string) (bool, error)

	SaveNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, restaurantID string, limit int) ([]models.Notification, error)

	GetRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error)
}

// Dispatcher diffuse un événement de changement d'état
// (persistance de la notification, puis publication).
type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event) error
}

// Mailer envoie le reçu d'une nouvelle commande au restaurateur.
type Mailer interface {
	SendNewOrderEmail(to string, restaurant *models.Restaurant, order *models.Order) error
}

// Engine relie l'intake de paiement, la machine à états et le fanout.
type Engine struct {
	Store         OrderStore
	Dispatcher    Dispatcher
	WebhookSecret string
	Mailer        Mailer // optionnel : nil désactive les reçus par e-mail
}

func New(store OrderStore, dispatcher Dispatcher, webhookSecret string) *Engine {
	return &Engine{Store: store, Dispatcher: dispatcher, WebhookSecret: webhookSecret}
}
