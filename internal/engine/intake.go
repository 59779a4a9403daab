package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"qarte_back_end/internal/events"
	"qarte_back_end/internal/models"
)

// checkoutMetadata est le schéma strict des métadonnées embarquées dans
// la session Stripe au moment du checkout (voir handlers/payement).
type checkoutMetadata struct {
	RestaurantID string
	TableID      string
	Items        []models.CartItem
}

// IngestPaymentConfirmation convertit une livraison webhook Stripe en
// commande durable, exactement une fois par session de paiement. Stripe
// ne garantit pas la livraison unique : les doublons, même concurrents,
// sont absorbés et retournent la commande existante.
func (e *Engine) IngestPaymentConfirmation(ctx context.Context, payload []byte, sigHeader string) (*models.Order, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, e.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticity, err)
	}

	if event.Type != "checkout.session.completed" {
		log.Printf("ℹ️ Événement Stripe ignoré : %s", event.Type)
		return nil, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfirmation, err)
	}
	if cs.ID == "" {
		return nil, fmt.Errorf("%w: session sans identifiant", ErrBadConfirmation)
	}

	meta, err := parseCheckoutMetadata(cs.Metadata)
	if err != nil {
		return nil, err
	}

	order := buildOrder(cs.ID, meta)
	if cs.AmountTotal != order.TotalAmount {
		// Les prix figés du panier font foi pour le montant enregistré.
		log.Printf("⚠️ Montant Stripe (%d) ≠ total des lignes (%d) pour la session %s",
			cs.AmountTotal, order.TotalAmount, cs.ID)
	}

	created, err := e.Store.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if !created {
		existing, err := e.Store.GetOrderBySession(ctx, cs.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
		log.Printf("🔁 Session %s déjà ingérée, commande %s retournée telle quelle", cs.ID, existing.ID)
		return existing, nil
	}

	log.Printf("✅ Commande %s créée (%d centimes) pour le restaurant %s",
		order.OrderNumber, order.TotalAmount, order.RestaurantID)

	// Le paiement est déjà capturé : un échec de diffusion ne remet
	// jamais en cause la commande, il est seulement journalisé.
	if err := e.Dispatcher.Dispatch(ctx, events.Event{
		Kind:         events.KindNewOrder,
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		Message:      fmt.Sprintf("Nouvelle commande %s", order.OrderNumber),
		Payload:      order,
	}); err != nil {
		log.Printf("❌ Diffusion NEW_ORDER échouée pour %s : %v", order.ID, err)
	}

	e.sendOwnerReceipt(ctx, order)
	return order, nil
}

func parseCheckoutMetadata(md map[string]string) (*checkoutMetadata, error) {
	if len(md) == 0 {
		return nil, fmt.Errorf("%w: métadonnées absentes", ErrBadConfirmation)
	}
	meta := &checkoutMetadata{
		RestaurantID: md["restaurant_id"],
		TableID:      md["table_id"],
	}
	if meta.RestaurantID == "" {
		return nil, fmt.Errorf("%w: restaurant_id manquant", ErrBadConfirmation)
	}
	cart := md["cart"]
	if cart == "" {
		return nil, fmt.Errorf("%w: panier manquant", ErrBadConfirmation)
	}
	if err := json.Unmarshal([]byte(cart), &meta.Items); err != nil {
		return nil, fmt.Errorf("%w: panier illisible (%v)", ErrBadConfirmation, err)
	}
	if len(meta.Items) == 0 {
		return nil, fmt.Errorf("%w: panier vide", ErrBadConfirmation)
	}
	for _, item := range meta.Items {
		if item.MenuItemID == "" || item.Quantity <= 0 || item.Price < 0 {
			return nil, fmt.Errorf("%w: ligne de panier invalide (%q)", ErrBadConfirmation, item.MenuItemID)
		}
	}
	return meta, nil
}

func buildOrder(sessionID string, meta *checkoutMetadata) *models.Order {
	id := uuid.NewString()
	order := &models.Order{
		ID:           id,
		RestaurantID: meta.RestaurantID,
		TableID:      meta.TableID,
		SessionID:    sessionID,
		OrderNumber:  "Q-" + strings.ToUpper(id[:8]),
		Paid:         true,
		Status:       models.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	for _, item := range meta.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:         uuid.NewString(),
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
			Status:     models.ItemStatusQueued,
		})
	}
	order.TotalAmount = order.ComputeTotal()
	return order
}

// sendOwnerReceipt envoie le reçu au restaurateur, en arrière-plan et au
// mieux : un échec SMTP n'a aucun effet sur la commande.
func (e *Engine) sendOwnerReceipt(ctx context.Context, order *models.Order) {
	if e.Mailer == nil {
		return
	}
	restaurant, err := e.Store.GetRestaurant(ctx, order.RestaurantID)
	if err != nil {
		log.Printf("⚠️ Reçu non envoyé, restaurant %s inconnu : %v", order.RestaurantID, err)
		return
	}
	if restaurant.OwnerEmail == "" {
		return
	}
	go func() {
		if err := e.Mailer.SendNewOrderEmail(restaurant.OwnerEmail, restaurant, order); err != nil {
			log.Printf("❌ Erreur envoi reçu commande %s : %v", order.OrderNumber, err)
		} else {
			log.Println("📧 Reçu de commande envoyé à", restaurant.OwnerEmail)
		}
	}()
}
