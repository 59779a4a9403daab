package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"qarte_back_end/internal/models"
)

// Kind identifie un type d'événement du cycle de vie des commandes.
type Kind string

const (
	KindNewOrder        Kind = models.NotifNewOrder
	KindOrderUpdate     Kind = models.NotifOrderUpdate
	KindOrderItemUpdate Kind = models.NotifOrderItemUpdate
)

// WireName retourne le nom d'événement du contrat de fil.
func (k Kind) WireName() string {
	switch k {
	case KindNewOrder:
		return "new-order"
	case KindOrderUpdate:
		return "order-update"
	case KindOrderItemUpdate:
		return "order-item-update"
	}
	return string(k)
}

// ErrDispatch : la notification n'a pas pu être persistée. L'appelant
// journalise ; il ne doit jamais annuler la mutation déjà appliquée.
var ErrDispatch = errors.New("échec de diffusion")

type Event struct {
	Kind         Kind
	RestaurantID string
	OrderID      string
	Message      string
	Payload      any
}

// ItemUpdate est la charge utile d'un événement order-item-update : une
// seule ligne, pour qu'un affichage cuisine mette à jour un ticket sans
// re-rendre toute la commande.
type ItemUpdate struct {
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Item        models.OrderItem `json:"item"`
}

// NotificationStore persiste la trace durable d'un événement.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *models.Notification) error
}

// Dispatcher séquence la diffusion d'un changement d'état : persistance
// de la notification d'abord, publication ensuite. Un client qui se
// reconnecte après une coupure se resynchronise depuis la base, jamais
// depuis le seul événement transitoire.
type Dispatcher struct {
	Store NotificationStore
	Bus   Publisher
}

func NewDispatcher(store NotificationStore, bus Publisher) *Dispatcher {
	return &Dispatcher{Store: store, Bus: bus}
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("%w: charge utile illisible (%v)", ErrDispatch, err)
	}

	n := &models.Notification{
		ID:           uuid.NewString(),
		RestaurantID: ev.RestaurantID,
		OrderID:      ev.OrderID,
		Kind:         string(ev.Kind),
		Message:      ev.Message,
		Payload:      raw,
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.Store.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	// Au-delà de ce point tout est best-effort : la notification est
	// durable, la livraison temps réel ne l'est pas.
	channel := RestaurantChannel(ev.RestaurantID)
	if err := d.Bus.Publish(ctx, channel, ev.Kind.WireName(), ev.Payload); err != nil {
		log.Printf("⚠️ Publication %s sur %s échouée : %v", ev.Kind.WireName(), channel, err)
	}

	if ev.Kind == KindOrderUpdate || ev.Kind == KindOrderItemUpdate {
		// Signal sans charge utile : le canal est partagé entre
		// restaurants, aucune donnée de commande ne doit y fuiter.
		if err := d.Bus.Publish(ctx, KitchenChannel, "orders-updated", nil); err != nil {
			log.Printf("⚠️ Publication orders-updated échouée : %v", err)
		}
	}

	return nil
}
