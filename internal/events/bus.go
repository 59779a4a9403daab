package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KitchenChannel est le canal cuisine partagé entre tous les restaurants.
// Il ne transporte jamais de données de commande, uniquement un signal de
// rafraîchissement : chaque affichage refait son propre fetch.
const KitchenChannel = "kitchen-global"

// RestaurantChannel retourne le canal privé d'un restaurant.
func RestaurantChannel(restaurantID string) string {
	return "restaurant-" + restaurantID
}

// envelope est la trame publiée sur un canal : le nom d'événement du
// contrat de fil et sa charge utile dans un même message JSON.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Publisher est la primitive de publication vers les clients connectés.
// Best-effort : aucune garantie de livraison ni d'ordre entre canaux.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// RedisBus publie les événements sur Redis pub/sub. Sans état et en
// écriture seule : la lecture se fait côté abonnés (WebSocket, badges).
type RedisBus struct {
	Client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{Client: client}
}

func (b *RedisBus) Publish(ctx context.Context, channel, event string, payload any) error {
	raw, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("sérialisation événement %s: %v", event, err)
	}
	return b.Client.Publish(ctx, channel, raw).Err()
}
