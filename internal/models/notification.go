package models

import (
	"encoding/json"
	"time"
)

// Types de notification persistée.
const (
	NotifNewOrder        = "NEW_ORDER"
	NotifOrderUpdate     = "ORDER_UPDATE"
	NotifOrderItemUpdate = "ORDER_ITEM_UPDATE"
)

// Notification est la trace durable d'un événement : si la publication
// temps réel échoue ou qu'aucun client n'est connecté, cette ligne reste
// la source de vérité consultable (tri du plus récent au plus ancien).
type Notification struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurant_id"`
	OrderID      string          `json:"order_id,omitempty"`
	Kind         string          `json:"kind"`
	Message      string          `json:"message"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
