package models

import (
	"time"
)

// Statuts d'une commande. Le cycle de vie est linéaire :
// PENDING → CONFIRMED → IN_PROGRESS → COMPLETED, avec CANCELLED
// accessible depuis tout état non terminal.
const (
	StatusPending    = "PENDING"
	StatusConfirmed  = "CONFIRMED"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// Statuts d'une ligne de commande (granularité cuisine).
const (
	ItemStatusQueued    = "queued"
	ItemStatusPreparing = "preparing"
	ItemStatusReady     = "ready"
	ItemStatusServed    = "served"
)

// Rôles des acteurs authentifiés.
const (
	RoleKitchen = "kitchen"
	RoleStaff   = "staff"
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
)

type Order struct {
	ID           string      `json:"id"`
	RestaurantID string      `json:"restaurant_id"`
	TableID      string      `json:"table_id,omitempty"`
	SessionID    string      `json:"-"` // identifiant de session Stripe = clé d'idempotence
	OrderNumber  string      `json:"order_number"`
	Items        []OrderItem `json:"items"`
	TotalAmount  int64       `json:"total_amount"` // en centimes
	Paid         bool        `json:"paid"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

type OrderItem struct {
	ID         string `json:"id"`
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Price      int64  `json:"price"` // prix unitaire en centimes, figé à la commande
	Status     string `json:"status"`
}

// ComputeTotal calcule le montant total à partir des lignes figées.
// Les prix sont des instantanés : une modification ultérieure du menu
// ne change jamais une commande déjà passée.
func (o *Order) ComputeTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// Terminal indique si la commande a atteint un état final.
func (o *Order) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCancelled
}
