package engine

import (
	"context"
	"fmt"
	"log"

	"qarte_back_end/internal/events"
	"qarte_back_end/internal/models"
)

// Actor est l'identité authentifiée à l'origine d'une transition. Elle
// est toujours passée explicitement au moteur, jamais lue d'un contexte
// ambiant.
type Actor struct {
	ID           string
	Role         string
	RestaurantID string
}

// Arêtes autorisées du cycle de vie d'une commande.
// COMPLETED et CANCELLED sont terminaux : aucune arête n'en part.
var orderEdges = map[string][]string{
	models.StatusPending:    {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed:  {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCancelled},
}

// Arêtes autorisées pour une ligne de commande (affichage cuisine).
var itemEdges = map[string][]string{
	models.ItemStatusQueued:    {models.ItemStatusPreparing},
	models.ItemStatusPreparing: {models.ItemStatusReady},
	models.ItemStatusReady:     {models.ItemStatusServed},
}

func edgeAllowed(edges map[string][]string, from, to string) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// roleAllows indique si un rôle peut demander ce statut cible.
// Cuisine et salle conduisent le flux normal ; l'annulation est réservée
// au restaurateur et aux admins. PENDING n'est posé que par l'intake de
// paiement, à la création.
func roleAllows(role, newStatus string) bool {
	switch role {
	case models.RoleKitchen, models.RoleStaff:
		return newStatus != models.StatusCancelled && newStatus != models.StatusPending
	case models.RoleOwner, models.RoleAdmin:
		return newStatus != models.StatusPending
	default:
		return false
	}
}

func staffRole(role string) bool {
	switch role {
	case models.RoleKitchen, models.RoleStaff, models.RoleOwner, models.RoleAdmin:
		return true
	}
	return false
}

// Transition applique un changement de statut demandé par un acteur.
// L'écriture est conditionnelle côté base : deux actions concurrentes ne
// peuvent pas s'appliquer toutes les deux sur un statut périmé.
func (e *Engine) Transition(ctx context.Context, orderID string, actor Actor, newStatus string, paid *bool) (*models.Order, error) {
	order, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleAdmin && actor.RestaurantID != order.RestaurantID {
		return nil, fmt.Errorf("%w: acteur étranger au restaurant", ErrInvalidTransition)
	}
	if !roleAllows(actor.Role, newStatus) {
		return nil, fmt.Errorf("%w: rôle %s non autorisé pour %s", ErrInvalidTransition, actor.Role, newStatus)
	}
	if !edgeAllowed(orderEdges, order.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, order.Status, newStatus)
	}

	applied, err := e.Store.UpdateOrderStatus(ctx, orderID, order.Status, newStatus, paid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if !applied {
		// Un écrivain concurrent est passé avant nous : l'arête demandée
		// ne part plus du statut courant.
		return nil, fmt.Errorf("%w: statut modifié concurremment", ErrInvalidTransition)
	}

	updated, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	// La mutation est durable : un échec de diffusion est journalisé,
	// jamais remonté à l'acteur.
	if err := e.Dispatcher.Dispatch(ctx, events.Event{
		Kind:         events.KindOrderUpdate,
		RestaurantID: updated.RestaurantID,
		OrderID:      updated.ID,
		Message:      fmt.Sprintf("Commande %s : %s", updated.OrderNumber, newStatus),
		Payload:      updated,
	}); err != nil {
		log.Printf("❌ Diffusion ORDER_UPDATE échouée pour %s : %v", updated.ID, err)
	}

	return updated, nil
}

// TransitionItem applique un changement de statut sur une seule ligne de
// commande, avec la même discipline d'écriture conditionnelle. Le fanout
// ne porte que la ligne : un affichage cuisine met à jour son ticket sans
// re-rendre toute la commande.
func (e *Engine) TransitionItem(ctx context.Context, orderID, itemID string, actor Actor, newStatus string) (*models.Order, error) {
	order, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleAdmin && actor.RestaurantID != order.RestaurantID {
		return nil, fmt.Errorf("%w: acteur étranger au restaurant", ErrInvalidTransition)
	}
	if !staffRole(actor.Role) {
		return nil, fmt.Errorf("%w: rôle %s non autorisé", ErrInvalidTransition, actor.Role)
	}

	current := ""
	found := false
	for _, item := range order.Items {
		if item.ID == itemID {
			current = item.Status
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: ligne %s", ErrNotFound, itemID)
	}
	if !edgeAllowed(itemEdges, current, newStatus) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current, newStatus)
	}

	applied, err := e.Store.UpdateItemStatus(ctx, orderID, itemID, current, newStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: statut de ligne modifié concurremment", ErrInvalidTransition)
	}

	updated, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	var updatedItem models.OrderItem
	for _, item := range updated.Items {
		if item.ID == itemID {
			updatedItem = item
			break
		}
	}

	if err := e.Dispatcher.Dispatch(ctx, events.Event{
		Kind:         events.KindOrderItemUpdate,
		RestaurantID: updated.RestaurantID,
		OrderID:      updated.ID,
		Message:      fmt.Sprintf("Commande %s, %s : %s", updated.OrderNumber, updatedItem.Name, newStatus),
		Payload: events.ItemUpdate{
			OrderID:     updated.ID,
			OrderNumber: updated.OrderNumber,
			Item:        updatedItem,
		},
	}); err != nil {
		log.Printf("❌ Diffusion ORDER_ITEM_UPDATE échouée pour %s : %v", updated.ID, err)
	}

	return updated, nil
}
