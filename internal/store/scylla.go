package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"qarte_back_end/internal/database"
	"qarte_back_end/internal/engine"
	"qarte_back_end/internal/models"
)

// Requêtes CQL du store commandes. Les écritures sensibles passent par
// des écritures conditionnelles (LWT) : c'est la base qui sérialise les
// mises à jour concurrentes d'une même commande, pas le processus.
const (
	stmtClaimSession  = `INSERT INTO orders_by_session (session_id, order_id) VALUES (?, ?) IF NOT EXISTS`
	stmtReleaseClaim  = `DELETE FROM orders_by_session WHERE session_id = ?`
	stmtSelectSession = `SELECT order_id FROM orders_by_session WHERE session_id = ?`

	stmtInsertOrder = `INSERT INTO orders (order_id, restaurant_id, table_id, session_id, order_number, total_amount, paid, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmtInsertItem = `INSERT INTO order_items (order_id, item_id, menu_item_id, name, quantity, price, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	stmtIndexOrder = `INSERT INTO orders_by_restaurant (restaurant_id, created_at, order_id) VALUES (?, ?, ?)`

	stmtSelectOrder = `SELECT restaurant_id, table_id, session_id, order_number, total_amount, paid, status, created_at
		FROM orders WHERE order_id = ?`
	stmtSelectItems        = `SELECT item_id, menu_item_id, name, quantity, price, status FROM order_items WHERE order_id = ?`
	stmtSelectByRestaurant = `SELECT order_id FROM orders_by_restaurant WHERE restaurant_id = ? LIMIT ?`

	stmtUpdateStatus     = `UPDATE orders SET status = ? WHERE order_id = ? IF status = ?`
	stmtUpdateStatusPaid = `UPDATE orders SET status = ?, paid = ? WHERE order_id = ? IF status = ?`
	stmtUpdateItemStatus = `UPDATE order_items SET status = ? WHERE order_id = ? AND item_id = ? IF status = ?`

	stmtInsertNotification = `INSERT INTO notifications (restaurant_id, created_at, notification_id, order_id, kind, message, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	stmtSelectNotifications = `SELECT notification_id, order_id, kind, message, payload, created_at
		FROM notifications WHERE restaurant_id = ? LIMIT ?`

	stmtSelectRestaurant = `SELECT name, slug, owner_email, created_at FROM restaurants WHERE restaurant_id = ?`
)

// ScyllaStore implémente engine.OrderStore sur le keyspace orders.
type ScyllaStore struct{}

var _ engine.OrderStore = (*ScyllaStore)(nil)

func NewScyllaStore() *ScyllaStore {
	return &ScyllaStore{}
}

func (s *ScyllaStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	order := &models.Order{ID: orderID}
	err = session.Query(stmtSelectOrder, orderID).WithContext(ctx).Scan(
		&order.RestaurantID, &order.TableID, &order.SessionID, &order.OrderNumber,
		&order.TotalAmount, &order.Paid, &order.Status, &order.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	iter := session.Query(stmtSelectItems, orderID).WithContext(ctx).Iter()
	var item models.OrderItem
	for iter.Scan(&item.ID, &item.MenuItemID, &item.Name, &item.Quantity, &item.Price, &item.Status) {
		order.Items = append(order.Items, item)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *ScyllaStore) GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var orderID string
	err = session.Query(stmtSelectSession, sessionID).WithContext(ctx).Scan(&orderID)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, orderID)
}

func (s *ScyllaStore) ListOrdersByRestaurant(ctx context.Context, restaurantID string, limit int) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(stmtSelectByRestaurant, restaurantID, limit).WithContext(ctx).Iter()
	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(ids))
	for _, orderID := range ids {
		order, err := s.GetOrder(ctx, orderID)
		if errors.Is(err, engine.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// CreateOrder réserve d'abord la session de paiement par une écriture
// conditionnelle : en cas de livraisons webhook concurrentes, une seule
// gagne, les autres retombent sur le chemin de relecture.
func (s *ScyllaStore) CreateOrder(ctx context.Context, order *models.Order) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	applied, err := session.Query(stmtClaimSession, order.SessionID, order.ID).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(stmtInsertOrder, order.ID, order.RestaurantID, order.TableID, order.SessionID,
		order.OrderNumber, order.TotalAmount, order.Paid, order.Status, order.CreatedAt)
	batch.Query(stmtIndexOrder, order.RestaurantID, order.CreatedAt, order.ID)
	for _, item := range order.Items {
		batch.Query(stmtInsertItem, order.ID, item.ID, item.MenuItemID, item.Name,
			item.Quantity, item.Price, item.Status)
	}

	if err := session.ExecuteBatch(batch); err != nil {
		// On libère la réservation d'idempotence pour qu'une relivraison
		// Stripe puisse retenter la création complète.
		if delErr := session.Query(stmtReleaseClaim, order.SessionID).WithContext(ctx).Exec(); delErr != nil {
			return false, fmt.Errorf("création échouée (%v) et réservation non libérée: %v", err, delErr)
		}
		return false, err
	}

	return true, nil
}

func (s *ScyllaStore) UpdateOrderStatus(ctx context.Context, orderID, from, to string, paid *bool) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	var query *gocql.Query
	if paid != nil {
		query = session.Query(stmtUpdateStatusPaid, to, *paid, orderID, from)
	} else {
		query = session.Query(stmtUpdateStatus, to, orderID, from)
	}

	return query.WithContext(ctx).MapScanCAS(map[string]interface{}{})
}

func (s *ScyllaStore) UpdateItemStatus(ctx context.Context, orderID, itemID, from, to string) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	return session.Query(stmtUpdateItemStatus, to, orderID, itemID, from).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
}

func (s *ScyllaStore) SaveNotification(ctx context.Context, n *models.Notification) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	return session.Query(stmtInsertNotification, n.RestaurantID, n.CreatedAt, n.ID,
		n.OrderID, n.Kind, n.Message, string(n.Payload)).WithContext(ctx).Exec()
}

// ListNotifications renvoie l'historique du plus récent au plus ancien
// (clustering created_at DESC, voir scripts/scylladb_init.cql).
func (s *ScyllaStore) ListNotifications(ctx context.Context, restaurantID string, limit int) ([]models.Notification, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(stmtSelectNotifications, restaurantID, limit).WithContext(ctx).Iter()
	var list []models.Notification
	var n models.Notification
	var payload string
	for iter.Scan(&n.ID, &n.OrderID, &n.Kind, &n.Message, &payload, &n.CreatedAt) {
		n.RestaurantID = restaurantID
		n.Payload = []byte(payload)
		list = append(list, n)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *ScyllaStore) GetRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	restaurant := &models.Restaurant{ID: restaurantID}
	err = session.Query(stmtSelectRestaurant, restaurantID).WithContext(ctx).Scan(
		&restaurant.Name, &restaurant.Slug, &restaurant.OwnerEmail, &restaurant.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return restaurant, nil
}
