package engine

import (
	"context"
	"errors"
	"sync"

	"qarte_back_end/internal/events"
	"qarte_back_end/internal/models"
)

// memStore implémente OrderStore en mémoire avec la même sémantique
// conditionnelle que le store Scylla (création idempotente par session,
// mises à jour appliquées seulement depuis le statut attendu).
type memStore struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	bySession   map[string]string
	notifs      []models.Notification
	restaurants map[string]*models.Restaurant

	failCreate error
	failUpdate error
	failSave   error
	forceStale bool
}

func newMemStore() *memStore {
	return &memStore{
		orders:      make(map[string]*models.Order),
		bySession:   make(map[string]string),
		restaurants: make(map[string]*models.Restaurant),
	}
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp
}

func (s *memStore) seed(o *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = cloneOrder(o)
	if o.SessionID != "" {
		s.bySession[o.SessionID] = o.ID
	}
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.notifs...)
}

func (s *memStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *memStore) GetOrderBySession(_ context.Context, sessionID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *memStore) ListOrdersByRestaurant(_ context.Context, restaurantID string, limit int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Order
	for _, o := range s.orders {
		if o.RestaurantID == restaurantID && len(list) < limit {
			list = append(list, *cloneOrder(o))
		}
	}
	return list, nil
}

func (s *memStore) CreateOrder(_ context.Context, order *models.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return false, s.failCreate
	}
	if _, seen := s.bySession[order.SessionID]; seen {
		return false, nil
	}
	s.bySession[order.SessionID] = order.ID
	s.orders[order.ID] = cloneOrder(order)
	return true, nil
}

func (s *memStore) UpdateOrderStatus(_ context.Context, orderID, from, to string, paid *bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		return false, s.failUpdate
	}
	if s.forceStale {
		s.forceStale = false
		return false, nil
	}
	o, ok := s.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if paid != nil {
		o.Paid = *paid
	}
	return true, nil
}

func (s *memStore) UpdateItemStatus(_ context.Context, orderID, itemID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		return false, s.failUpdate
	}
	o, ok := s.orders[orderID]
	if !ok {
		return false, nil
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			if o.Items[i].Status != from {
				return false, nil
			}
			o.Items[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) SaveNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	s.notifs = append(s.notifs, *n)
	return nil
}

func (s *memStore) ListNotifications(_ context.Context, restaurantID string, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Notification
	for i := len(s.notifs) - 1; i >= 0 && len(list) < limit; i-- {
		if s.notifs[i].RestaurantID == restaurantID {
			list = append(list, s.notifs[i])
		}
	}
	return list, nil
}

func (s *memStore) GetRestaurant(_ context.Context, restaurantID string) (*models.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[restaurantID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// recordDispatcher enregistre les événements diffusés.
type recordDispatcher struct {
	mu   sync.Mutex
	evts []events.Event
	fail error
}

func (d *recordDispatcher) Dispatch(_ context.Context, ev events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	d.evts = append(d.evts, ev)
	return nil
}

func (d *recordDispatcher) recorded() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event(nil), d.evts...)
}

// failingBus simule un transport de publication toujours en panne.
type failingBus struct {
	mu    sync.Mutex
	calls int
}

func (b *failingBus) Publish(context.Context, string, string, any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return errors.New("transport indisponible")
}

func (b *failingBus) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
