package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qarte_back_end/internal/models"
)

// journalStore et journalBus consignent leurs appels dans un journal
// partagé pour vérifier l'ordre persistance puis publication.
type journalStore struct {
	log   *[]string
	saved []models.Notification
	fail  error
}

func (s *journalStore) SaveNotification(_ context.Context, n *models.Notification) error {
	if s.fail != nil {
		return s.fail
	}
	*s.log = append(*s.log, "persist:"+n.Kind)
	s.saved = append(s.saved, *n)
	return nil
}

type publication struct {
	channel string
	event   string
	payload any
}

type journalBus struct {
	log  *[]string
	pubs []publication
	fail error
}

func (b *journalBus) Publish(_ context.Context, channel, event string, payload any) error {
	if b.fail != nil {
		return b.fail
	}
	*b.log = append(*b.log, "publish:"+channel+":"+event)
	b.pubs = append(b.pubs, publication{channel: channel, event: event, payload: payload})
	return nil
}

func newJournal() (*Dispatcher, *journalStore, *journalBus, *[]string) {
	log := &[]string{}
	store := &journalStore{log: log}
	bus := &journalBus{log: log}
	return NewDispatcher(store, bus), store, bus, log
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:           "o-1",
		RestaurantID: "resto-1",
		OrderNumber:  "Q-ABCD1234",
		Status:       models.StatusConfirmed,
	}
}

func TestDispatchPersistsBeforePublishing(t *testing.T) {
	d, store, _, log := newJournal()

	err := d.Dispatch(context.Background(), Event{
		Kind:         KindNewOrder,
		RestaurantID: "resto-1",
		OrderID:      "o-1",
		Message:      "Nouvelle commande Q-ABCD1234",
		Payload:      sampleOrder(),
	})
	require.NoError(t, err)

	require.NotEmpty(t, *log)
	assert.Equal(t, "persist:NEW_ORDER", (*log)[0])
	require.Len(t, store.saved, 1)
	assert.Equal(t, "resto-1", store.saved[0].RestaurantID)
	assert.Equal(t, "o-1", store.saved[0].OrderID)
	assert.NotEmpty(t, store.saved[0].Payload)
}

func TestDispatchNewOrderStaysOnRestaurantChannel(t *testing.T) {
	d, _, bus, _ := newJournal()

	err := d.Dispatch(context.Background(), Event{
		Kind:         KindNewOrder,
		RestaurantID: "resto-1",
		OrderID:      "o-1",
		Payload:      sampleOrder(),
	})
	require.NoError(t, err)

	require.Len(t, bus.pubs, 1)
	assert.Equal(t, "restaurant-resto-1", bus.pubs[0].channel)
	assert.Equal(t, "new-order", bus.pubs[0].event)
	assert.NotNil(t, bus.pubs[0].payload)
}

func TestDispatchOrderUpdateEmitsKitchenHint(t *testing.T) {
	d, _, bus, _ := newJournal()

	err := d.Dispatch(context.Background(), Event{
		Kind:         KindOrderUpdate,
		RestaurantID: "resto-1",
		OrderID:      "o-1",
		Payload:      sampleOrder(),
	})
	require.NoError(t, err)

	require.Len(t, bus.pubs, 2)
	assert.Equal(t, "restaurant-resto-1", bus.pubs[0].channel)
	assert.Equal(t, "order-update", bus.pubs[0].event)
	assert.Equal(t, KitchenChannel, bus.pubs[1].channel)
	assert.Equal(t, "orders-updated", bus.pubs[1].event)
	// Le canal cuisine est partagé : jamais de données de commande.
	assert.Nil(t, bus.pubs[1].payload)
}

func TestDispatchItemUpdateEmitsKitchenHint(t *testing.T) {
	d, _, bus, _ := newJournal()

	err := d.Dispatch(context.Background(), Event{
		Kind:         KindOrderItemUpdate,
		RestaurantID: "resto-1",
		OrderID:      "o-1",
		Payload: ItemUpdate{
			OrderID:     "o-1",
			OrderNumber: "Q-ABCD1234",
			Item:        models.OrderItem{ID: "i-1", Status: models.ItemStatusReady},
		},
	})
	require.NoError(t, err)

	require.Len(t, bus.pubs, 2)
	assert.Equal(t, "order-item-update", bus.pubs[0].event)
	assert.Equal(t, KitchenChannel, bus.pubs[1].channel)
	assert.Nil(t, bus.pubs[1].payload)
}

func TestDispatchSwallowsPublishFailure(t *testing.T) {
	d, store, bus, _ := newJournal()
	bus.fail = errors.New("redis injoignable")

	err := d.Dispatch(context.Background(), Event{
		Kind:         KindOrderUpdate,
		RestaurantID: "resto-1",
		OrderID:      "o-1",
		Payload:      sampleOrder(),
	})
	assert.NoError(t, err)
	// La notification est durable même si la diffusion temps réel échoue.
	assert.Len(t, store.saved, 1)
}

func TestDispatchPersistFailureIsFatal(t *testing.T) {
	d, store, bus, _ := newJournal()
	store.fail = errors.New("scylla indisponible")

	err := d.Dispatch(context.Background(), Event{
		Kind:         KindNewOrder,
		RestaurantID: "resto-1",
		OrderID:      "o-1",
		Payload:      sampleOrder(),
	})
	assert.ErrorIs(t, err, ErrDispatch)
	assert.Empty(t, bus.pubs)
}

func TestWireNames(t *testing.T) {
	assert.Equal(t, "new-order", KindNewOrder.WireName())
	assert.Equal(t, "order-update", KindOrderUpdate.WireName())
	assert.Equal(t, "order-item-update", KindOrderItemUpdate.WireName())
	assert.Equal(t, "restaurant-resto-1", RestaurantChannel("resto-1"))
}
