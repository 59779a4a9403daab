package engine

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qarte_back_end/internal/events"
	"qarte_back_end/internal/models"
)

const testWebhookSecret = "whsec_test_qarte"

func signWith(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func signPayload(payload []byte) string {
	return signWith(testWebhookSecret, payload)
}

func checkoutPayload(t *testing.T, sessionID string, amount int64, metadata map[string]string) []byte {
	t.Helper()
	event := map[string]any{
		"id":     "evt_" + sessionID,
		"object": "event",
		"type":   "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":           sessionID,
				"object":       "checkout.session",
				"amount_total": amount,
				"metadata":     metadata,
			},
		},
	}
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func testMetadata(t *testing.T) map[string]string {
	t.Helper()
	cart := []models.CartItem{
		{MenuItemID: "m-burrata", Name: "Burrata di Puglia", Quantity: 2, Price: 20000},
		{MenuItemID: "m-tiramisu", Name: "Tiramisu", Quantity: 1, Price: 5000},
	}
	raw, err := json.Marshal(cart)
	require.NoError(t, err)
	return map[string]string{
		"restaurant_id": "resto-1",
		"table_id":      "table-4",
		"cart":          string(raw),
	}
}

func newTestEngine() (*Engine, *memStore, *recordDispatcher) {
	st := newMemStore()
	d := &recordDispatcher{}
	return New(st, d, testWebhookSecret), st, d
}

func TestIngestCreatesOrder(t *testing.T) {
	eng, st, d := newTestEngine()
	payload := checkoutPayload(t, "cs_test_a1", 45000, testMetadata(t))

	order, err := eng.IngestPaymentConfirmation(context.Background(), payload, signPayload(payload))
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "resto-1", order.RestaurantID)
	assert.Equal(t, "table-4", order.TableID)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.True(t, order.Paid)
	assert.Equal(t, int64(45000), order.TotalAmount)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "Q-"))
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		assert.Equal(t, models.ItemStatusQueued, item.Status)
	}

	stored, err := st.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)

	evts := d.recorded()
	require.Len(t, evts, 1)
	assert.Equal(t, events.KindNewOrder, evts[0].Kind)
	assert.Equal(t, order.ID, evts[0].OrderID)
	assert.Equal(t, "resto-1", evts[0].RestaurantID)
}

func TestIngestRejectsBadSignature(t *testing.T) {
	eng, st, d := newTestEngine()
	payload := checkoutPayload(t, "cs_test_sig", 45000, testMetadata(t))

	order, err := eng.IngestPaymentConfirmation(context.Background(), payload, signWith("whsec_autre", payload))
	assert.ErrorIs(t, err, ErrAuthenticity)
	assert.Nil(t, order)
	assert.Equal(t, 0, st.orderCount())
	assert.Empty(t, d.recorded())
}

func TestIngestIgnoresUnrelatedEvents(t *testing.T) {
	eng, st, _ := newTestEngine()
	payload, err := json.Marshal(map[string]any{
		"id":     "evt_pi_1",
		"object": "event",
		"type":   "payment_intent.succeeded",
		"data":   map[string]any{"object": map[string]any{"id": "pi_1"}},
	})
	require.NoError(t, err)

	order, err := eng.IngestPaymentConfirmation(context.Background(), payload, signPayload(payload))
	assert.NoError(t, err)
	assert.Nil(t, order)
	assert.Equal(t, 0, st.orderCount())
}

func TestIngestRejectsBadMetadata(t *testing.T) {
	cases := []struct {
		name string
		md   map[string]string
	}{
		{"sans métadonnées", map[string]string{}},
		{"restaurant manquant", map[string]string{"cart": `[{"menu_item_id":"m1","quantity":1,"price":100}]`}},
		{"panier manquant", map[string]string{"restaurant_id": "resto-1"}},
		{"panier vide", map[string]string{"restaurant_id": "resto-1", "cart": "[]"}},
		{"panier illisible", map[string]string{"restaurant_id": "resto-1", "cart": "{pas du json"}},
		{"quantité nulle", map[string]string{"restaurant_id": "resto-1", "cart": `[{"menu_item_id":"m1","quantity":0,"price":100}]`}},
		{"prix négatif", map[string]string{"restaurant_id": "resto-1", "cart": `[{"menu_item_id":"m1","quantity":1,"price":-5}]`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng, st, _ := newTestEngine()
			payload := checkoutPayload(t, "cs_test_meta", 100, tc.md)

			order, err := eng.IngestPaymentConfirmation(context.Background(), payload, signPayload(payload))
			assert.ErrorIs(t, err, ErrBadConfirmation)
			assert.Nil(t, order)
			assert.Equal(t, 0, st.orderCount())
		})
	}
}

func TestIngestDuplicateDeliveryReturnsSameOrder(t *testing.T) {
	eng, st, d := newTestEngine()
	payload := checkoutPayload(t, "cs_test_dup", 45000, testMetadata(t))

	first, err := eng.IngestPaymentConfirmation(context.Background(), payload, signPayload(payload))
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := eng.IngestPaymentConfirmation(context.Background(), payload, signPayload(payload))
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, st.orderCount())
	// Le doublon est absorbé : une seule diffusion NEW_ORDER.
	assert.Len(t, d.recorded(), 1)
}

func TestIngestConcurrentDeliveries(t *testing.T) {
	eng, st, d := newTestEngine()
	payload := checkoutPayload(t, "cs_test_race", 45000, testMetadata(t))
	sig := signPayload(payload)

	const deliveries = 8
	ids := make([]string, deliveries)
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := eng.IngestPaymentConfirmation(context.Background(), payload, sig)
			errs[i] = err
			if order != nil {
				ids[i] = order.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < deliveries; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, st.orderCount())
	assert.Len(t, d.recorded(), 1)
}

func TestIngestTotalComesFromCartLines(t *testing.T) {
	// En cas d'écart avec le montant Stripe, les prix figés du panier
	// font foi.
	eng, _, _ := newTestEngine()
	payload := checkoutPayload(t, "cs_test_amount", 99999, testMetadata(t))

	order, err := eng.IngestPaymentConfirmation(context.Background(), payload, signPayload(payload))
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, int64(45000), order.TotalAmount)
}

func TestIngestSurvivesFanoutFailure(t *testing.T) {
	eng, st, d := newTestEngine()
	d.fail = errors.New("bus injoignable")
	payload := checkoutPayload(t, "cs_test_fanout", 45000, testMetadata(t))

	order, err := eng.IngestPaymentConfirmation(context.Background(), payload, signPayload(payload))
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, 1, st.orderCount())
}

func TestIngestStoreFailure(t *testing.T) {
	eng, st, d := newTestEngine()
	st.failCreate = errors.New("scylla indisponible")
	payload := checkoutPayload(t, "cs_test_down", 45000, testMetadata(t))

	order, err := eng.IngestPaymentConfirmation(context.Background(), payload, signPayload(payload))
	assert.ErrorIs(t, err, ErrStore)
	assert.Nil(t, order)
	assert.Empty(t, d.recorded())
}
