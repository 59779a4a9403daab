package models

// CartItem est une ligne de panier côté storefront. C'est aussi le format
// sérialisé dans les métadonnées de la session Stripe : les prix embarqués
// sont l'instantané facturé, jamais re-consultés au retour du webhook.
type CartItem struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Price      int64  `json:"price"` // centimes
}
