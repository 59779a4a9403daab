package engine

import "errors"

// Taxonomie d'erreurs du moteur de cycle de vie.
var (
	// ErrAuthenticity : la confirmation de paiement n'a pas pu être
	// vérifiée contre le secret partagé. Aucune commande n'est créée,
	// Stripe pilote lui-même ses relivraisons.
	ErrAuthenticity = errors.New("signature de confirmation invalide")

	// ErrBadConfirmation : métadonnées absentes ou hors schéma.
	ErrBadConfirmation = errors.New("métadonnées de confirmation invalides")

	// ErrInvalidTransition : arête de statut inaccessible depuis l'état
	// courant, ou rôle insuffisant. La commande reste inchangée.
	ErrInvalidTransition = errors.New("transition de statut invalide")

	ErrNotFound = errors.New("ressource introuvable")

	// ErrStore : échec de persistance, l'opération est considérée comme
	// non appliquée.
	ErrStore = errors.New("erreur de persistance")
)
