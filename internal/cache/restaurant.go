package cache

import (
	"context"
	"encoding/json"
	"time"

	"qarte_back_end/internal/database"
	"qarte_back_end/internal/models"
)

const RestaurantCacheTTL = 10 * time.Minute

// GetRestaurantFromCache récupère un restaurant depuis Redis, sinon via
// le loader (ScyllaDB), et remplit le cache au passage. Les fiches
// restaurant changent rarement : 10 minutes de staleness sont acceptables
// pour la génération de QR codes et l'envoi des reçus.
func GetRestaurantFromCache(ctx context.Context, restaurantID string,
	load func(context.Context, string) (*models.Restaurant, error)) (*models.Restaurant, error) {

	if database.Redis == nil {
		return load(ctx, restaurantID)
	}
	key := "restaurant:" + restaurantID

	// 1. Essayer le cache Redis
	data, err := database.Redis.Get(ctx, key).Result()
	if err == nil {
		var restaurant models.Restaurant
		if json.Unmarshal([]byte(data), &restaurant) == nil {
			return &restaurant, nil
		}
	}

	// 2. Récupérer de ScyllaDB
	restaurant, err := load(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	// 3. Mettre en cache
	jsonData, _ := json.Marshal(restaurant)
	database.Redis.Set(ctx, key, jsonData, RestaurantCacheTTL)

	return restaurant, nil
}

// InvalidateRestaurantCache invalide le cache d'un restaurant
func InvalidateRestaurantCache(restaurantID string) {
	if database.Redis == nil {
		return
	}
	database.Redis.Del(context.Background(), "restaurant:"+restaurantID)
}
