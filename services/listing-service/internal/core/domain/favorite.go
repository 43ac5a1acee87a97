package domain

import (
	"time"

	"marketplace/pkg/pagination"
)

// FavoriteListing - карточка объявления в избранном пользователя.
type FavoriteListing struct {
	Listing     Listing
	FavoritedAt time.Time
}

type FavoritePage = pagination.Page[FavoriteListing]
