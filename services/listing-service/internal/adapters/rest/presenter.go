package rest

import "marketplace/services/listing-service/internal/core/domain"

// ImageURLFunc строит публичную ссылку по пути объекта в бакете.
type ImageURLFunc func(path string) string

type listingPresenter struct {
	imageURL ImageURLFunc
}

func newListingPresenter(imageURL ImageURLFunc) listingPresenter {
	if imageURL == nil {
		imageURL = func(p string) string { return p }
	}
	return listingPresenter{imageURL: imageURL}
}

func (p listingPresenter) listing(l domain.Listing) ListingResponse {
	images := make([]ImageResponse, len(l.Images))
	for i, path := range l.Images {
		images[i] = ImageResponse{Path: path, URL: p.imageURL(path)}
	}
	attrs := l.Attributes
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	return ListingResponse{
		ID:             l.ID,
		SellerID:       l.SellerID,
		Category:       l.Category,
		Title:          l.Title,
		Description:    l.Description,
		Price:          l.Price,
		Currency:       l.Currency,
		City:           l.City,
		Region:         l.Region,
		Latitude:       l.Latitude,
		Longitude:      l.Longitude,
		Attributes:     attrs,
		Images:         images,
		Status:         l.Status,
		ViewsCount:     l.ViewsCount,
		SourceURL:      l.SourceURL,
		SourceImageURL: l.SourceImageURL,
		PublishedAt:    l.PublishedAt,
		ArchivedAt:     l.ArchivedAt,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func (p listingPresenter) favorite(f domain.FavoriteListing) FavoriteResponse {
	return FavoriteResponse{Listing: p.listing(f.Listing), FavoritedAt: f.FavoritedAt}
}
