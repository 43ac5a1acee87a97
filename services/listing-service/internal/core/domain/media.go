package domain

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// SignedUpload - одноразовая ссылка для загрузки файла напрямую в хранилище.
type SignedUpload struct {
	Path      string `json:"path"`
	SignedURL string `json:"signed_url"`
	Token     string `json:"token"`
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageExtension возвращает расширение для разрешенного content type.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := allowedImageTypes[strings.ToLower(contentType)]
	return ext, ok
}

// ListingImagePrefix - каталог объявления в бакете.
func ListingImagePrefix(listingID uuid.UUID) string {
	return "listings/" + listingID.String() + "/"
}

// ImagePathBelongsTo проверяет, что путь лежит в каталоге объявления
// и не выходит за его пределы.
func ImagePathBelongsTo(p string, listingID uuid.UUID) bool {
	prefix := ListingImagePrefix(listingID)
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	clean := path.Clean(p)
	return clean == p && strings.HasPrefix(clean, prefix) && len(clean) > len(prefix)
}
