package domain

// ScrapedListing - данные, извлеченные со страницы объявления.
type ScrapedListing struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
	Price       float64
	Currency    string
}
