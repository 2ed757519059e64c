package catalog

// Summary aggregates basic shape information about a loaded catalog.
// The index command reports it after load so operators can sanity-check
// the dataset before paying for embeddings.
type Summary struct {
	// Rows is the total number of product rows.
	Rows int
	// Categories is the number of distinct category values.
	Categories int
	// MinPrice and MaxPrice bound the listed prices across all rows.
	MinPrice float64
	MaxPrice float64
	// Rated is the number of rows that carry a rating.
	Rated int
}

// Stats computes a Summary over the given products.
func Stats(products []Product) Summary {
	s := Summary{Rows: len(products)}
	if len(products) == 0 {
		return s
	}

	categories := make(map[string]bool)
	s.MinPrice = products[0].Price
	s.MaxPrice = products[0].Price
	for _, p := range products {
		categories[p.Category] = true
		if p.Price < s.MinPrice {
			s.MinPrice = p.Price
		}
		if p.Price > s.MaxPrice {
			s.MaxPrice = p.Price
		}
		if p.HasRating {
			s.Rated++
		}
	}
	s.Categories = len(categories)
	return s
}
