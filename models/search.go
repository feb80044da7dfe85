package models

type SortOrder string

const (
	SortPriceAsc     SortOrder = "price_asc"
	SortPriceDesc    SortOrder = "price_desc"
	SortLocation     SortOrder = "location"
	SortNewest       SortOrder = "newest"
	SortOldest       SortOrder = "oldest"
	SortListedNewest SortOrder = "listed_newest"
	SortListedOldest SortOrder = "listed_oldest"
	SortUpdated      SortOrder = "updated" // alias for newest
)

// SearchParams are the recognized search filters. Zero values mean "not set".
// Keys a caller sends that are not modelled here belong in Extensions, which
// providers are free to ignore.
type SearchParams struct {
	ListingType   ListingType `json:"listing_type,omitempty"`
	Location      string      `json:"location,omitempty"`
	MinPrice      int         `json:"min_price,omitempty"` // whole currency units
	MaxPrice      int         `json:"max_price,omitempty"`
	MinBedrooms   int         `json:"min_bedrooms,omitempty"`
	MaxBedrooms   int         `json:"max_bedrooms,omitempty"`
	MinBathrooms  int         `json:"min_bathrooms,omitempty"`
	MaxBathrooms  int         `json:"max_bathrooms,omitempty"`
	MinArea       int         `json:"min_area,omitempty"`
	MaxArea       int         `json:"max_area,omitempty"`
	PropertyTypes []string    `json:"property_types,omitempty"`
	Features      []string    `json:"features,omitempty"`
	Sort          SortOrder   `json:"sort,omitempty"`
	Page          int         `json:"page,omitempty"`
	PerPage       int         `json:"per_page,omitempty"`
	Locale        string      `json:"locale,omitempty"`

	Extensions map[string]string `json:"extensions,omitempty"`
}

// FindParams disambiguate a single lookup. The same reference can exist as a
// sale and as a rental listing with different vendor-side ids.
type FindParams struct {
	ListingType ListingType `json:"listing_type,omitempty"`
	Locale      string      `json:"locale,omitempty"`
}

const (
	DefaultSimilarLimit = 6
	MaxSimilarLimit     = 20
)

type SimilarParams struct {
	Limit  int    `json:"limit,omitempty"`
	Locale string `json:"locale,omitempty"`
}

// ClampedLimit returns Limit bounded to [1, MaxSimilarLimit], DefaultSimilarLimit when unset
func (p SimilarParams) ClampedLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultSimilarLimit
	case p.Limit > MaxSimilarLimit:
		return MaxSimilarLimit
	default:
		return p.Limit
	}
}

type LookupParams struct {
	Locale      string      `json:"locale,omitempty"`
	ListingType ListingType `json:"listing_type,omitempty"`
}

// SearchResult is one page of normalized listings.
// TotalCount is the server-reported total across all pages; Page and PerPage
// echo the request (or server defaults) and are not authoritative.
type SearchResult struct {
	Properties  []Property        `json:"properties"`
	TotalCount  int               `json:"total_count"`
	Page        int               `json:"page"`
	PerPage     int               `json:"per_page"`
	Provider    ProviderName      `json:"provider"`
	QueryParams map[string]string `json:"query_params"`
}

// TotalPages derives the page count from TotalCount and PerPage
func (r *SearchResult) TotalPages() int {
	if r.PerPage <= 0 || r.TotalCount <= 0 {
		return 0
	}
	return (r.TotalCount + r.PerPage - 1) / r.PerPage
}
