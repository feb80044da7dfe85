package models

// ProviderName identifies the backend that produced a record
type ProviderName string

const (
	ProviderResalesOnline ProviderName = "resales_online"
)

type ListingType string

const (
	ListingTypeSale   ListingType = "sale"
	ListingTypeRental ListingType = "rental"
)

// ParseListingType maps free input onto a listing type, defaulting to sale.
func ParseListingType(s string) ListingType {
	switch s {
	case "rental", "rent", "rentals", "for_rent":
		return ListingTypeRental
	default:
		return ListingTypeSale
	}
}

type Status string

const (
	StatusAvailable   Status = "available"
	StatusReserved    Status = "reserved"
	StatusSold        Status = "sold"
	StatusUnavailable Status = "unavailable"
)

// PropertyType is the normalized bucket a vendor type string maps into
type PropertyType string

const (
	PropertyTypeApartment       PropertyType = "apartment"
	PropertyTypeApartmentTop    PropertyType = "apartment_top"
	PropertyTypeApartmentGround PropertyType = "apartment_ground"
	PropertyTypeApartmentMiddle PropertyType = "apartment_middle"
	PropertyTypePenthouse       PropertyType = "penthouse"
	PropertyTypeVilla           PropertyType = "villa"
	PropertyTypeTownhouse       PropertyType = "townhouse"
	PropertyTypeSemiDetached    PropertyType = "semi_detached"
	PropertyTypeBungalow        PropertyType = "bungalow"
	PropertyTypeFinca           PropertyType = "finca"
	PropertyTypeLand            PropertyType = "land"
	PropertyTypeCommercial      PropertyType = "commercial"
	PropertyTypeOther           PropertyType = "other"
)

// Label returns a human readable name for the bucket
func (t PropertyType) Label() string {
	switch t {
	case PropertyTypeApartment:
		return "Apartment"
	case PropertyTypeApartmentTop:
		return "Top Floor Apartment"
	case PropertyTypeApartmentGround:
		return "Ground Floor Apartment"
	case PropertyTypeApartmentMiddle:
		return "Middle Floor Apartment"
	case PropertyTypePenthouse:
		return "Penthouse"
	case PropertyTypeVilla:
		return "Villa"
	case PropertyTypeTownhouse:
		return "Townhouse"
	case PropertyTypeSemiDetached:
		return "Semi-Detached House"
	case PropertyTypeBungalow:
		return "Bungalow"
	case PropertyTypeFinca:
		return "Finca"
	case PropertyTypeLand:
		return "Plot"
	case PropertyTypeCommercial:
		return "Commercial"
	default:
		return "Property"
	}
}

// Image is one listing picture, Position is its 0-based order in the feed
type Image struct {
	URL      string  `json:"url"`
	Caption  *string `json:"caption,omitempty"`
	Position int     `json:"position"`
}

// Property is the canonical, provider-agnostic listing.
// Money fields are integer cents. A zero Price means the vendor published no
// usable price (POA); use HasPrice rather than comparing against nil.
type Property struct {
	Reference string       `json:"reference"`
	Provider  ProviderName `json:"provider"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Summary     string `json:"summary,omitempty"`

	PropertyType    PropertyType `json:"property_type"`
	PropertyTypeRaw string       `json:"property_type_raw"`
	PropertySubtype string       `json:"property_subtype"`
	ProviderTypeID  string       `json:"provider_type_id,omitempty"`

	Country   string   `json:"country"`
	Region    string   `json:"region"`
	Area      string   `json:"area"`
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	ListingType ListingType `json:"listing_type"`
	Status      Status      `json:"status"`

	Price         int64  `json:"price"`
	OriginalPrice *int64 `json:"original_price,omitempty"`
	Currency      string `json:"currency"`

	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   float64 `json:"bathrooms"`
	BuiltArea   int     `json:"built_area"`
	PlotArea    int     `json:"plot_area"`
	TerraceArea int     `json:"terrace_area"`

	Features           []string            `json:"features"`
	FeaturesByCategory map[string][]string `json:"features_by_category"`

	EnergyRating *string  `json:"energy_rating,omitempty"`
	EnergyValue  *float64 `json:"energy_value,omitempty"`
	CO2Rating    *string  `json:"co2_rating,omitempty"`

	Images         []Image `json:"images"`
	VirtualTourURL *string `json:"virtual_tour_url,omitempty"`

	CommunityFees *int64 `json:"community_fees,omitempty"`
	IBITax        *int64 `json:"ibi_tax,omitempty"`
}

// HasPrice reports whether the listing carries a published price.
func (p *Property) HasPrice() bool {
	return p.Price > 0
}

// Location returns the most specific place name available
func (p *Property) Location() string {
	switch {
	case p.City != "":
		return p.City
	case p.Area != "":
		return p.Area
	case p.Region != "":
		return p.Region
	default:
		return p.Country
	}
}
