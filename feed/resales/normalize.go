package resales

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"pwb_feeds/models"
)

const (
	defaultCurrency = "EUR"
	otherCategory   = "Other"
)

var hundred = decimal.NewFromInt(100)

// normalizeProperty maps one vendor property onto the canonical model. Search
// and details responses share this mapping.
func (p *Provider) normalizeProperty(raw *rawProperty, listingType models.ListingType) models.Property {
	typeName := firstNonEmpty(raw.PropertyType.NameType, raw.PropertyType.Subtype1, raw.PropertyType.Type)

	prop := models.Property{
		Reference:       raw.Reference.String(),
		Provider:        models.ProviderResalesOnline,
		Description:     raw.Description.String(),
		Summary:         plainText(raw.Description.String()),
		PropertyType:    normalizeType(typeName),
		PropertyTypeRaw: typeName,
		PropertySubtype: raw.PropertyType.Subtype1.String(),
		ProviderTypeID:  firstNonEmpty(raw.PropertyType.SubtypeID1, raw.PropertyType.TypeID),
		Country:         firstNonEmpty(raw.Country, flexString(p.cfg.DefaultCountry)),
		Region:          raw.Province.String(),
		Area:            raw.Area.String(),
		City:            raw.Location.String(),
		ListingType:     listingType,
		Status:          normalizeStatus(raw.Status.System.String()),
		Price:           toCents(raw.Price),
		OriginalPrice:   optionalCents(raw.OriginalPrice),
		Currency:        firstNonEmpty(raw.Currency, defaultCurrency),
		Bedrooms:        raw.Bedrooms.Int(),
		BuiltArea:       raw.Built.Int(),
		PlotArea:        raw.GardenPlot.Int(),
		TerraceArea:     raw.Terrace.Int(),
		EnergyRating:    optionalString(raw.EnergyRating.EnergyRated),
		EnergyValue:     optionalFloat(raw.EnergyRating.EnergyValue),
		CO2Rating:       optionalString(raw.EnergyRating.CO2Rated),
		VirtualTourURL:  optionalString(raw.VirtualTour),
		CommunityFees:   optionalCents(raw.CommunityFees),
		IBITax:          optionalCents(raw.IBIFees),
	}

	if prop.Price == 0 && listingType == models.ListingTypeRental {
		prop.Price = toCents(raw.RentalPrice1)
	}

	if baths, ok := raw.Bathrooms.Float(); ok && baths > 0 {
		prop.Bathrooms = baths
	}

	lat, latOK := raw.GpsY.Float()
	lng, lngOK := raw.GpsX.Float()
	if latOK && lngOK && (lat != 0 || lng != 0) {
		prop.Latitude = &lat
		prop.Longitude = &lng
	}

	prop.Features, prop.FeaturesByCategory = normalizeFeatures(raw.PropertyFeatures.Category)
	prop.Images = normalizeImages(raw.Pictures.Picture)

	prop.Title = raw.Title.String()
	if prop.Title == "" {
		prop.Title = synthesizeTitle(prop.Bedrooms, typeLabel(&prop), prop.Location())
	}

	return prop
}

// normalizeType buckets a free-text vendor type. Rules are checked in order,
// first match wins, so the specific floor and penthouse rules sit before the
// generic apartment rule.
func normalizeType(raw string) models.PropertyType {
	t := strings.ToLower(raw)
	t = strings.NewReplacer("-", " ", "_", " ").Replace(t)
	t = strings.Join(strings.Fields(t), " ")

	switch {
	case t == "":
		return models.PropertyTypeOther
	case strings.Contains(t, "penthouse"):
		return models.PropertyTypePenthouse
	case strings.Contains(t, "top floor"):
		return models.PropertyTypeApartmentTop
	case strings.Contains(t, "ground floor"):
		return models.PropertyTypeApartmentGround
	case strings.Contains(t, "middle floor"):
		return models.PropertyTypeApartmentMiddle
	case containsAny(t, "apartment", "flat", "duplex"):
		return models.PropertyTypeApartment
	case strings.Contains(t, "villa"), isDetached(t):
		return models.PropertyTypeVilla
	case containsAny(t, "townhouse", "town house", "terraced"):
		return models.PropertyTypeTownhouse
	case containsAny(t, "semi detached", "semidetached"):
		return models.PropertyTypeSemiDetached
	case strings.Contains(t, "bungalow"):
		return models.PropertyTypeBungalow
	case containsAny(t, "finca", "cortijo", "country"):
		return models.PropertyTypeFinca
	case containsAny(t, "plot", "land"):
		return models.PropertyTypeLand
	case containsAny(t, "commercial", "office", "retail", "shop"):
		return models.PropertyTypeCommercial
	default:
		return models.PropertyTypeOther
	}
}

// isDetached matches "detached" that is not part of "semi detached"
func isDetached(t string) bool {
	for i := strings.Index(t, "detached"); i >= 0; {
		prefix := strings.TrimRight(t[:i], " ")
		if !strings.HasSuffix(prefix, "semi") {
			return true
		}
		next := strings.Index(t[i+1:], "detached")
		if next < 0 {
			return false
		}
		i += next + 1
	}
	return false
}

func normalizeStatus(raw string) models.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available":
		return models.StatusAvailable
	case "reserved":
		return models.StatusReserved
	case "sold":
		return models.StatusSold
	case "off market":
		return models.StatusUnavailable
	default:
		return models.StatusAvailable
	}
}

// toCents converts a decimal major-unit price to truncated integer cents.
// Blank, unparseable and negative prices become 0.
func toCents(raw flexString) int64 {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0
	}
	return d.Mul(hundred).IntPart()
}

func optionalCents(raw flexString) *int64 {
	cents := toCents(raw)
	if cents <= 0 {
		return nil
	}
	return &cents
}

func optionalString(raw flexString) *string {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(raw flexString) *float64 {
	v, ok := raw.Float()
	if !ok {
		return nil
	}
	return &v
}

func normalizeFeatures(categories []rawFeatureCategory) ([]string, map[string][]string) {
	flat := []string{}
	grouped := map[string][]string{}
	seen := map[string]bool{}

	for _, cat := range categories {
		name := cat.Type.String()
		if name == "" {
			name = otherCategory
		}
		for _, v := range cat.Value {
			value := strings.TrimSpace(v.String())
			if value == "" {
				continue
			}
			grouped[name] = append(grouped[name], value)
			if !seen[value] {
				seen[value] = true
				flat = append(flat, value)
			}
		}
	}

	return flat, grouped
}

func normalizeImages(pictures []rawPicture) []models.Image {
	images := []models.Image{}
	for i, pic := range pictures {
		u := pic.PictureURL.String()
		if u == "" {
			continue
		}
		images = append(images, models.Image{
			URL:      u,
			Caption:  optionalString(pic.Caption),
			Position: i,
		})
	}
	return images
}

// synthesizeTitle builds "{n} Bedroom {type} in {location}", dropping the
// bedroom clause when n is 0 and the location clause when it is blank.
func synthesizeTitle(bedrooms int, typeName, location string) string {
	title := typeName
	if bedrooms > 0 {
		title = fmt.Sprintf("%d Bedroom %s", bedrooms, typeName)
	}
	if strings.TrimSpace(location) != "" {
		title += " in " + location
	}
	return title
}

func typeLabel(p *models.Property) string {
	if p.PropertyTypeRaw != "" {
		return p.PropertyTypeRaw
	}
	return p.PropertyType.Label()
}

// plainText strips markup from vendor descriptions and collapses whitespace
func plainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	html = strings.NewReplacer("<br>", " ", "<br/>", " ", "<br />", " ").Replace(html)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func firstNonEmpty(values ...flexString) string {
	for _, v := range values {
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
