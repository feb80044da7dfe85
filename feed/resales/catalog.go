package resales

import (
	"context"
	"strings"

	"pwb_feeds/models"
)

const defaultLanguage = "1"

var defaultLanguages = map[string]string{
	"en": "1",
	"es": "2",
	"de": "3",
	"fr": "4",
	"nl": "5",
	"da": "6",
	"ru": "7",
	"sv": "8",
	"pl": "9",
	"no": "10",
	"tr": "11",
	"fi": "13",
}

var sortCodes = map[models.SortOrder]string{
	models.SortPriceAsc:     "0",
	models.SortPriceDesc:    "1",
	models.SortLocation:     "2",
	models.SortNewest:       "3",
	models.SortOldest:       "4",
	models.SortListedNewest: "5",
	models.SortListedOldest: "6",
	models.SortUpdated:      "3",
}

// sortCode falls back to price ascending for unknown orders
func sortCode(order models.SortOrder) string {
	if code, ok := sortCodes[order]; ok {
		return code
	}
	return "0"
}

// language resolves a locale like "es" or "en-GB" to a vendor language code
func (p *Provider) language(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		return defaultLanguage
	}
	base := locale
	if parts := strings.FieldsFunc(locale, func(r rune) bool { return r == '-' || r == '_' }); len(parts) > 0 {
		base = parts[0]
	}

	for _, key := range []string{locale, base} {
		if code, ok := p.cfg.LocaleLanguages[key]; ok && code != "" {
			return code
		}
	}
	if code, ok := defaultLanguages[base]; ok {
		return code
	}
	return defaultLanguage
}

var defaultLocations = []models.Option{
	{Value: "Benahavís", Label: "Benahavís"},
	{Value: "Benalmadena", Label: "Benalmádena"},
	{Value: "Casares", Label: "Casares"},
	{Value: "Estepona", Label: "Estepona"},
	{Value: "Fuengirola", Label: "Fuengirola"},
	{Value: "Manilva", Label: "Manilva"},
	{Value: "Marbella", Label: "Marbella"},
	{Value: "Mijas", Label: "Mijas"},
	{Value: "Nerja", Label: "Nerja"},
	{Value: "Puerto Banús", Label: "Puerto Banús"},
	{Value: "San Pedro de Alcántara", Label: "San Pedro de Alcántara"},
	{Value: "Sotogrande", Label: "Sotogrande"},
	{Value: "Torremolinos", Label: "Torremolinos"},
}

var defaultPropertyTypes = []models.PropertyTypeOption{
	{Value: "1-1", Label: "Apartment", Subtypes: []models.Option{
		{Value: "1-2", Label: "Ground Floor Apartment"},
		{Value: "1-4", Label: "Middle Floor Apartment"},
		{Value: "1-5", Label: "Top Floor Apartment"},
		{Value: "1-6", Label: "Penthouse"},
		{Value: "1-7", Label: "Duplex Penthouse"},
		{Value: "1-8", Label: "Duplex"},
	}},
	{Value: "2-1", Label: "House", Subtypes: []models.Option{
		{Value: "2-2", Label: "Detached Villa"},
		{Value: "2-4", Label: "Semi-Detached House"},
		{Value: "2-5", Label: "Townhouse"},
		{Value: "2-6", Label: "Finca - Cortijo"},
		{Value: "2-9", Label: "Bungalow"},
	}},
	{Value: "3-1", Label: "Plot", Subtypes: []models.Option{
		{Value: "3-2", Label: "Land"},
		{Value: "3-3", Label: "Residential Plot"},
	}},
	{Value: "4-1", Label: "Commercial", Subtypes: []models.Option{
		{Value: "4-2", Label: "Office"},
		{Value: "4-3", Label: "Shop"},
		{Value: "4-6", Label: "Restaurant"},
	}},
}

// Locations returns the configured locations, or the built-in list
func (p *Provider) Locations(_ context.Context, _ models.LookupParams) []models.Option {
	src := p.cfg.Locations
	if len(src) == 0 {
		src = defaultLocations
	}
	out := make([]models.Option, len(src))
	copy(out, src)
	return out
}

// PropertyTypes returns the configured taxonomy, or the built-in vendor one
func (p *Provider) PropertyTypes(_ context.Context, _ models.LookupParams) []models.PropertyTypeOption {
	src := p.cfg.PropertyTypes
	if len(src) == 0 {
		src = defaultPropertyTypes
	}
	out := make([]models.PropertyTypeOption, len(src))
	for i, opt := range src {
		out[i] = opt
		out[i].Subtypes = append([]models.Option(nil), opt.Subtypes...)
	}
	return out
}
