package api

import (
	"net/url"
	"strconv"
	"strings"

	"pwb_feeds/models"
)

var searchKeys = map[string]bool{
	"listing_type": true, "location": true,
	"min_price": true, "max_price": true,
	"min_bedrooms": true, "max_bedrooms": true,
	"min_bathrooms": true, "max_bathrooms": true,
	"min_area": true, "max_area": true,
	"property_types": true, "property_type": true, "features": true,
	"sort": true, "page": true, "per_page": true, "locale": true,
}

// searchParams maps query parameters onto SearchParams. Malformed numbers are
// ignored; unknown keys are kept as extensions.
func searchParams(q url.Values) models.SearchParams {
	params := models.SearchParams{
		ListingType:  models.ParseListingType(q.Get("listing_type")),
		Location:     strings.TrimSpace(q.Get("location")),
		MinPrice:     intParam(q, "min_price"),
		MaxPrice:     intParam(q, "max_price"),
		MinBedrooms:  intParam(q, "min_bedrooms"),
		MaxBedrooms:  intParam(q, "max_bedrooms"),
		MinBathrooms: intParam(q, "min_bathrooms"),
		MaxBathrooms: intParam(q, "max_bathrooms"),
		MinArea:      intParam(q, "min_area"),
		MaxArea:      intParam(q, "max_area"),
		Sort:         models.SortOrder(q.Get("sort")),
		Page:         intParam(q, "page"),
		PerPage:      intParam(q, "per_page"),
		Locale:       q.Get("locale"),
	}
	params.PropertyTypes = listParam(q, "property_types", "property_type")
	params.Features = listParam(q, "features")

	for key := range q {
		if searchKeys[key] {
			continue
		}
		if params.Extensions == nil {
			params.Extensions = map[string]string{}
		}
		params.Extensions[key] = q.Get(key)
	}
	return params
}

func findParams(q url.Values) models.FindParams {
	return models.FindParams{
		ListingType: models.ParseListingType(q.Get("listing_type")),
		Locale:      q.Get("locale"),
	}
}

func similarParams(q url.Values) models.SimilarParams {
	return models.SimilarParams{
		Limit:  intParam(q, "limit"),
		Locale: q.Get("locale"),
	}
}

func lookupParams(q url.Values) models.LookupParams {
	return models.LookupParams{
		ListingType: models.ParseListingType(q.Get("listing_type")),
		Locale:      q.Get("locale"),
	}
}

// intParam returns 0 for missing, malformed or negative values
func intParam(q url.Values, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// listParam accepts repeated keys and comma separated values
func listParam(q url.Values, keys ...string) []string {
	var out []string
	for _, key := range keys {
		for _, v := range q[key] {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}
