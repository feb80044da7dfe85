package resales

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pwb_feeds/models"
)

const defaultPageSize = 24

// Vendor query keys
const (
	qAccount       = "p1"
	qAPIKey        = "p2"
	qAPIID         = "P_ApiId"
	qLang          = "P_Lang"
	qPageSize      = "P_PageSize"
	qPageNo        = "P_PageNo"
	qSortType      = "P_SortType"
	qLocation      = "P_Location"
	qMinPrice      = "P_Min"
	qMaxPrice      = "P_Max"
	qBeds          = "P_Beds"
	qBaths         = "P_Baths"
	qMinBuilt      = "P_MinBuilt"
	qMaxBuilt      = "P_MaxBuilt"
	qPropertyTypes = "P_PropertyTypes"
	qCountry       = "P_Country"
	qImages        = "P_Images"
	qRefID         = "P_RefId"
	qShowGPS       = "P_ShowGPSCoords"
)

// credentialKeys are stripped before a query is echoed or logged
var credentialKeys = []string{qAccount, qAPIKey}

// reservedKeys can never be set through a search feature, compared lowercased
var reservedKeys = func() map[string]bool {
	m := map[string]bool{}
	for _, k := range []string{
		qAccount, qAPIKey, qAPIID, qLang, qPageSize, qPageNo, qSortType,
		qLocation, qMinPrice, qMaxPrice, qBeds, qBaths, qMinBuilt, qMaxBuilt,
		qPropertyTypes, qCountry, qImages, qRefID, qShowGPS,
	} {
		m[strings.ToLower(k)] = true
	}
	return m
}()

func isReserved(key string) bool {
	return reservedKeys[strings.ToLower(key)]
}

func (p *Provider) baseQuery(ep endpoint, locale string) url.Values {
	q := url.Values{}
	if p.cfg.AccountID != "" {
		q.Set(qAccount, p.cfg.AccountID)
	}
	q.Set(qAPIKey, p.cfg.APIKey)
	q.Set(qAPIID, ep.apiID)
	q.Set(qLang, p.language(locale))
	q.Set(qShowGPS, "TRUE")
	if p.cfg.ImageCount > 0 {
		q.Set(qImages, strconv.Itoa(p.cfg.ImageCount))
	}
	return q
}

// searchQuery encodes search filters in the vendor's conventions: page 1 is
// omitted, bedroom and bathroom minimums are "{n}x" (at least n), property
// types are comma-joined, features go through the configured mapping.
func (p *Provider) searchQuery(ep endpoint, params models.SearchParams) url.Values {
	q := p.baseQuery(ep, params.Locale)

	perPage := params.PerPage
	if perPage <= 0 {
		perPage = defaultPageSize
	}
	q.Set(qPageSize, strconv.Itoa(perPage))
	if params.Page > 1 {
		q.Set(qPageNo, strconv.Itoa(params.Page))
	}

	q.Set(qSortType, sortCode(params.Sort))

	if loc := strings.TrimSpace(params.Location); loc != "" {
		q.Set(qLocation, loc)
	}
	if p.cfg.DefaultCountry != "" {
		q.Set(qCountry, p.cfg.DefaultCountry)
	}

	setPositive(q, qMinPrice, params.MinPrice)
	setPositive(q, qMaxPrice, params.MaxPrice)
	setPositive(q, qMinBuilt, params.MinArea)
	setPositive(q, qMaxBuilt, params.MaxArea)

	if v := atLeast(params.MinBedrooms); v != "" {
		q.Set(qBeds, v)
	}
	if v := atLeast(params.MinBathrooms); v != "" {
		q.Set(qBaths, v)
	}

	var types []string
	for _, t := range params.PropertyTypes {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	if len(types) > 0 {
		q.Set(qPropertyTypes, strings.Join(types, ","))
	}

	for _, feature := range params.Features {
		feature = strings.TrimSpace(feature)
		if feature == "" {
			continue
		}
		key := feature
		if mapped, ok := p.cfg.FeatureParams[feature]; ok && mapped != "" {
			key = mapped
		}
		if isReserved(key) {
			p.log.WithField("feature", feature).Warn("ignoring feature that names a reserved query key")
			continue
		}
		q.Set(key, "1")
	}

	return q
}

func (p *Provider) detailsQuery(ep endpoint, reference string, params models.FindParams) url.Values {
	q := p.baseQuery(ep, params.Locale)
	q.Set(qRefID, reference)
	return q
}

// atLeast encodes a minimum as "{n}x". The vendor has no maximum filter.
func atLeast(min int) string {
	if min <= 0 {
		return ""
	}
	return strconv.Itoa(min) + "x"
}

func setPositive(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

// buildURL form-encodes the query (UTF-8 aware) and then runs a general URI
// escape over the whole URL, so characters in the configured base survive too.
func buildURL(base string, q url.Values) string {
	return escapeURL(base + "?" + q.Encode())
}

// escapeURL percent-encodes every byte that is not legal in a URI while
// leaving existing %XX escapes alone, so it is safe on encoded input.
func escapeURL(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '%' && i+2 < len(raw) && isHex(raw[i+1]) && isHex(raw[i+2]):
			b.WriteByte(c)
		case isURIChar(c):
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isURIChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~:/?#[]@!$&'()*+,;=", c) >= 0
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// publicQuery flattens a query for echoing back to callers, minus credentials
func publicQuery(q url.Values) map[string]string {
	out := make(map[string]string, len(q))
	for key := range q {
		out[key] = q.Get(key)
	}
	for _, key := range credentialKeys {
		delete(out, key)
	}
	return out
}

// maskedURL is the request URL safe for logs
func maskedURL(base string, q url.Values) string {
	safe := url.Values{}
	for key, vals := range q {
		safe[key] = vals
	}
	for _, key := range credentialKeys {
		if safe.Has(key) {
			safe.Set(key, "****")
		}
	}
	return base + "?" + safe.Encode()
}
