// Package resales implements the feed provider for the Resales Online web API.
package resales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"pwb_feeds/config"
	"pwb_feeds/feed"
	"pwb_feeds/httputil"
	"pwb_feeds/models"
)

const (
	DefaultBaseURL = "https://webapi.resales-online.com"
	DefaultVersion = "V6"

	searchPath  = "SearchProperties"
	detailsPath = "PropertyDetails"

	maxBodySize = 10 << 20
)

const (
	opSearch    = "search"
	opFind      = "find"
	opAvailable = "available"
)

func init() {
	feed.Register(models.ProviderResalesOnline, func(cfg *config.ProviderConfig, client *http.Client, log logrus.FieldLogger) (feed.Provider, error) {
		return New(cfg, client, log), nil
	})
}

// endpoint is the URL pair and API id used for one listing type
type endpoint struct {
	search  string
	details string
	apiID   string
}

type Provider struct {
	feed.Base
	cfg       *config.ProviderConfig
	client    *http.Client
	log       logrus.FieldLogger
	endpoints map[models.ListingType]endpoint
}

var _ feed.Provider = (*Provider)(nil)

// New builds the provider. Build the client with httputil.NewFeedClient to
// get the vendor timeouts; a client without a redirect policy gets the
// single-redirect cap applied to a copy.
func New(cfg *config.ProviderConfig, client *http.Client, log logrus.FieldLogger) *Provider {
	if client == nil {
		client = httputil.NewFeedClient(&config.HTTPConfig{})
	} else if client.CheckRedirect == nil {
		capped := *client
		capped.CheckRedirect = httputil.LimitRedirects(httputil.MaxRedirects)
		client = &capped
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	salesVersion := cfg.SalesVersion
	if salesVersion == "" {
		salesVersion = DefaultVersion
	}
	rentalsVersion := cfg.RentalsVersion
	if rentalsVersion == "" {
		rentalsVersion = salesVersion
	}

	return &Provider{
		Base: feed.NewBase(models.ProviderResalesOnline, map[string]string{
			"api_key":      cfg.APIKey,
			"api_id_sales": cfg.APIIDSales,
		}),
		cfg:    cfg,
		client: client,
		log:    log.WithFields(logrus.Fields{"provider": models.ProviderResalesOnline, "account": cfg.ID}),
		endpoints: map[models.ListingType]endpoint{
			models.ListingTypeSale: {
				search:  base + "/" + salesVersion + "/" + searchPath,
				details: base + "/" + salesVersion + "/" + detailsPath,
				apiID:   cfg.APIIDSales,
			},
			models.ListingTypeRental: {
				search:  base + "/" + rentalsVersion + "/" + searchPath,
				details: base + "/" + rentalsVersion + "/" + detailsPath,
				apiID:   cfg.RentalsID(),
			},
		},
	}
}

func (p *Provider) endpointFor(lt models.ListingType) endpoint {
	if lt == models.ListingTypeRental {
		return p.endpoints[models.ListingTypeRental]
	}
	return p.endpoints[models.ListingTypeSale]
}

func listingTypeOrSale(lt models.ListingType) models.ListingType {
	if lt == models.ListingTypeRental {
		return lt
	}
	return models.ListingTypeSale
}

// Search runs one page of a property search. A 404 or a missing Property key
// is an empty page, never an error.
func (p *Provider) Search(ctx context.Context, params models.SearchParams) (*models.SearchResult, error) {
	if err := p.EnsureConfigured(opSearch); err != nil {
		return nil, err
	}

	lt := listingTypeOrSale(params.ListingType)
	ep := p.endpointFor(lt)
	q := p.searchQuery(ep, params)

	result := &models.SearchResult{
		Properties:  []models.Property{},
		Page:        params.Page,
		PerPage:     params.PerPage,
		Provider:    models.ProviderResalesOnline,
		QueryParams: publicQuery(q),
	}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = defaultPageSize
	}

	resp, err := p.fetch(ctx, opSearch, ep.search, q)
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			return result, nil
		}
		return nil, err
	}

	if !resp.succeeded() {
		return nil, feed.NewError(feed.ErrProvider, string(p.Name()), opSearch, fmt.Errorf("transaction %s: %s", resp.Transaction.Status, resp.errorText()))
	}

	if n := resp.QueryInfo.CurrentPage.Int(); n > 0 {
		result.Page = n
	}
	if n := resp.QueryInfo.PropertiesPerPage.Int(); n > 0 {
		result.PerPage = n
	}

	for i := range resp.Property {
		if resp.Property[i].Reference == "" {
			continue
		}
		result.Properties = append(result.Properties, p.normalizeProperty(&resp.Property[i], lt))
	}

	result.TotalCount = resp.QueryInfo.PropertyCount.Int()
	if result.TotalCount < len(result.Properties) {
		result.TotalCount = len(result.Properties)
	}

	p.log.WithFields(logrus.Fields{"op": opSearch, "count": len(result.Properties), "total": result.TotalCount}).Debug("search complete")
	return result, nil
}

// Find looks up one property. (nil, nil) means the vendor reported it missing.
func (p *Provider) Find(ctx context.Context, reference string, params models.FindParams) (*models.Property, error) {
	if err := p.EnsureConfigured(opFind); err != nil {
		return nil, err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}

	lt := listingTypeOrSale(params.ListingType)
	ep := p.endpointFor(lt)

	resp, err := p.fetch(ctx, opFind, ep.details, p.detailsQuery(ep, reference, params))
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !resp.succeeded() {
		text := resp.errorText()
		if strings.Contains(strings.ToLower(text), "not found") {
			return nil, nil
		}
		return nil, feed.NewError(feed.ErrInvalidResponse, string(p.Name()), opFind, fmt.Errorf("transaction %s: %s", resp.Transaction.Status, text))
	}

	for i := range resp.Property {
		if resp.Property[i].Reference == "" {
			continue
		}
		prop := p.normalizeProperty(&resp.Property[i], lt)
		return &prop, nil
	}

	return nil, nil
}

// Similar approximates nearby matches with a plain search: same type and
// city, 70%-130% of the seed price, at least the seed's bedrooms, newest first.
func (p *Provider) Similar(ctx context.Context, property *models.Property, params models.SimilarParams) ([]models.Property, error) {
	if property == nil {
		return []models.Property{}, nil
	}
	limit := params.ClampedLimit()

	search := models.SearchParams{
		ListingType: listingTypeOrSale(property.ListingType),
		Location:    property.City,
		Sort:        models.SortNewest,
		PerPage:     limit + 1,
		Locale:      params.Locale,
	}
	if property.ProviderTypeID != "" {
		search.PropertyTypes = []string{property.ProviderTypeID}
	}
	if property.HasPrice() {
		major := property.Price / 100
		search.MinPrice = int(major * 70 / 100)
		search.MaxPrice = int(major * 130 / 100)
	}
	if property.Bedrooms > 0 {
		search.MinBedrooms = property.Bedrooms
	}

	result, err := p.Search(ctx, search)
	if err != nil {
		return nil, err
	}

	similar := make([]models.Property, 0, limit)
	for _, candidate := range result.Properties {
		if candidate.Reference == property.Reference {
			continue
		}
		similar = append(similar, candidate)
		if len(similar) == limit {
			break
		}
	}
	return similar, nil
}

// Available is a health probe; it never fails
func (p *Provider) Available(ctx context.Context) bool {
	if err := p.probe(ctx); err != nil {
		p.log.WithError(err).Warn("availability probe failed")
		return false
	}
	return true
}

// probe issues a one-result search against the sales endpoint
func (p *Provider) probe(ctx context.Context) error {
	if err := p.EnsureConfigured(opAvailable); err != nil {
		return err
	}
	ep := p.endpointFor(models.ListingTypeSale)
	q := p.searchQuery(ep, models.SearchParams{PerPage: 1})

	resp, err := p.fetch(ctx, opAvailable, ep.search, q)
	if err != nil {
		return err
	}
	if !resp.succeeded() {
		return feed.NewError(feed.ErrProvider, string(p.Name()), opAvailable, fmt.Errorf("transaction %s", resp.Transaction.Status))
	}
	return nil
}

// fetch performs the GET and classifies every failure into a feed error kind
func (p *Provider) fetch(ctx context.Context, op, base string, q url.Values) (*searchResponse, error) {
	name := string(p.Name())
	log := p.log.WithFields(logrus.Fields{"op": op, "url": maskedURL(base, q)})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, buildURL(base, q), nil)
	if err != nil {
		return nil, feed.NewError(feed.ErrProvider, name, op, err)
	}
	req.Header.Set("Accept", "application/json")

	log.Debug("feed request")
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, httputil.ErrTooManyRedirects) {
			return nil, feed.NewError(feed.ErrTooManyRedirects, name, op, err)
		}
		log.WithError(err).Warn("feed request failed")
		return nil, feed.NewError(feed.ErrUnavailable, name, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, feed.NewError(feed.ErrUnavailable, name, op, fmt.Errorf("read body: %w", err))
	}

	if kind := feed.ClassifyStatus(resp.StatusCode); kind != nil {
		if kind != feed.ErrNotFound {
			log.WithField("status", resp.StatusCode).Warn("feed request rejected")
		}
		return nil, feed.StatusError(name, op, resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, feed.NewError(feed.ErrInvalidResponse, name, op, err)
	}
	return &out, nil
}
