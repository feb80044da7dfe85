package resales

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pwb_feeds/config"
	"pwb_feeds/feed"
	"pwb_feeds/httputil"
	"pwb_feeds/logging"
	"pwb_feeds/models"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "read fixture %s", name)
	return data
}

// stubAPI serves fixtures per path and records the queries it received
type stubAPI struct {
	t       *testing.T
	mu      sync.Mutex
	routes  map[string]http.HandlerFunc
	queries []url.Values
	paths   []string
}

func newStubAPI(t *testing.T) *stubAPI {
	return &stubAPI{t: t, routes: map[string]http.HandlerFunc{}}
}

func (s *stubAPI) fixture(path, name string) *stubAPI {
	body := loadFixture(s.t, name)
	s.routes[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
	return s
}

func (s *stubAPI) status(path string, code int) *stubAPI {
	s.routes[path] = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}
	return s
}

func (s *stubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.Query())
	s.paths = append(s.paths, r.URL.Path)
	handler, ok := s.routes[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

func (s *stubAPI) requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *stubAPI) lastQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(s.t, s.queries, "no request received")
	return s.queries[len(s.queries)-1]
}

func (s *stubAPI) lastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(s.t, s.paths, "no request received")
	return s.paths[len(s.paths)-1]
}

func testConfig(baseURL string) *config.ProviderConfig {
	return &config.ProviderConfig{
		ID:             "resales_marbella",
		Provider:       string(models.ProviderResalesOnline),
		APIKey:         "secret-key",
		AccountID:      "agency-7",
		APIIDSales:     "1234",
		APIIDRentals:   "5678",
		BaseURL:        baseURL,
		DefaultCountry: "Spain",
		FeatureParams:  map[string]string{"private_pool": "P_Pool"},
	}
}

func newTestProvider(t *testing.T, api *stubAPI) *Provider {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(testConfig(srv.URL), httputil.NewFeedClient(&config.HTTPConfig{}), logging.Discard())
}

func TestSearch_MultipleProperties(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "search_multiple.json")
	p := newTestProvider(t, api)

	result, err := p.Search(context.Background(), models.SearchParams{Location: "Marbella"})
	require.NoError(t, err)

	assert.Equal(t, models.ProviderResalesOnline, result.Provider)
	assert.Equal(t, 57, result.TotalCount)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 24, result.PerPage)
	assert.Equal(t, 3, result.TotalPages())
	require.Len(t, result.Properties, 2, "property without a reference is dropped")

	pent := result.Properties[0]
	assert.Equal(t, "R4123456", pent.Reference)
	assert.Equal(t, models.PropertyTypePenthouse, pent.PropertyType)
	assert.Equal(t, "Penthouse Apartment", pent.PropertyTypeRaw)
	assert.Equal(t, "Penthouse", pent.PropertySubtype)
	assert.Equal(t, "1-6", pent.ProviderTypeID)
	assert.Equal(t, int64(123450), pent.Price)
	require.NotNil(t, pent.OriginalPrice)
	assert.Equal(t, int64(150000), *pent.OriginalPrice)
	assert.Equal(t, "EUR", pent.Currency)
	assert.Equal(t, 3, pent.Bedrooms)
	assert.Equal(t, 2.0, pent.Bathrooms)
	assert.Equal(t, 145, pent.BuiltArea)
	assert.Equal(t, 60, pent.TerraceArea)
	assert.Equal(t, 0, pent.PlotArea)
	assert.Equal(t, "Marbella", pent.City)
	assert.Equal(t, "Costa del Sol", pent.Area)
	assert.Equal(t, "Málaga", pent.Region)
	assert.Equal(t, "Spain", pent.Country)
	assert.Equal(t, models.StatusAvailable, pent.Status)
	assert.Equal(t, models.ListingTypeSale, pent.ListingType)
	require.NotNil(t, pent.Latitude)
	require.NotNil(t, pent.Longitude)
	assert.InDelta(t, 36.5101, *pent.Latitude, 1e-9)
	assert.InDelta(t, -4.8824, *pent.Longitude, 1e-9)
	require.NotNil(t, pent.CommunityFees)
	assert.Equal(t, int64(240000), *pent.CommunityFees)
	require.NotNil(t, pent.IBITax)
	assert.Equal(t, int64(95075), *pent.IBITax)
	require.NotNil(t, pent.EnergyRating)
	assert.Equal(t, "B", *pent.EnergyRating)
	require.NotNil(t, pent.CO2Rating)
	assert.Equal(t, "C", *pent.CO2Rating)
	require.NotNil(t, pent.EnergyValue)
	assert.InDelta(t, 45.2, *pent.EnergyValue, 1e-9)
	assert.Nil(t, pent.VirtualTourURL)

	assert.Equal(t, "3 Bedroom Penthouse Apartment in Marbella", pent.Title)
	assert.Equal(t, "Stunning penthouse with sea views. Walking distance to the beach.", pent.Summary)
	assert.Contains(t, pent.Description, "<b>penthouse</b>")

	assert.Equal(t, []string{"Beachside", "Close To Golf", "Communal", "Sea"}, pent.Features)
	assert.Equal(t, []string{"Sea", "Beachside"}, pent.FeaturesByCategory["Views"])
	assert.Equal(t, []string{"Communal"}, pent.FeaturesByCategory["Pool"])

	require.Len(t, pent.Images, 2, "blank picture URL is skipped")
	assert.Equal(t, 0, pent.Images[0].Position)
	require.NotNil(t, pent.Images[0].Caption)
	assert.Equal(t, "Terrace", *pent.Images[0].Caption)
	assert.Equal(t, 2, pent.Images[1].Position)
	assert.Nil(t, pent.Images[1].Caption)

	semi := result.Properties[1]
	assert.Equal(t, models.PropertyTypeSemiDetached, semi.PropertyType)
	assert.Equal(t, models.StatusReserved, semi.Status)
	assert.Equal(t, int64(0), semi.Price)
	assert.False(t, semi.HasPrice())
	assert.Nil(t, semi.OriginalPrice)
	assert.Nil(t, semi.Latitude, "0,0 coordinates are treated as unknown")
	assert.Nil(t, semi.Longitude)
	assert.Equal(t, 4, semi.Bedrooms)
	assert.Equal(t, 400, semi.PlotArea)
	assert.Empty(t, semi.Images)
	assert.NotNil(t, semi.Images, "images is an empty list, never null")
	assert.NotNil(t, semi.Features)
}

func TestSearch_SingleObjectProperty(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "search_single.json")
	p := newTestProvider(t, api)

	result, err := p.Search(context.Background(), models.SearchParams{})
	require.NoError(t, err)
	require.Len(t, result.Properties, 1)

	villa := result.Properties[0]
	assert.Equal(t, "R3000001", villa.Reference)
	assert.Equal(t, models.PropertyTypeVilla, villa.PropertyType)
	assert.Equal(t, int64(395000000), villa.Price)
	assert.Equal(t, 5.5, villa.Bathrooms)
	assert.Equal(t, []string{"Private"}, villa.Features)
	require.Len(t, villa.Images, 1)
	assert.Equal(t, "https://cdn.resales-online.com/public/villa/1.jpg", villa.Images[0].URL)
	assert.Equal(t, 1, result.TotalCount)

	arrayAPI := newStubAPI(t).fixture("/V6/SearchProperties", "search_single_array.json")
	wrapped, err := newTestProvider(t, arrayAPI).Search(context.Background(), models.SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, wrapped.Properties, result.Properties, "single object decodes like a one-element array")
	assert.Equal(t, wrapped.TotalCount, result.TotalCount)
	assert.Equal(t, wrapped.Page, result.Page)
	assert.Equal(t, wrapped.PerPage, result.PerPage)
}

func TestSearch_EmptyResponse(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "search_empty.json")
	p := newTestProvider(t, api)

	result, err := p.Search(context.Background(), models.SearchParams{})
	require.NoError(t, err)
	assert.NotNil(t, result.Properties)
	assert.Empty(t, result.Properties)
	assert.Equal(t, 0, result.TotalCount)
}

func TestSearch_NotFoundIsEmptyPage(t *testing.T) {
	api := newStubAPI(t).status("/V6/SearchProperties", http.StatusNotFound)
	p := newTestProvider(t, api)

	result, err := p.Search(context.Background(), models.SearchParams{Page: 3, PerPage: 12})
	require.NoError(t, err)
	assert.Empty(t, result.Properties)
	assert.Equal(t, 3, result.Page)
	assert.Equal(t, 12, result.PerPage)
}

func TestSearch_FailedEnvelope(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "search_error.json")
	p := newTestProvider(t, api)

	_, err := p.Search(context.Background(), models.SearchParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrProvider)
	assert.Contains(t, err.Error(), "Invalid API id")
}

func TestSearch_Idempotent(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "search_multiple.json")
	p := newTestProvider(t, api)
	params := models.SearchParams{Location: "Marbella", MinBedrooms: 2, Sort: models.SortPriceDesc}

	first, err := p.Search(context.Background(), params)
	require.NoError(t, err)
	second, err := p.Search(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSearch_QueryEncoding(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "search_empty.json")
	p := newTestProvider(t, api)

	result, err := p.Search(context.Background(), models.SearchParams{
		Location:      "  Benahavís ",
		MinPrice:      200000,
		MaxPrice:      750000,
		MinBedrooms:   3,
		MinBathrooms:  2,
		MinArea:       90,
		PropertyTypes: []string{"1-1", " ", "2-2"},
		Features:      []string{"private_pool", "P_SeaViews"},
		Sort:          models.SortNewest,
		Page:          1,
		Locale:        "es",
	})
	require.NoError(t, err)

	q := api.lastQuery()
	assert.Equal(t, "agency-7", q.Get("p1"))
	assert.Equal(t, "secret-key", q.Get("p2"))
	assert.Equal(t, "1234", q.Get("P_ApiId"))
	assert.Equal(t, "2", q.Get("P_Lang"))
	assert.Equal(t, "Benahavís", q.Get("P_Location"))
	assert.Equal(t, "Spain", q.Get("P_Country"))
	assert.Equal(t, "200000", q.Get("P_Min"))
	assert.Equal(t, "750000", q.Get("P_Max"))
	assert.Equal(t, "3x", q.Get("P_Beds"))
	assert.Equal(t, "2x", q.Get("P_Baths"))
	assert.Equal(t, "90", q.Get("P_MinBuilt"))
	assert.False(t, q.Has("P_MaxBuilt"))
	assert.Equal(t, "1-1,2-2", q.Get("P_PropertyTypes"))
	assert.Equal(t, "1", q.Get("P_Pool"), "mapped feature")
	assert.Equal(t, "1", q.Get("P_SeaViews"), "unmapped feature passes through")
	assert.Equal(t, "3", q.Get("P_SortType"))
	assert.Equal(t, "24", q.Get("P_PageSize"))
	assert.False(t, q.Has("P_PageNo"), "page 1 is never sent")
	assert.Equal(t, "TRUE", q.Get("P_ShowGPSCoords"))

	assert.NotContains(t, result.QueryParams, "p1")
	assert.NotContains(t, result.QueryParams, "p2")
	assert.Equal(t, "1234", result.QueryParams["P_ApiId"])
}

func TestSearch_RentalEndpoint(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "rental_search.json")
	p := newTestProvider(t, api)

	result, err := p.Search(context.Background(), models.SearchParams{ListingType: models.ListingTypeRental, Page: 2})
	require.NoError(t, err)

	q := api.lastQuery()
	assert.Equal(t, "5678", q.Get("P_ApiId"))
	assert.Equal(t, "2", q.Get("P_PageNo"))

	require.Len(t, result.Properties, 1)
	rental := result.Properties[0]
	assert.Equal(t, models.ListingTypeRental, rental.ListingType)
	assert.Equal(t, int64(180000), rental.Price, "rental price falls back to RentalPrice1")
	assert.Equal(t, "Spain", rental.Country, "country falls back to the configured default")
	assert.Equal(t, models.PropertyTypeTownhouse, rental.PropertyType)
	assert.Equal(t, "3 Bedroom Townhouse in Fuengirola", rental.Title)
	assert.Equal(t, 10, result.PerPage)
}

func TestSearch_NotConfiguredMakesNoRequest(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "search_multiple.json")
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	p := New(cfg, nil, logging.Discard())

	assert.False(t, p.Configured())

	_, err := p.Search(context.Background(), models.SearchParams{})
	assert.ErrorIs(t, err, feed.ErrConfiguration)
	assert.Contains(t, err.Error(), "api_key")

	_, err = p.Find(context.Background(), "R1", models.FindParams{})
	assert.ErrorIs(t, err, feed.ErrConfiguration)

	assert.False(t, p.Available(context.Background()))
	assert.Equal(t, 0, api.requests())
}

func TestFind_Details(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/PropertyDetails", "details_sold.json")
	p := newTestProvider(t, api)

	prop, err := p.Find(context.Background(), "R4123456", models.FindParams{Locale: "de"})
	require.NoError(t, err)
	require.NotNil(t, prop)

	assert.Equal(t, "R4123456", prop.Reference)
	assert.Equal(t, models.StatusSold, prop.Status)
	assert.Equal(t, models.PropertyTypeApartmentMiddle, prop.PropertyType)
	assert.Equal(t, int64(42500000), prop.Price)
	require.NotNil(t, prop.VirtualTourURL)
	assert.Equal(t, "https://tour.example.com/R4123456", *prop.VirtualTourURL)

	q := api.lastQuery()
	assert.Equal(t, "R4123456", q.Get("P_RefId"))
	assert.Equal(t, "3", q.Get("P_Lang"))
	assert.Equal(t, "/V6/PropertyDetails", api.lastPath())
}

func TestFind_Missing(t *testing.T) {
	t.Run("http 404", func(t *testing.T) {
		p := newTestProvider(t, newStubAPI(t).status("/V6/PropertyDetails", http.StatusNotFound))
		prop, err := p.Find(context.Background(), "R0", models.FindParams{})
		assert.NoError(t, err)
		assert.Nil(t, prop)
	})

	t.Run("envelope not found", func(t *testing.T) {
		p := newTestProvider(t, newStubAPI(t).fixture("/V6/PropertyDetails", "details_not_found.json"))
		prop, err := p.Find(context.Background(), "R0", models.FindParams{})
		assert.NoError(t, err)
		assert.Nil(t, prop)
	})

	t.Run("blank reference", func(t *testing.T) {
		api := newStubAPI(t)
		p := newTestProvider(t, api)
		prop, err := p.Find(context.Background(), "  ", models.FindParams{})
		assert.NoError(t, err)
		assert.Nil(t, prop)
		assert.Equal(t, 0, api.requests())
	})
}

func TestFind_FailedEnvelopeIsInvalidResponse(t *testing.T) {
	p := newTestProvider(t, newStubAPI(t).fixture("/V6/PropertyDetails", "search_error.json"))

	_, err := p.Find(context.Background(), "R1", models.FindParams{})
	assert.ErrorIs(t, err, feed.ErrInvalidResponse)
}

func TestFind_MalformedJSON(t *testing.T) {
	api := newStubAPI(t)
	api.routes["/V6/PropertyDetails"] = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transaction": {"status": "success"}, "Property": [`))
	}
	p := newTestProvider(t, api)

	_, err := p.Find(context.Background(), "R1", models.FindParams{})
	assert.ErrorIs(t, err, feed.ErrInvalidResponse)
}

func TestFind_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, feed.ErrAuthentication},
		{http.StatusForbidden, feed.ErrAuthentication},
		{http.StatusTooManyRequests, feed.ErrRateLimited},
		{http.StatusServiceUnavailable, feed.ErrUnavailable},
		{http.StatusInternalServerError, feed.ErrUnavailable},
		{http.StatusBadRequest, feed.ErrProvider},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newTestProvider(t, newStubAPI(t).status("/V6/PropertyDetails", tt.status))

			prop, err := p.Find(context.Background(), "R1", models.FindParams{})
			assert.Nil(t, prop)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var fe *feed.Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.status, fe.Status)
			assert.Equal(t, "find", fe.Op)
		})
	}
}

func TestFetch_RedirectLoop(t *testing.T) {
	api := newStubAPI(t)
	api.routes["/V6/PropertyDetails"] = func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/V6/PropertyDetails?"+r.URL.RawQuery, http.StatusFound)
	}
	p := newTestProvider(t, api)

	_, err := p.Find(context.Background(), "R1", models.FindParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrTooManyRedirects)
	assert.Equal(t, 2, api.requests(), "one redirect is followed, the second fails")
}

func TestFetch_SingleRedirectFollowed(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/PropertyDetails", "details_sold.json")
	api.routes["/V5/PropertyDetails"] = func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/V6/PropertyDetails?"+r.URL.RawQuery, http.StatusMovedPermanently)
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.SalesVersion = "V5"
	p := New(cfg, &http.Client{}, logging.Discard())

	prop, err := p.Find(context.Background(), "R4123456", models.FindParams{})
	require.NoError(t, err)
	require.NotNil(t, prop)
	assert.Equal(t, "R4123456", prop.Reference)
}

func TestFetch_ContextCancelled(t *testing.T) {
	p := newTestProvider(t, newStubAPI(t).fixture("/V6/SearchProperties", "search_multiple.json"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Search(ctx, models.SearchParams{})
	assert.ErrorIs(t, err, feed.ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimilar(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "search_multiple.json")
	p := newTestProvider(t, api)

	seed := &models.Property{
		Reference:      "R4123456",
		ListingType:    models.ListingTypeSale,
		City:           "Marbella",
		ProviderTypeID: "1-6",
		Price:          50000000,
		Bedrooms:       3,
	}

	similar, err := p.Similar(context.Background(), seed, models.SimilarParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "R4999999", similar[0].Reference)

	q := api.lastQuery()
	assert.Equal(t, "Marbella", q.Get("P_Location"))
	assert.Equal(t, "1-6", q.Get("P_PropertyTypes"))
	assert.Equal(t, "350000", q.Get("P_Min"))
	assert.Equal(t, "650000", q.Get("P_Max"))
	assert.Equal(t, "3x", q.Get("P_Beds"))
	assert.Equal(t, "3", q.Get("P_SortType"))
	assert.Equal(t, "2", q.Get("P_PageSize"))
}

func TestSimilar_ExcludesSeedAndRespectsLimit(t *testing.T) {
	api := newStubAPI(t).fixture("/V6/SearchProperties", "search_multiple.json")
	p := newTestProvider(t, api)

	seed := &models.Property{Reference: "R4999999", City: "Estepona"}
	similar, err := p.Similar(context.Background(), seed, models.SimilarParams{})
	require.NoError(t, err)

	require.Len(t, similar, 1)
	for _, s := range similar {
		assert.NotEqual(t, seed.Reference, s.Reference)
	}

	q := api.lastQuery()
	assert.False(t, q.Has("P_Min"), "POA seed sends no price band")
	assert.Equal(t, "7", q.Get("P_PageSize"))
}

func TestSimilar_NilSeed(t *testing.T) {
	api := newStubAPI(t)
	p := newTestProvider(t, api)

	similar, err := p.Similar(context.Background(), nil, models.SimilarParams{})
	require.NoError(t, err)
	assert.Empty(t, similar)
	assert.Equal(t, 0, api.requests())
}

func TestAvailable(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		api := newStubAPI(t).fixture("/V6/SearchProperties", "search_single.json")
		p := newTestProvider(t, api)
		assert.True(t, p.Available(context.Background()))
		assert.Equal(t, "1", api.lastQuery().Get("P_PageSize"))
	})

	t.Run("server error", func(t *testing.T) {
		p := newTestProvider(t, newStubAPI(t).status("/V6/SearchProperties", http.StatusInternalServerError))
		assert.False(t, p.Available(context.Background()))
	})

	t.Run("failed envelope", func(t *testing.T) {
		p := newTestProvider(t, newStubAPI(t).fixture("/V6/SearchProperties", "search_error.json"))
		assert.False(t, p.Available(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		p := New(testConfig(srv.URL), nil, logging.Discard())
		assert.False(t, p.Available(context.Background()))
	})
}

func TestRegisteredFactory(t *testing.T) {
	assert.Contains(t, feed.Registered(), string(models.ProviderResalesOnline))

	prov, err := feed.New(testConfig(""), nil, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, models.ProviderResalesOnline, prov.Name())
	assert.True(t, prov.Configured())
}
