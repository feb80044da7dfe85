package resales

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// searchResponse is the vendor envelope shared by SearchProperties and PropertyDetails
type searchResponse struct {
	Transaction struct {
		Status           flexString      `json:"status"`
		ErrorDescription json.RawMessage `json:"errordescription"`
	} `json:"transaction"`
	QueryInfo struct {
		PropertyCount     flexString `json:"PropertyCount"`
		CurrentPage       flexString `json:"CurrentPage"`
		PropertiesPerPage flexString `json:"PropertiesPerPage"`
	} `json:"QueryInfo"`
	Property oneOrMany[rawProperty] `json:"Property"`
}

func (r *searchResponse) succeeded() bool {
	return strings.EqualFold(string(r.Transaction.Status), "success")
}

// errorText flattens errordescription, which arrives as a string or an object of strings
func (r *searchResponse) errorText() string {
	raw := bytes.TrimSpace(r.Transaction.ErrorDescription)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var m map[string]flexString
	if err := json.Unmarshal(raw, &m); err == nil {
		parts := make([]string, 0, len(m))
		for _, v := range m {
			if v != "" {
				parts = append(parts, string(v))
			}
		}
		return strings.Join(parts, "; ")
	}
	return string(raw)
}

type rawProperty struct {
	Reference     flexString `json:"Reference"`
	AgencyRef     flexString `json:"AgencyRef"`
	Title         flexString `json:"Title"`
	Country       flexString `json:"Country"`
	Province      flexString `json:"Province"`
	Area          flexString `json:"Area"`
	Location      flexString `json:"Location"`
	SubLocation   flexString `json:"SubLocation"`
	PropertyType  rawType    `json:"PropertyType"`
	Status        rawStatus  `json:"Status"`
	Bedrooms      flexString `json:"Bedrooms"`
	Bathrooms     flexString `json:"Bathrooms"`
	Currency      flexString `json:"Currency"`
	Price         flexString `json:"Price"`
	OriginalPrice flexString `json:"OriginalPrice"`
	RentalPrice1  flexString `json:"RentalPrice1"`
	Built         flexString `json:"Built"`
	Terrace       flexString `json:"Terrace"`
	GardenPlot    flexString `json:"GardenPlot"`
	Description   flexString `json:"Description"`
	GpsX          flexString `json:"GpsX"`
	GpsY          flexString `json:"GpsY"`
	VirtualTour   flexString `json:"VirtualTour"`
	CommunityFees flexString `json:"Community_Fees_Year"`
	IBIFees       flexString `json:"IBI_Fees_Year"`

	EnergyRating struct {
		EnergyRated flexString `json:"EnergyRated"`
		CO2Rated    flexString `json:"CO2Rated"`
		EnergyValue flexString `json:"EnergyValue"`
	} `json:"EnergyRating"`

	PropertyFeatures struct {
		Category oneOrMany[rawFeatureCategory] `json:"Category"`
	} `json:"PropertyFeatures"`

	Pictures struct {
		Count   flexString            `json:"Count"`
		Picture oneOrMany[rawPicture] `json:"Picture"`
	} `json:"Pictures"`
}

type rawType struct {
	NameType   flexString `json:"NameType"`
	Type       flexString `json:"Type"`
	TypeID     flexString `json:"TypeId"`
	Subtype1   flexString `json:"Subtype1"`
	SubtypeID1 flexString `json:"SubtypeId1"`
}

// rawStatus arrives either as {"system": "Sold", "en": "Sold"} or a bare string
type rawStatus struct {
	System flexString `json:"system"`
}

func (s *rawStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type plain rawStatus
		return json.Unmarshal(data, (*plain)(s))
	}
	return json.Unmarshal(data, &s.System)
}

type rawFeatureCategory struct {
	Type  flexString            `json:"Type"`
	Value oneOrMany[flexString] `json:"Value"`
}

type rawPicture struct {
	ID         flexString `json:"Id"`
	PictureURL flexString `json:"PictureURL"`
	Caption    flexString `json:"PictureCaption"`
}

// oneOrMany decodes a value the vendor sends as an object for one item and an
// array for several. null, "" and absent decode to no items.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*o = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*o = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*o = []T{item}
	return nil
}

// flexString accepts strings, numbers and booleans. Objects and arrays, which
// the vendor uses for "empty", decode to "".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case data[0] == '{' || data[0] == '[':
		*f = ""
	default:
		*f = flexString(data)
	}
	return nil
}

func (f flexString) String() string { return string(f) }

func (f flexString) Int() int {
	v, ok := f.Float()
	if !ok {
		return 0
	}
	return int(v)
}

func (f flexString) Float() (float64, bool) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
