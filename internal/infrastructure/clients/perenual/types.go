package perenual

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Species is a species-list hit or a species details payload. Perenual is
// loose with types, so several fields accept more than one JSON shape.
type Species struct {
	ID                       int                `json:"id"`
	CommonName               string             `json:"common_name"`
	ScientificName           StringList         `json:"scientific_name"`
	OtherName                StringList         `json:"other_name"`
	Cycle                    string             `json:"cycle"`
	Watering                 string             `json:"watering"`
	WateringGeneralBenchmark *WateringBenchmark `json:"watering_general_benchmark"`
	Sunlight                 StringList         `json:"sunlight"`
	CareLevel                FlexString         `json:"care_level"`
	GrowthRate               FlexString         `json:"growth_rate"`
	Maintenance              FlexString         `json:"maintenance"`
	Hardiness                *Hardiness         `json:"hardiness"`
	Indoor                   *FlexBool          `json:"indoor"`
	DroughtTolerant          *FlexBool          `json:"drought_tolerant"`
	PoisonousToPets          *FlexBool          `json:"poisonous_to_pets"`
	PoisonousToHumans        *FlexBool          `json:"poisonous_to_humans"`
	Soil                     StringList         `json:"soil"`
	Origin                   StringList         `json:"origin"`
	Propagation              StringList         `json:"propagation"`
	FloweringSeason          FlexString         `json:"flowering_season"`
	Description              string             `json:"description"`
	DefaultImage             *Image             `json:"default_image"`

	// Raw is the payload the struct was decoded from
	Raw json.RawMessage `json:"-"`
}

// WateringBenchmark is the structured watering interval, e.g. {"value":"5-7","unit":"days"}
type WateringBenchmark struct {
	Value FlexString `json:"value"`
	Unit  FlexString `json:"unit"`
}

// Hardiness is the USDA hardiness zone range
type Hardiness struct {
	Min FlexString `json:"min"`
	Max FlexString `json:"max"`
}

// Image holds the image URLs Perenual returns for a species
type Image struct {
	OriginalURL  string `json:"original_url"`
	RegularURL   string `json:"regular_url"`
	MediumURL    string `json:"medium_url"`
	SmallURL     string `json:"small_url"`
	ThumbnailURL string `json:"thumbnail"`
}

type speciesListResponse struct {
	Data []json.RawMessage `json:"data"`
}

// StringList decodes either a JSON array of strings or a single string
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = StringList{s}
		return nil
	}

	var items []interface{}
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(StringList, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// FlexString decodes a JSON string or number as a string
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// FlexBool decodes a JSON bool, a 0/1 number or a "true"/"false" string
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(raw) {
	case "true", "yes":
		*b = true
		return nil
	case "false", "no", "":
		*b = false
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*b = n != 0
	return nil
}

// Ptr converts a decoded FlexBool to a plain *bool
func (b *FlexBool) Ptr() *bool {
	if b == nil {
		return nil
	}
	v := bool(*b)
	return &v
}
