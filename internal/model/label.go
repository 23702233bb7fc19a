package model

import "strings"

// BeverageType is the product category variant on a label application.
// It determines which optional fields apply during verification.
type BeverageType string

const (
	BeverageSpirits BeverageType = "spirits"
	BeverageWine    BeverageType = "wine"
	BeverageBeer    BeverageType = "beer"
)

// FieldKey identifies a comparable label field. The set is closed: every
// comparator operates on a key from this list, resolved at compile time
// through the accessors below rather than reflective map lookups.
type FieldKey string

const (
	FieldBrandName       FieldKey = "brandName"
	FieldClassType       FieldKey = "classTypeDesignation"
	FieldAlcoholContent  FieldKey = "alcoholContent"
	FieldNetContents     FieldKey = "netContents"
	FieldProducerName    FieldKey = "producerName"
	FieldProducerAddress FieldKey = "producerAddress"
	FieldCountryOfOrigin FieldKey = "countryOfOrigin"
	FieldAppellation     FieldKey = "appellation"
	FieldVintageYear     FieldKey = "vintageYear"
)

// Application holds the applicant-submitted expected values for a label.
// Optional fields may be blank; blank means "not claimed on the application".
type Application struct {
	BeverageType    BeverageType `json:"beverageType"`
	BrandName       string       `json:"brandName"`
	ClassType       string       `json:"classTypeDesignation"`
	AlcoholContent  string       `json:"alcoholContent"`
	NetContents     string       `json:"netContents"`
	ProducerName    string       `json:"producerName"`
	ProducerAddress string       `json:"producerAddress"`
	CountryOfOrigin string       `json:"countryOfOrigin,omitempty"`
	Appellation     string       `json:"appellation,omitempty"`
	VintageYear     string       `json:"vintageYear,omitempty"`
}

// Field returns the expected value for the given key, trimmed.
// An unknown key returns the empty string.
func (a Application) Field(key FieldKey) string {
	var v string
	switch key {
	case FieldBrandName:
		v = a.BrandName
	case FieldClassType:
		v = a.ClassType
	case FieldAlcoholContent:
		v = a.AlcoholContent
	case FieldNetContents:
		v = a.NetContents
	case FieldProducerName:
		v = a.ProducerName
	case FieldProducerAddress:
		v = a.ProducerAddress
	case FieldCountryOfOrigin:
		v = a.CountryOfOrigin
	case FieldAppellation:
		v = a.Appellation
	case FieldVintageYear:
		v = a.VintageYear
	}
	return strings.TrimSpace(v)
}

// WarningExtraction is the extractor's reading of the mandatory health
// warning statement, including the four formatting signals the validator
// checks.
type WarningExtraction struct {
	Present           bool   `json:"present"`
	FullText          string `json:"fullText"`
	HeaderInCaps      bool   `json:"governmentWarningInCaps"`
	HeaderAppearsBold bool   `json:"governmentWarningAppearsBold"`
	BodyAppearsBold   bool   `json:"bodyTextAppearsBold"`
	SeparateFromOther bool   `json:"separateFromOtherText"`
}

// Confidence is the extractor's self-reported confidence level.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// LabelExtraction is the structured record produced by the extraction
// collaborator for one label image. Field values are empty when the text is
// not visible on the label.
type LabelExtraction struct {
	BrandName       string            `json:"brandName"`
	ClassType       string            `json:"classTypeDesignation"`
	AlcoholContent  string            `json:"alcoholContent"`
	NetContents     string            `json:"netContents"`
	ProducerName    string            `json:"producerName"`
	ProducerAddress string            `json:"producerAddress"`
	CountryOfOrigin string            `json:"countryOfOrigin"`
	Appellation     string            `json:"appellation"`
	VintageYear     string            `json:"vintageYear"`
	Warning         WarningExtraction `json:"governmentWarning"`
	Sulfites        string            `json:"sulfitesDeclaration"`
	AdditionalText  []string          `json:"additionalText"`
	Confidence      Confidence        `json:"confidence"`
	RawNotes        string            `json:"rawNotes"`
}

// Field returns the extracted value for the given key, trimmed.
// An unknown key returns the empty string.
func (e LabelExtraction) Field(key FieldKey) string {
	var v string
	switch key {
	case FieldBrandName:
		v = e.BrandName
	case FieldClassType:
		v = e.ClassType
	case FieldAlcoholContent:
		v = e.AlcoholContent
	case FieldNetContents:
		v = e.NetContents
	case FieldProducerName:
		v = e.ProducerName
	case FieldProducerAddress:
		v = e.ProducerAddress
	case FieldCountryOfOrigin:
		v = e.CountryOfOrigin
	case FieldAppellation:
		v = e.Appellation
	case FieldVintageYear:
		v = e.VintageYear
	}
	return strings.TrimSpace(v)
}
