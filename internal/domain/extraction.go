package domain

// ExtractedFields is the result of C6's field extraction. Every field is a
// pointer: nil means "the extractor did not find this field", which is a
// distinct signal from a present-but-empty string. Lines the parser does
// not recognize are ignored without logging, never folded into this struct
// as a generic map.
type ExtractedFields struct {
	Brand             *string  `json:"brand,omitempty"`
	ClassType         *string  `json:"class_type,omitempty"`
	ABV               *float64 `json:"abv,omitempty"`
	NetContents       *string  `json:"net_contents,omitempty"`
	ProducerName      *string  `json:"producer_name,omitempty"`
	ProducerAddress   *string  `json:"producer_address,omitempty"`
	CountryOfOrigin   *string  `json:"country_of_origin,omitempty"`
	GovernmentWarning *string  `json:"government_warning,omitempty"`
	Vintage           *string  `json:"vintage,omitempty"`
	RawText           *string  `json:"raw_text,omitempty"`
}

// Empty reports whether no field carries any usable value, the condition
// the Executor treats as an extraction failure.
func (f ExtractedFields) Empty() bool {
	return f.Brand == nil && f.ClassType == nil && f.ABV == nil &&
		f.NetContents == nil && f.ProducerName == nil && f.ProducerAddress == nil &&
		f.CountryOfOrigin == nil && f.GovernmentWarning == nil && f.Vintage == nil
}
