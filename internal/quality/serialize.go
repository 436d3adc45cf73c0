package quality

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/matchday/matchday/internal/domain"
)

// specEnvelope is the on-disk tagged-union shape for a single
// Specification, persisted as part of CustomFormat.Specifications
// (custom_formats.specifications JSON column). Grounded on the teacher's
// quality/attributes.go json.Marshal/Unmarshal-of-settings idiom.
type specEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalSpecifications serializes a catalogue entry's Specifications for
// storage in the custom_formats table.
func MarshalSpecifications(specs []domain.Specification) ([]byte, error) {
	envelopes := make([]specEnvelope, 0, len(specs))
	for _, spec := range specs {
		data, err := encodeSpecData(spec)
		if err != nil {
			return nil, fmt.Errorf("marshal %s specification: %w", spec.Name(), err)
		}
		envelopes = append(envelopes, specEnvelope{Type: spec.Name(), Data: data})
	}
	return json.Marshal(envelopes)
}

// encodeSpecData marshals a single specification's fields. ReleaseTitleRegexSpec
// carries a compiled *regexp.Regexp, which encoding/json cannot reflect over
// (its fields are unexported), so it is special-cased to its source pattern.
func encodeSpecData(spec domain.Specification) ([]byte, error) {
	if s, ok := spec.(ReleaseTitleRegexSpec); ok {
		pattern := ""
		if s.Pattern != nil {
			pattern = s.Pattern.String()
		}
		return json.Marshal(struct {
			Pattern string `json:"Pattern"`
			Negate  bool   `json:"Negate"`
		}{Pattern: pattern, Negate: s.Negate})
	}
	return json.Marshal(spec)
}

// UnmarshalSpecifications parses the JSON produced by MarshalSpecifications
// back into concrete Specification values.
func UnmarshalSpecifications(raw []byte) ([]domain.Specification, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var envelopes []specEnvelope
	if err := json.Unmarshal(raw, &envelopes); err != nil {
		return nil, fmt.Errorf("unmarshal specifications: %w", err)
	}

	specs := make([]domain.Specification, 0, len(envelopes))
	for _, env := range envelopes {
		spec, err := decodeSpec(env)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func decodeSpec(env specEnvelope) (domain.Specification, error) {
	switch env.Type {
	case "ReleaseTitleRegex":
		var raw struct {
			Pattern string `json:"Pattern"`
			Negate  bool   `json:"Negate"`
		}
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, err
		}
		pattern, err := regexp.Compile(raw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile ReleaseTitleRegex pattern: %w", err)
		}
		return ReleaseTitleRegexSpec{Pattern: pattern, Negate: raw.Negate}, nil

	case "Source":
		var s SourceSpec
		return s, json.Unmarshal(env.Data, &s)

	case "Resolution":
		var s ResolutionSpec
		return s, json.Unmarshal(env.Data, &s)

	case "Codec":
		var s CodecSpec
		return s, json.Unmarshal(env.Data, &s)

	case "Language":
		var s LanguageSpec
		return s, json.Unmarshal(env.Data, &s)

	case "ReleaseGroup":
		var s ReleaseGroupSpec
		return s, json.Unmarshal(env.Data, &s)

	case "SizeRange":
		var s SizeRangeSpec
		return s, json.Unmarshal(env.Data, &s)

	case "IndexerFlag":
		var s IndexerFlagSpec
		return s, json.Unmarshal(env.Data, &s)

	case "SportPrefix":
		var s SportPrefixSpec
		return s, json.Unmarshal(env.Data, &s)

	case "Part":
		var s PartSpec
		return s, json.Unmarshal(env.Data, &s)

	default:
		return nil, fmt.Errorf("unknown specification type %q", env.Type)
	}
}
