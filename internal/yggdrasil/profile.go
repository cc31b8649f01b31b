package yggdrasil

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

type Profile struct {
	Id         uuid.UUID
	Name       string
	Properties *Properties
}

type PropertyValue struct {
	Value string
	// Signature is nil when the provider didn't supply one
	Signature *string
}

// Properties is a property bag with unique names, which keeps the insertion order
// so the profile can be serialized back deterministically
type Properties struct {
	names  []string
	values map[string]*PropertyValue
}

func NewProperties() *Properties {
	return &Properties{values: map[string]*PropertyValue{}}
}

// Set replaces the value of an already known name in place, keeping its position
func (p *Properties) Set(name string, value *PropertyValue) {
	if p.values == nil {
		p.values = map[string]*PropertyValue{}
	}

	if _, exists := p.values[name]; !exists {
		p.names = append(p.names, name)
	}

	p.values[name] = value
}

func (p *Properties) Get(name string) (*PropertyValue, bool) {
	value, ok := p.values[name]
	return value, ok
}

func (p *Properties) Names() []string {
	return append([]string(nil), p.names...)
}

func (p *Properties) Len() int {
	return len(p.names)
}

// Raw messages keep the difference between an absent field and an explicit null
type profileJson struct {
	Id         *string         `json:"id"`
	Name       *string         `json:"name"`
	Properties json.RawMessage `json:"properties"`
}

type propertyJson struct {
	Name      *string         `json:"name"`
	Value     *string         `json:"value"`
	Signature json.RawMessage `json:"signature"`
}

type profileInfoJson struct {
	Id   *string `json:"id"`
	Name *string `json:"name"`
}

// ParseProfile builds a Profile from the body of a profile or hasJoined response.
// Any missing or mistyped required field fails the whole profile.
func ParseProfile(body []byte) (*Profile, error) {
	var raw *profileJson
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformedResponseFromJsonError(err)
	}

	if raw == nil {
		return nil, &MalformedResponseError{Reason: "expected an object, got null"}
	}

	id, name, err := parseIdentity(raw.Id, raw.Name)
	if err != nil {
		return nil, err
	}

	if isNullOrAbsent(raw.Properties) {
		return nil, &MalformedResponseError{Field: "properties", Reason: "field is required"}
	}

	var rawProperties []*propertyJson
	if err := json.Unmarshal(raw.Properties, &rawProperties); err != nil {
		return nil, malformedResponseFromJsonError(err)
	}

	properties := NewProperties()
	for _, rawProperty := range rawProperties {
		if rawProperty == nil {
			return nil, &MalformedResponseError{Field: "properties", Reason: "property must be an object"}
		}

		if rawProperty.Name == nil {
			return nil, &MalformedResponseError{Field: "properties.name", Reason: "field is required"}
		}

		if rawProperty.Value == nil {
			return nil, &MalformedResponseError{Field: "properties.value", Reason: "field is required"}
		}

		signature, err := parseSignature(rawProperty.Signature)
		if err != nil {
			return nil, err
		}

		properties.Set(*rawProperty.Name, &PropertyValue{
			Value:     *rawProperty.Value,
			Signature: signature,
		})
	}

	return &Profile{
		Id:         id,
		Name:       name,
		Properties: properties,
	}, nil
}

// The signature may be absent, but when the key is present it must hold a string
func parseSignature(rawSignature json.RawMessage) (*string, error) {
	if len(rawSignature) == 0 {
		return nil, nil
	}

	if isNullOrAbsent(rawSignature) {
		return nil, &MalformedResponseError{Field: "properties.signature", Reason: "must be a string, got null"}
	}

	var signature string
	if err := json.Unmarshal(rawSignature, &signature); err != nil {
		return nil, malformedResponseFromJsonError(err)
	}

	return &signature, nil
}

func isNullOrAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

type profileInfo struct {
	Id   uuid.UUID
	Name string
}

// parseBulkResponse returns the records, which were parsed successfully,
// and the errors for the ones that weren't. The error is returned only
// when the body isn't an array at all.
func parseBulkResponse(body []byte) ([]*profileInfo, []error, error) {
	var rawRecords []json.RawMessage
	if err := json.Unmarshal(body, &rawRecords); err != nil {
		return nil, nil, malformedResponseFromJsonError(err)
	}

	result := make([]*profileInfo, 0, len(rawRecords))
	var recordErrors []error
	for _, rawRecord := range rawRecords {
		var record *profileInfoJson
		if err := json.Unmarshal(rawRecord, &record); err != nil {
			recordErrors = append(recordErrors, malformedResponseFromJsonError(err))
			continue
		}

		if record == nil {
			recordErrors = append(recordErrors, &MalformedResponseError{Reason: "record must be an object"})
			continue
		}

		id, name, err := parseIdentity(record.Id, record.Name)
		if err != nil {
			recordErrors = append(recordErrors, err)
			continue
		}

		result = append(result, &profileInfo{Id: id, Name: name})
	}

	return result, recordErrors, nil
}

func parseIdentity(rawId *string, rawName *string) (uuid.UUID, string, error) {
	if rawId == nil {
		return uuid.Nil, "", &MalformedResponseError{Field: "id", Reason: "field is required"}
	}

	if rawName == nil || *rawName == "" {
		return uuid.Nil, "", &MalformedResponseError{Field: "name", Reason: "field is required"}
	}

	id, err := FromUnsigned(*rawId)
	if err != nil {
		return uuid.Nil, "", err
	}

	return id, *rawName, nil
}

func malformedResponseFromJsonError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &MalformedResponseError{
			Field:  typeErr.Field,
			Reason: "unexpected " + typeErr.Value + " value",
		}
	}

	return &MalformedResponseError{Reason: err.Error()}
}

type serializedProfile struct {
	Id         string                `json:"id"`
	Name       string                `json:"name"`
	Properties []*serializedProperty `json:"properties"`
}

type serializedProperty struct {
	Name      string  `json:"name"`
	Value     string  `json:"value"`
	Signature *string `json:"signature,omitempty"`
}

// SerializeProfile renders the profile in the format of the session server.
// Signatures are included only when withSignature is set.
func SerializeProfile(profile *Profile, withSignature bool) ([]byte, error) {
	result := &serializedProfile{
		Id:         ToUnsigned(profile.Id),
		Name:       profile.Name,
		Properties: []*serializedProperty{},
	}

	if profile.Properties != nil {
		for _, name := range profile.Properties.names {
			value := profile.Properties.values[name]
			property := &serializedProperty{
				Name:  name,
				Value: value.Value,
			}

			if withSignature {
				property.Signature = value.Signature
			}

			result.Properties = append(result.Properties, property)
		}
	}

	return json.Marshal(result)
}
