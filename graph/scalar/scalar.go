// Package scalar holds the GraphQL marshalers for the custom scalars of the linkgraph schema.
package scalar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/99designs/gqlgen/graphql"
	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/model"
)

// ErrInvalidValue is wrapped by every error for an input value that does not fit its scalar
var ErrInvalidValue = errors.New("invalid value")

// MarshalUUID writes an ID as its canonical string form
func MarshalUUID(id uuid.UUID) graphql.Marshaler {
	return graphql.MarshalString(id.String())
}

// UnmarshalUUID parses an ID given as a string
func UnmarshalUUID(v interface{}) (uuid.UUID, error) {
	s, ok := v.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: expected an ID string, got %T", ErrInvalidValue, v)
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q is not a UUID: %v", ErrInvalidValue, s, err)
	}
	return id, nil
}

// MarshalJSONObject writes properties as a JSON object, nil as {}
func MarshalJSONObject(properties model.Properties) graphql.Marshaler {
	return graphql.WriterFunc(func(w io.Writer) {
		if properties == nil {
			io.WriteString(w, "{}")
			return
		}

		b, err := json.Marshal(properties)
		if err != nil {
			// Properties always come from decoded JSON
			panic(err)
		}
		w.Write(b)
	})
}

// UnmarshalJSONObject accepts an object literal, an object variable or a JSON encoded object string
func UnmarshalJSONObject(v interface{}) (model.Properties, error) {
	switch value := v.(type) {
	case map[string]interface{}:
		return model.Properties(value), nil
	case string:
		properties := model.Properties{}
		err := json.Unmarshal([]byte(value), &properties)
		if err != nil {
			return nil, fmt.Errorf("%w: expected a JSON object: %v", ErrInvalidValue, err)
		}
		return properties, nil
	}
	return nil, fmt.Errorf("%w: expected a JSON object, got %T", ErrInvalidValue, v)
}
