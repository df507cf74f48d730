// internal/app/store/storeerr/storeerr.go
package storeerr

import (
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// codeDocumentValidation is returned when a write violates a collection's $jsonSchema.
const codeDocumentValidation = 121

// ValidationError lists the field messages extracted from a schema violation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document failed validation: %v", e.Fields)
}

type schemaDetails struct {
	Rules []struct {
		Operator string   `bson:"operatorName"`
		Missing  []string `bson:"missingProperties"`
		Props    []struct {
			Name    string `bson:"propertyName"`
			Details []struct {
				Operator string `bson:"operatorName"`
				Reason   string `bson:"reason"`
			} `bson:"details"`
		} `bson:"propertiesNotSatisfied"`
	} `bson:"schemaRulesNotSatisfied"`
}

// Translate converts a document-validation failure into *ValidationError.
// Any other error is returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == codeDocumentValidation {
				return &ValidationError{Fields: fieldsFrom(e.Details, e.Message)}
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == codeDocumentValidation {
		return &ValidationError{Fields: []string{ce.Message}}
	}
	return err
}

func fieldsFrom(raw bson.Raw, fallback string) []string {
	var fields []string
	if len(raw) > 0 {
		var d schemaDetails
		if err := bson.Unmarshal(raw, &d); err == nil {
			for _, rule := range d.Rules {
				for _, m := range rule.Missing {
					fields = append(fields, m+" is required")
				}
				for _, p := range rule.Props {
					if len(p.Details) == 0 {
						fields = append(fields, p.Name+" is invalid")
						continue
					}
					for _, det := range p.Details {
						fields = append(fields, fmt.Sprintf("%s: %s %s", p.Name, det.Operator, det.Reason))
					}
				}
			}
		}
	}
	if len(fields) == 0 {
		return []string{fallback}
	}
	sort.Strings(fields)
	return fields
}
