package storeerr_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/depensify/internal/app/store/storeerr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestTranslate_Nil(t *testing.T) {
	if storeerr.Translate(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestTranslate_PassesThroughOtherErrors(t *testing.T) {
	cause := errors.New("network down")
	if got := storeerr.Translate(cause); got != cause {
		t.Errorf("expected original error, got %v", got)
	}
}

func TestTranslate_SchemaViolation(t *testing.T) {
	details, err := bson.Marshal(bson.M{
		"operatorName": "$jsonSchema",
		"schemaRulesNotSatisfied": bson.A{
			bson.M{
				"operatorName": "properties",
				"propertiesNotSatisfied": bson.A{
					bson.M{
						"propertyName": "category",
						"details":      bson.A{bson.M{"operatorName": "enum", "reason": "value was not found in enum"}},
					},
				},
			},
			bson.M{"operatorName": "required", "missingProperties": bson.A{"date"}},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	werr := mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    121,
		Message: "Document failed validation",
		Details: details,
	}}}

	var ve *storeerr.ValidationError
	if !errors.As(storeerr.Translate(werr), &ve) {
		t.Fatalf("expected ValidationError")
	}
	if len(ve.Fields) != 2 {
		t.Fatalf("expected 2 field messages, got %v", ve.Fields)
	}
	if ve.Fields[0] != "category: enum value was not found in enum" || ve.Fields[1] != "date is required" {
		t.Errorf("unexpected fields %v", ve.Fields)
	}
}

func TestTranslate_SchemaViolationWithoutDetails(t *testing.T) {
	werr := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 121, Message: "Document failed validation"}}}

	var ve *storeerr.ValidationError
	if !errors.As(storeerr.Translate(werr), &ve) {
		t.Fatalf("expected ValidationError")
	}
	if len(ve.Fields) != 1 || ve.Fields[0] != "Document failed validation" {
		t.Errorf("unexpected fields %v", ve.Fields)
	}
}
