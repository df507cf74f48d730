// internal/app/store/expenses/stats.go
package expensestore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Totals summarises the matching expenses.
type Totals struct {
	Total   float64 `bson:"total" json:"total"`
	Count   int64   `bson:"count" json:"count"`
	Average float64 `bson:"average" json:"average"`
}

// CategoryTotal is the spend in one category.
type CategoryTotal struct {
	Category string  `bson:"_id" json:"category"`
	Total    float64 `bson:"total" json:"total"`
	Count    int64   `bson:"count" json:"count"`
}

// MonthTotal is the spend in one calendar month (UTC).
type MonthTotal struct {
	Year  int     `bson:"year" json:"year"`
	Month int     `bson:"month" json:"month"`
	Total float64 `bson:"total" json:"total"`
	Count int64   `bson:"count" json:"count"`
}

// Totals returns sum, count and average for f. No matches yields zeros.
func (s *Store) Totals(ctx context.Context, f Filter) (Totals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: f.query()}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"total":   bson.M{"$sum": "$amount"},
			"count":   bson.M{"$sum": 1},
			"average": bson.M{"$avg": "$amount"},
		}}},
	}
	var rows []Totals
	if err := s.aggregate(ctx, pipeline, &rows); err != nil {
		return Totals{}, err
	}
	if len(rows) == 0 {
		return Totals{}, nil
	}
	return rows[0], nil
}

// ByCategory returns per-category totals, largest first.
func (s *Store) ByCategory(ctx context.Context, f Filter) ([]CategoryTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: f.query()}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$category",
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	out := []CategoryTotal{}
	if err := s.aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Monthly returns per-month totals for expenses dated on or after since, newest month first.
func (s *Store) Monthly(ctx context.Context, f Filter, since time.Time) ([]MonthTotal, error) {
	if f.From == nil || f.From.Before(since) {
		f.From = &since
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: f.query()}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$date"},
				"month": bson.M{"$month": "$date"},
			},
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":   0,
			"year":  "$_id.year",
			"month": "$_id.month",
			"total": 1,
			"count": 1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "year", Value: -1}, {Key: "month", Value: -1}}}},
	}
	out := []MonthTotal{}
	if err := s.aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}
