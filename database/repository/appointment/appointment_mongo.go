package appointmentRepo

import (
	"context"
	"errors"
	"time"

	"salonflow/config"
	"salonflow/database"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no appointment matches the query.
var ErrNotFound = errors.New("appointment not found")

// MongoAppointmentRepo is the MongoDB-backed implementation.
type MongoAppointmentRepo struct {
	coll *mongo.Collection
}

// NewMongoAppointmentRepo returns a repository bound to the "appointments" collection.
func NewMongoAppointmentRepo() *MongoAppointmentRepo {
	coll := database.MongoClient.Database(config.AppConfig.DatabaseName).Collection("appointments")
	return &MongoAppointmentRepo{coll: coll}
}

func newContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
