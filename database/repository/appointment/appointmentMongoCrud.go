package appointmentRepo

import (
	"fmt"
	"time"

	"salonflow/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Create inserts a new appointment document.
func (r *MongoAppointmentRepo) Create(appt *models.Appointment) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now()
	}

	if _, err := r.coll.InsertOne(ctx, appt); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// GetByID retrieves an appointment document by its ID.
func (r *MongoAppointmentRepo) GetByID(id string) (*models.Appointment, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var appt models.Appointment
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&appt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment %s: %w", id, err)
	}
	return &appt, nil
}

// GetByDraftID retrieves the appointment promoted from the given draft.
func (r *MongoAppointmentRepo) GetByDraftID(draftID string) (*models.Appointment, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var appt models.Appointment
	err := r.coll.FindOne(ctx, bson.M{"draftId": draftID}).Decode(&appt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch appointment for draft %s: %w", draftID, err)
	}
	return &appt, nil
}

// HasOverlap reports whether the master already has an appointment
// intersecting the [start, end) range.
func (r *MongoAppointmentRepo) HasOverlap(masterID string, start, end time.Time) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"masterId": masterID,
		"start":    bson.M{"$lt": end},
		"end":      bson.M{"$gt": start},
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check slot overlap for master %s: %w", masterID, err)
	}
	return count > 0, nil
}

// UpdatePayment records the payment method and status on an appointment.
func (r *MongoAppointmentRepo) UpdatePayment(id, method, status string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"paymentMethod": method, "paymentStatus": status}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update payment for appointment %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
