// Package models defines the application state, the actions that drive it and the
// persisted snapshot shape for the FieldOps driver app.
package models

import "time"

// PublishableKey identifies the account a driver signs in to.
type PublishableKey string

// DriverID identifies a driver inside an account.
type DriverID string

// Email is a sign-in or sign-up email address.
type Email string

// Password is a sign-in or sign-up password.
type Password string

// Token is the bearer token used by remote data operations.
type Token string

// VerificationCode is the code mailed during sign-up.
type VerificationCode string

// Tab is a screen inside the main flow.
type Tab string

// Main flow tabs.
const (
	TabVisits  Tab = "visits"
	TabPlaces  Tab = "places"
	TabHistory Tab = "history"
	TabProfile Tab = "profile"
)

// Valid reports whether t is one of the known tabs.
func (t Tab) Valid() bool {
	switch t {
	case TabVisits, TabPlaces, TabHistory, TabProfile:
		return true
	}
	return false
}

// OrderStatus tracks an order through completion or cancellation.
type OrderStatus string

// Order statuses.
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusCompleting OrderStatus = "completing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelling OrderStatus = "cancelling"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is a unit of work at a visit.
type Order struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Status OrderStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
}

// Visit is a stop on the driver's route.
type Visit struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Orders      []Order   `json:"orders,omitempty"`
}

// Place is a saved location.
type Place struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// History summarises the driver's tracked day.
type History struct {
	Date            time.Time `json:"date"`
	DistanceMeters  int       `json:"distance_meters"`
	DurationSeconds int       `json:"duration_seconds"`
	VisitCount      int       `json:"visit_count"`
}

// Profile is the driver's account profile.
type Profile struct {
	Name     string            `json:"name"`
	Email    Email             `json:"email"`
	Phone    string            `json:"phone,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GeotagKind names the event a geotag records.
type GeotagKind string

// Geotag kinds.
const (
	GeotagOrderCompleted GeotagKind = "order_completed"
	GeotagOrderCancelled GeotagKind = "order_cancelled"
)

// Geotag is a tracked event attached to the driver's location trail.
type Geotag struct {
	Kind    GeotagKind `json:"kind"`
	VisitID string     `json:"visit_id"`
	OrderID string     `json:"order_id"`
}

// SignUpOutcome is returned by a successful sign-up request.
type SignUpOutcome struct {
	NeedsVerification bool
	Key               PublishableKey // set when the account was verified immediately
}

// Alert is a user-visible error message.
type Alert struct {
	Title   string
	Message string
}

// AlertFor builds an alert describing err.
func AlertFor(title string, err APIError) Alert {
	return Alert{Title: title, Message: err.Error()}
}
