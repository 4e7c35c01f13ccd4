package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/util"
)

// Operation names used for call counting and failure injection.
const (
	OpVisits        = "visits"
	OpHistory       = "history"
	OpPlaces        = "places"
	OpProfile       = "profile"
	OpCompleteOrder = "complete_order"
	OpCancelOrder   = "cancel_order"
	OpCreatePlace   = "create_place"
)

// Remote is an in-memory backend. Calls require a token issued by the
// paired Auth.
type Remote struct {
	auth *Auth

	mu       sync.Mutex
	visits   []models.Visit
	places   []models.Place
	history  models.History
	profiles map[models.DriverID]models.Profile
	failures map[string][]models.APIError
	calls    map[string]int
	gate     chan struct{}
}

// NewRemote returns an empty backend validating tokens against auth.
func NewRemote(auth *Auth) *Remote {
	return &Remote{
		auth:     auth,
		profiles: make(map[models.DriverID]models.Profile),
		failures: make(map[string][]models.APIError),
		calls:    make(map[string]int),
	}
}

// SetVisits replaces the visit list.
func (r *Remote) SetVisits(v []models.Visit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits = v
}

// SetPlaces replaces the place list.
func (r *Remote) SetPlaces(p []models.Place) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.places = p
}

// SetHistory replaces the history summary.
func (r *Remote) SetHistory(h models.History) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = h
}

// SetProfile sets the profile returned for a driver.
func (r *Remote) SetProfile(driverID models.DriverID, p models.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[driverID] = p
}

// FailNext makes the next call of op fail with err.
func (r *Remote) FailNext(op string, err models.APIError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = append(r.failures[op], err)
}

// Calls returns how many times op was called.
func (r *Remote) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Hold blocks every subsequent call until the returned release is called.
func (r *Remote) Hold() (release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gate := make(chan struct{})
	r.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if r.gate == gate {
				r.gate = nil
			}
			r.mu.Unlock()
			close(gate)
		})
	}
}

func (r *Remote) enter(ctx context.Context, op string, c capability.Credentials) error {
	r.mu.Lock()
	r.calls[op]++
	gate := r.gate
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if queued := r.failures[op]; len(queued) > 0 {
		r.failures[op] = queued[1:]
		return queued[0]
	}
	if r.auth != nil && !r.auth.ValidToken(c.Key, c.DriverID, c.Token) {
		return models.DomainFailure(models.CodeTokenExpired, "Token expired")
	}
	return nil
}

func (r *Remote) Visits(ctx context.Context, c capability.Credentials) ([]models.Visit, error) {
	if err := r.enter(ctx, OpVisits, c); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneVisits(r.visits), nil
}

func (r *Remote) History(ctx context.Context, c capability.Credentials) (models.History, error) {
	if err := r.enter(ctx, OpHistory, c); err != nil {
		return models.History{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history, nil
}

func (r *Remote) Places(ctx context.Context, c capability.Credentials) ([]models.Place, error) {
	if err := r.enter(ctx, OpPlaces, c); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Place(nil), r.places...), nil
}

func (r *Remote) Profile(ctx context.Context, c capability.Credentials) (models.Profile, error) {
	if err := r.enter(ctx, OpProfile, c); err != nil {
		return models.Profile{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[c.DriverID], nil
}

func (r *Remote) CompleteOrder(ctx context.Context, c capability.Credentials, visitID, orderID string) error {
	if err := r.enter(ctx, OpCompleteOrder, c); err != nil {
		return err
	}
	return r.setOrderStatus(visitID, orderID, models.OrderStatusCompleted)
}

func (r *Remote) CancelOrder(ctx context.Context, c capability.Credentials, visitID, orderID string) error {
	if err := r.enter(ctx, OpCancelOrder, c); err != nil {
		return err
	}
	return r.setOrderStatus(visitID, orderID, models.OrderStatusCancelled)
}

func (r *Remote) CreatePlace(ctx context.Context, c capability.Credentials, p models.Place) (models.Place, error) {
	if err := r.enter(ctx, OpCreatePlace, c); err != nil {
		return models.Place{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = util.GenerateRandomID("place_", 16)
	}
	r.places = append(r.places, p)
	return p, nil
}

func (r *Remote) setOrderStatus(visitID, orderID string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.visits {
		if r.visits[i].ID != visitID {
			continue
		}
		for j := range r.visits[i].Orders {
			if r.visits[i].Orders[j].ID == orderID {
				r.visits[i].Orders[j].Status = status
				return nil
			}
		}
	}
	return models.DomainFailure(models.CodeOrderNotFound, "Order not found")
}

func cloneVisits(in []models.Visit) []models.Visit {
	out := make([]models.Visit, len(in))
	for i, v := range in {
		v.Orders = append([]models.Order(nil), v.Orders...)
		out[i] = v
	}
	return out
}

// SampleRoute seeds the backend with a small day of work, used by the headless binary.
func (r *Remote) SampleRoute(now time.Time) {
	r.SetVisits([]models.Visit{
		{ID: "v_1", Address: "1 Harbour St", ScheduledAt: now.Add(time.Hour), Orders: []models.Order{
			{ID: "o_1", Title: "Deliver parcel", Status: models.OrderStatusPending},
		}},
		{ID: "v_2", Address: "22 Market Rd", ScheduledAt: now.Add(2 * time.Hour), Orders: []models.Order{
			{ID: "o_2", Title: "Collect return", Status: models.OrderStatusPending},
			{ID: "o_3", Title: "Install meter", Status: models.OrderStatusPending},
		}},
	})
	r.SetPlaces([]models.Place{{ID: "place_depot", Name: "Depot", Address: "5 Dock Ln"}})
	r.SetHistory(models.History{Date: now, DistanceMeters: 0, VisitCount: 0})
}
