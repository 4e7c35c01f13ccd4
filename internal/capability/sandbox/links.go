package sandbox

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/BTreeMap/FieldOps/internal/models"
)

// DeepLinks parses fieldops:// links and publishes them to subscribers.
type DeepLinks struct {
	mu        sync.Mutex
	continued []string
	links     hub[models.DeepLink]
}

// NewDeepLinks returns a link source with no subscribers.
func NewDeepLinks() *DeepLinks {
	return &DeepLinks{}
}

// ParseDeepLink extracts the key and driver id from a sign-in link such as
// fieldops://signin?publishable_key=pk&driver_id=d.
func ParseDeepLink(raw string) (models.DeepLink, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return models.DeepLink{}, false
	}
	q := u.Query()
	key := q.Get("publishable_key")
	if key == "" {
		return models.DeepLink{}, false
	}
	return models.DeepLink{Key: models.PublishableKey(key), DriverID: models.DriverID(q.Get("driver_id"))}, true
}

// Publish delivers a parsed link to every subscriber.
func (d *DeepLinks) Publish(link models.DeepLink) {
	d.links.publish(link)
}

// Continued lists the raw URLs passed to ContinueUserActivity.
func (d *DeepLinks) Continued() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.continued...)
}

// Subscribers reports how many streams are attached.
func (d *DeepLinks) Subscribers() int {
	return d.links.count()
}

func (d *DeepLinks) Subscribe(ctx context.Context, send func(models.DeepLink)) {
	d.links.subscribe(ctx, send)
}

// ContinueUserActivity resolves raw and publishes it. Unparseable links are
// dropped, which lets the race time out.
func (d *DeepLinks) ContinueUserActivity(ctx context.Context, raw string) {
	d.mu.Lock()
	d.continued = append(d.continued, raw)
	d.mu.Unlock()

	link, ok := ParseDeepLink(raw)
	if !ok {
		slog.Debug("DeepLinks.ContinueUserActivity: link not recognised", "url", raw)
		return
	}
	d.Publish(link)
}

// Network lets tests and the control API flip reachability.
type Network struct {
	updates hub[models.Reachability]
}

// NewNetwork returns a network source.
func NewNetwork() *Network {
	return &Network{}
}

// Set publishes a reachability change.
func (n *Network) Set(r models.Reachability) {
	n.updates.publish(r)
}

// Subscribers reports how many streams are attached.
func (n *Network) Subscribers() int {
	return n.updates.count()
}

func (n *Network) Subscribe(ctx context.Context, send func(models.Reachability)) {
	n.updates.mu.Lock()
	last := n.updates.last
	n.updates.mu.Unlock()
	if last != nil {
		send(*last)
	}
	n.updates.subscribe(ctx, send)
}
