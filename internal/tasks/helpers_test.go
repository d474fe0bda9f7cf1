package tasks

import (
	"context"
	"sync"

	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/services"
	"github.com/desertthunder/pricepal/internal/shared"
	tu "github.com/desertthunder/pricepal/internal/testing"
)

// fakeSession is a [session.Reader] with a fixed session.
type fakeSession struct {
	mu       sync.Mutex
	session  *models.Session
	tokenErr error
	tokens   int
}

func loggedIn() *fakeSession {
	return &fakeSession{session: &models.Session{
		User:  &models.User{UID: "uid-1", Name: "Asha", Email: "asha@example.com"},
		Token: "tok-1",
	}}
}

func loggedOut() *fakeSession { return &fakeSession{} }

func (f *fakeSession) Current() *models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.Clone()
}

func (f *fakeSession) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens++
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	if !f.session.IsAuthenticated() {
		return "", shared.ErrNotAuthenticated
	}
	return f.session.Token, nil
}

func newTracker(fb *tu.FakeBackend) *services.Tracker {
	return services.NewTracker(services.NewAPIService(fb.URL, services.APIOpts{}))
}

func kettle() *models.ProductSnapshot {
	return &models.ProductSnapshot{
		AmazonURL:    "https://amzn.in/d/kettle",
		ASIN:         "B0KETTLE01",
		ProductName:  "Electric Kettle",
		ImageURL:     "https://m.media-amazon.com/k.jpg",
		CurrentPrice: 2000,
		Availability: "In stock",
	}
}

func cartPayload(total, active int, ids ...string) map[string]any {
	products := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		products = append(products, map[string]any{"id": id, "product_name": "Item " + id, "current_price": 100, "target_price": 90})
	}
	return map[string]any{"total_products": total, "active_products": active, "products": products}
}

// collect drains updates until a terminal phase or the channel is empty.
func collect(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
			if u.Phase.Terminal() {
				return out
			}
		default:
			return out
		}
	}
}

func phases(updates []ProgressUpdate) []Phase {
	ps := make([]Phase, len(updates))
	for i, u := range updates {
		ps[i] = u.Phase
	}
	return ps
}
