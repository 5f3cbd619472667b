// Package stripetest provides an in-memory checkout session gateway for tests.
package stripetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/soundmarket-backend/pkg/stripe"
)

// Gateway records every session request and returns sequential session ids. Destinations
// listed in FailFor get an error instead.
type Gateway struct {
	mu       sync.Mutex
	Requests []stripe.SessionRequest
	FailFor  map[string]error
	next     int
}

func (g *Gateway) CreateSession(_ context.Context, req stripe.SessionRequest) (*stripe.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if err, ok := g.FailFor[req.DestinationAccount]; ok {
		return nil, err
	}
	g.next++
	id := fmt.Sprintf("cs_test_%d", g.next)
	return &stripe.Session{ID: id, URL: "https://checkout.stripe.test/pay/" + id}, nil
}
