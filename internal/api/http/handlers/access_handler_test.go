package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tableflow/order-service/internal/auth"
)

func TestDecisionFeedKeepsNewest(t *testing.T) {
	feed := newDecisionFeed()
	feed.push(auth.Decision{Kind: auth.DecisionAllow})
	feed.push(auth.Decision{Kind: auth.DecisionDeny, RedirectTo: "/"})

	got := <-feed.ch
	assert.Equal(t, auth.DecisionDeny, got.Kind)
	select {
	case extra := <-feed.ch:
		t.Fatalf("unexpected decision %v", extra)
	default:
	}
}
