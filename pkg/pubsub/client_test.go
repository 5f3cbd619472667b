package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/soundmarket-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "sm-prod"}

	cases := map[string]string{
		"orders":                       "projects/sm-prod/topics/orders",
		"  payouts ":                   "projects/sm-prod/topics/payouts",
		"projects/other/topics/orders": "projects/other/topics/orders",
		"":                             "",
	}
	for in, want := range cases {
		if got := c.topicResourceName(in); got != want {
			t.Fatalf("topicResourceName(%q) = %q, want %q", in, got, want)
		}
	}

	if got := (&Client{}).topicResourceName("orders"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{OrdersTopic: "orders", PayoutsTopic: " "})
	if len(names) != 1 || names[0] != "orders" {
		t.Fatalf("unexpected topics %v", names)
	}
}

func TestNilClientGuards(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error on nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil)
	if err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
}
