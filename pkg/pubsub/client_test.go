package pubsub

import "testing"

func TestTopicName(t *testing.T) {
	c := &Client{projectID: "shop-prod"}
	cases := []struct {
		in   string
		want string
	}{
		{in: "domain-events", want: "projects/shop-prod/topics/domain-events"},
		{in: "  domain-events ", want: "projects/shop-prod/topics/domain-events"},
		{in: "projects/other/topics/domain-events", want: "projects/other/topics/domain-events"},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := c.TopicName(tc.in); got != tc.want {
			t.Fatalf("TopicName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	var nilClient *Client
	if nilClient.TopicName("x") != "" {
		t.Fatal("nil client should not build names")
	}
	if nilClient.Publisher("x") != nil {
		t.Fatal("nil client should not build publishers")
	}
}

func TestSubscriptionName(t *testing.T) {
	c := &Client{projectID: "shop-prod"}
	if got := c.SubscriptionName("analytics"); got != "projects/shop-prod/subscriptions/analytics" {
		t.Fatalf("unexpected name %q", got)
	}
	full := "projects/other/subscriptions/analytics"
	if got := c.SubscriptionName(full); got != full {
		t.Fatalf("full names pass through, got %q", got)
	}
	if c.Subscriber(" ", 0) != nil {
		t.Fatal("blank subscription should yield no subscriber")
	}
}
