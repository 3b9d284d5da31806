package pubsub

import (
	"testing"

	"github.com/nhannt26/e-commerce-website-v3/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"shop", "notifications", "projects/shop/topics/notifications"},
		{"shop", " projects/other/topics/n ", "projects/other/topics/n"},
		{"", "notifications", ""},
		{"shop", "  ", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestClientOptionsPrefersJSON(t *testing.T) {
	opts := clientOptions(config.GCPConfig{CredentialsJSON: `{"k":"v"}`, ApplicationCredentials: "/tmp/creds"})
	if len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
	if len(clientOptions(config.GCPConfig{})) != 0 {
		t.Fatalf("expected no options without credentials")
	}
}

func TestNilClientPublishFails(t *testing.T) {
	var c *Client
	if _, err := c.publisher("notifications"); err == nil {
		t.Fatalf("expected error from nil client")
	}
}
