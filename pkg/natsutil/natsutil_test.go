package natsutil

import (
	"sort"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{Subject: "kb.reindex"}
	c := (*natsHeaderCarrier)(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Errorf("Get on empty headers = %q", got)
	}
	if keys := c.Keys(); len(keys) != 0 {
		t.Errorf("Keys on empty headers = %v", keys)
	}

	c.Set("traceparent", "00-abc-def-01")
	c.Set("tracestate", "vendor=1")

	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get = %q", got)
	}

	keys := c.Keys()
	sort.Strings(keys)
	if len(keys) != 2 {
		t.Errorf("Keys = %v, want 2 entries", keys)
	}

	// the underlying message must carry the injected headers
	if msg.Header.Get("traceparent") != "00-abc-def-01" {
		t.Error("headers not written through to the message")
	}
}
