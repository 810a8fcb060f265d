package queue

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestFormatLine(t *testing.T) {
	buyer := uint64(12)
	body, err := json.Marshal(Event{
		Type:           TransactionStarted,
		ListingID:      3,
		ListingName:    "Rain boots",
		OrganizationID: 7,
		ActorID:        5,
		CounterpartID:  &buyer,
		OccurredAt:     time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	line, err := FormatLine(body)
	if err != nil {
		t.Fatal(err)
	}
	want := `[2024-04-01T09:30:00Z] transaction.started | listing_id=3 | listing="Rain boots" | organization_id=7 | actor_id=5 | counterpart_id=12` + "\n"
	if line != want {
		t.Fatalf("line =\n%s\nwant\n%s", line, want)
	}
}

func TestFormatLineWithoutCounterpart(t *testing.T) {
	line, err := FormatLine([]byte(`{"type":"listing.created","listing_id":"9","listing_name":"Cap","organization_id":1,"actor_id":2,"occurred_at":"2024-04-02T00:00:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	want := `[2024-04-02T00:00:00Z] listing.created | listing_id=9 | listing="Cap" | organization_id=1 | actor_id=2` + "\n"
	if line != want {
		t.Fatalf("line = %q", line)
	}
}

func TestFormatLineRejects(t *testing.T) {
	for _, body := range []string{`not json`, `{"listing_id":1}`} {
		if _, err := FormatLine([]byte(body)); err == nil {
			t.Errorf("FormatLine(%s) succeeded", body)
		}
	}
}

func TestHandleAppends(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsumer("", &buf, zap.NewNop())
	for i := 0; i < 2; i++ {
		if err := c.handle([]byte(`{"type":"comment.posted","listing_id":1}`)); err != nil {
			t.Fatal(err)
		}
	}
	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 2 {
		t.Fatalf("wrote %d lines", n)
	}
}
