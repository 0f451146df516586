// Package testsuite is a set of checks shared by tests of all database adapters.
package testsuite

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tinode/anonsub/server/store/adapter"
	"github.com/tinode/anonsub/server/store/types"
)

const metaKey = "_bbp_anonymous_subscribed_emails"

func testTime(offset time.Duration) time.Time {
	return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC).Add(offset)
}

// Run initializes the database and exercises every method of the open adapter.
func Run(t *testing.T, adp adapter.Adapter) {
	t.Run("CreateDb", func(t *testing.T) {
		if err := adp.CreateDb(true); err != nil {
			t.Fatal(err)
		}
		if err := adp.CheckDbVersion(); err != nil {
			t.Fatal(err)
		}
		if vers, err := adp.GetDbVersion(); err != nil || vers != adp.Version() {
			t.Errorf("GetDbVersion: %d, %v; expected %d", vers, err, adp.Version())
		}
	})

	t.Run("Topics", func(t *testing.T) { testTopics(t, adp) })
	t.Run("Replies", func(t *testing.T) { testReplies(t, adp) })
	t.Run("TopicMeta", func(t *testing.T) { testTopicMeta(t, adp) })
}

func testTopics(t *testing.T, adp adapter.Adapter) {
	if got, err := adp.TopicGet(1); got != nil || err != nil {
		t.Fatalf("missing topic: expected (nil, nil), got (%v, %v)", got, err)
	}

	topic := &types.Topic{
		ObjHeader: types.ObjHeader{Id: 1, CreatedAt: testTime(0), UpdatedAt: testTime(0)},
		Title:     "Welcome",
		Permalink: "https://forum.example.com/topic/welcome/",
		State:     types.StatePublished,
	}
	if err := adp.TopicUpsert(topic); err != nil {
		t.Fatal(err)
	}
	got, err := adp.TopicGet(1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(topic, got); diff != "" {
		t.Errorf("topic mismatch (-want +got):\n%s", diff)
	}

	topic.Title = "Welcome, everyone"
	topic.State = types.StateClosed
	topic.UpdatedAt = testTime(time.Hour)
	if err := adp.TopicUpsert(topic); err != nil {
		t.Fatal(err)
	}
	got, err = adp.TopicGet(1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(topic, got); diff != "" {
		t.Errorf("updated topic mismatch (-want +got):\n%s", diff)
	}
}

func testReplies(t *testing.T, adp adapter.Adapter) {
	if got, err := adp.ReplyGet(10); got != nil || err != nil {
		t.Fatalf("missing reply: expected (nil, nil), got (%v, %v)", got, err)
	}

	reply := &types.Reply{
		ObjHeader:   types.ObjHeader{Id: 10, CreatedAt: testTime(0), UpdatedAt: testTime(0)},
		Topic:       1,
		State:       types.StatePending,
		AuthorName:  "Guest",
		AuthorEmail: "guest@example.com",
		Content:     "<p>Hi there</p>",
		Url:         "https://forum.example.com/topic/welcome/#post-10",
	}
	if err := adp.ReplyUpsert(reply); err != nil {
		t.Fatal(err)
	}

	reply.State = types.StatePublished
	reply.UpdatedAt = testTime(time.Minute)
	if err := adp.ReplyUpsert(reply); err != nil {
		t.Fatal(err)
	}

	got, err := adp.ReplyGet(10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(reply, got); diff != "" {
		t.Errorf("reply mismatch (-want +got):\n%s", diff)
	}
}

func testTopicMeta(t *testing.T, adp adapter.Adapter) {
	if got, err := adp.TopicMetaGet(1, metaKey); got != nil || err != nil {
		t.Fatalf("missing meta: expected (nil, nil), got (%s, %v)", got, err)
	}

	for _, emails := range [][]string{
		{"a@example.com"},
		{"a@example.com", "b@example.com"},
	} {
		raw, _ := json.Marshal(emails)
		if err := adp.TopicMetaUpsert(1, metaKey, raw); err != nil {
			t.Fatal(err)
		}

		got, err := adp.TopicMetaGet(1, metaKey)
		if err != nil {
			t.Fatal(err)
		}
		// Some databases normalize JSON, compare decoded values.
		var decoded []string
		if err := json.Unmarshal(got, &decoded); err != nil {
			t.Fatalf("invalid stored value %q: %v", got, err)
		}
		if diff := cmp.Diff(emails, decoded); diff != "" {
			t.Errorf("meta mismatch (-want +got):\n%s", diff)
		}
	}

	// Metadata of other topics is not affected.
	if got, err := adp.TopicMetaGet(2, metaKey); got != nil || err != nil {
		t.Errorf("meta of another topic: expected (nil, nil), got (%s, %v)", got, err)
	}

	if err := adp.TopicMetaDelete(1, metaKey); err != nil {
		t.Fatal(err)
	}
	if got, err := adp.TopicMetaGet(1, metaKey); got != nil || err != nil {
		t.Errorf("deleted meta: expected (nil, nil), got (%s, %v)", got, err)
	}
	if err := adp.TopicMetaDelete(1, metaKey); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("deleting missing meta: expected ErrNotFound, got %v", err)
	}
}
