package store

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tinode/anonsub/server/store/adapter"
	"github.com/tinode/anonsub/server/store/types"
)

// memAdapter is an in-memory adapter.
type memAdapter struct {
	name    string
	open    bool
	config  json.RawMessage
	topics  map[int64]*types.Topic
	replies map[int64]*types.Reply
	meta    map[string]json.RawMessage
}

func newMemAdapter(name string) *memAdapter {
	return &memAdapter{
		name:    name,
		topics:  map[int64]*types.Topic{},
		replies: map[int64]*types.Reply{},
		meta:    map[string]json.RawMessage{},
	}
}

func metaId(topic int64, key string) string {
	return strconv.FormatInt(topic, 10) + ":" + key
}

func (a *memAdapter) Open(config json.RawMessage) error {
	if a.open {
		return errors.New("already open")
	}
	a.open = true
	a.config = config
	return nil
}
func (a *memAdapter) Close() error               { a.open = false; return nil }
func (a *memAdapter) IsOpen() bool               { return a.open }
func (a *memAdapter) GetDbVersion() (int, error) { return 1, nil }
func (a *memAdapter) CheckDbVersion() error      { return nil }
func (a *memAdapter) GetName() string            { return a.name }
func (a *memAdapter) Version() int               { return 1 }
func (a *memAdapter) CreateDb(reset bool) error  { return nil }

func (a *memAdapter) TopicUpsert(topic *types.Topic) error {
	cp := *topic
	a.topics[topic.Id] = &cp
	return nil
}

func (a *memAdapter) TopicGet(id int64) (*types.Topic, error) {
	return a.topics[id], nil
}

func (a *memAdapter) ReplyUpsert(reply *types.Reply) error {
	cp := *reply
	a.replies[reply.Id] = &cp
	return nil
}

func (a *memAdapter) ReplyGet(id int64) (*types.Reply, error) {
	return a.replies[id], nil
}

func (a *memAdapter) TopicMetaGet(topic int64, key string) (json.RawMessage, error) {
	return a.meta[metaId(topic, key)], nil
}

func (a *memAdapter) TopicMetaUpsert(topic int64, key string, value json.RawMessage) error {
	a.meta[metaId(topic, key)] = value
	return nil
}

func (a *memAdapter) TopicMetaDelete(topic int64, key string) error {
	id := metaId(topic, key)
	if _, ok := a.meta[id]; !ok {
		return types.ErrNotFound
	}
	delete(a.meta, id)
	return nil
}

func withAdapter(t *testing.T, a *memAdapter) {
	t.Helper()
	prev := adp
	useAdapter(a)
	t.Cleanup(func() { useAdapter(prev) })
}

func TestSubscribers(t *testing.T) {
	mem := newMemAdapter("mem")
	withAdapter(t, mem)

	if got, err := Subscribers.Get(5); got != nil || err != nil {
		t.Fatalf("missing list: expected (nil, nil), got (%v, %v)", got, err)
	}

	if err := Subscribers.Save(5, nil); !errors.Is(err, types.ErrMalformed) {
		t.Errorf("saving empty list: expected ErrMalformed, got %v", err)
	}

	want := []string{"a@x.com", "b@x.com"}
	if err := Subscribers.Save(5, want); err != nil {
		t.Fatal(err)
	}
	if raw := string(mem.meta["5:"+SubscribersMetaKey]); raw != `["a@x.com","b@x.com"]` {
		t.Errorf("unexpected stored value %s", raw)
	}
	got, err := Subscribers.Get(5)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
	}

	if err := Subscribers.Delete(5); err != nil {
		t.Fatal(err)
	}
	if err := Subscribers.Delete(5); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("deleting missing list: expected ErrNotFound, got %v", err)
	}
}

func TestSubscribersCorrupted(t *testing.T) {
	mem := newMemAdapter("mem")
	mem.meta["5:"+SubscribersMetaKey] = json.RawMessage(`{"not":"a list"}`)
	withAdapter(t, mem)

	if _, err := Subscribers.Get(5); err == nil {
		t.Error("expected error for a corrupted list")
	}
}

func TestTopicsAndReplies(t *testing.T) {
	mem := newMemAdapter("mem")
	withAdapter(t, mem)

	if err := Topics.Upsert(&types.Topic{Title: "no id"}); !errors.Is(err, types.ErrMalformed) {
		t.Errorf("expected ErrMalformed for topic without id, got %v", err)
	}
	if err := Replies.Upsert(&types.Reply{ObjHeader: types.ObjHeader{Id: 3}}); !errors.Is(err, types.ErrMalformed) {
		t.Errorf("expected ErrMalformed for reply without topic, got %v", err)
	}

	topic := &types.Topic{ObjHeader: types.ObjHeader{Id: 1}, Title: "Hello", State: types.StatePublished}
	if err := Topics.Upsert(topic); err != nil {
		t.Fatal(err)
	}
	if topic.CreatedAt.IsZero() || topic.UpdatedAt.Before(topic.CreatedAt) {
		t.Errorf("timestamps not initialized: %v, %v", topic.CreatedAt, topic.UpdatedAt)
	}
	got, err := Topics.Get(1)
	if err != nil || got == nil || got.Title != "Hello" {
		t.Errorf("Topics.Get: %v, %v", got, err)
	}

	reply := &types.Reply{ObjHeader: types.ObjHeader{Id: 10}, Topic: 1, State: types.StatePending}
	if err := Replies.Upsert(reply); err != nil {
		t.Fatal(err)
	}
	if got, _ := Replies.Get(10); got == nil || got.Topic != 1 {
		t.Errorf("Replies.Get: %v", got)
	}
	if got, err := Replies.Get(11); got != nil || err != nil {
		t.Errorf("missing reply: expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestOpenAdapter(t *testing.T) {
	saved := availableAdapters
	prev := adp
	t.Cleanup(func() {
		availableAdapters = saved
		adp = prev
	})

	availableAdapters = map[string]adapter.Adapter{}
	RegisterAdapter(newMemAdapter("one"))
	RegisterAdapter(newMemAdapter("two"))

	adp = nil
	if err := openAdapter(json.RawMessage(`{}`)); err == nil {
		t.Error("expected error when the adapter is ambiguous")
	}

	adp = nil
	if err := openAdapter(json.RawMessage(`{"use_adapter":"three"}`)); err == nil {
		t.Error("expected error for unknown adapter")
	}

	adp = nil
	err := openAdapter(json.RawMessage(`{"use_adapter":"two","adapters":{"two":{"path":"x"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if name := Store.GetAdapterName(); name != "two" {
		t.Errorf("expected adapter 'two', got %q", name)
	}
	if conf := string(adp.(*memAdapter).config); conf != `{"path":"x"}` {
		t.Errorf("unexpected adapter config %s", conf)
	}
	if err := openAdapter(json.RawMessage(`{}`)); err == nil {
		t.Error("expected error when opening twice")
	}
}

func TestRegisterAdapterTwice(t *testing.T) {
	saved := availableAdapters
	t.Cleanup(func() { availableAdapters = saved })
	availableAdapters = map[string]adapter.Adapter{}

	RegisterAdapter(newMemAdapter("mem"))
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	RegisterAdapter(newMemAdapter("mem"))
}
