package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tinode/anonsub/server/mailer"
	"github.com/tinode/anonsub/server/store"
	"github.com/tinode/anonsub/server/store/types"
	"github.com/tinode/anonsub/server/subscr"
)

type memTopics struct {
	topics map[int64]*types.Topic
}

func (m *memTopics) Get(id int64) (*types.Topic, error) {
	return m.topics[id], nil
}

func (m *memTopics) Upsert(topic *types.Topic) error {
	if topic.Id <= 0 {
		return types.ErrMalformed
	}
	cp := *topic
	m.topics[topic.Id] = &cp
	return nil
}

type memReplies struct {
	replies map[int64]*types.Reply
}

func (m *memReplies) Get(id int64) (*types.Reply, error) {
	return m.replies[id], nil
}

func (m *memReplies) Upsert(reply *types.Reply) error {
	if reply.Id <= 0 || reply.Topic <= 0 {
		return types.ErrMalformed
	}
	cp := *reply
	m.replies[reply.Id] = &cp
	return nil
}

type memSubscribers struct {
	lists map[int64][]string
	err   error
}

func (m *memSubscribers) Get(topic int64) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]string(nil), m.lists[topic]...), nil
}

func (m *memSubscribers) Save(topic int64, emails []string) error {
	if m.err != nil {
		return m.err
	}
	m.lists[topic] = append([]string(nil), emails...)
	return nil
}

func (m *memSubscribers) Delete(topic int64) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.lists[topic]; !ok {
		return types.ErrNotFound
	}
	delete(m.lists, topic)
	return nil
}

// outbox collects sent messages.
type outbox struct {
	mu   sync.Mutex
	msgs []*mailer.Message
}

func (o *outbox) Send(msg *mailer.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
}

type testServer struct {
	mux     *http.ServeMux
	subs    *memSubscribers
	topics  *memTopics
	replies *memReplies
	out     *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		mux:     http.NewServeMux(),
		subs:    &memSubscribers{lists: map[int64][]string{}},
		topics:  &memTopics{topics: map[int64]*types.Topic{}},
		replies: &memReplies{replies: map[int64]*types.Reply{}},
		out:     &outbox{},
	}

	prevTopics, prevReplies := store.Topics, store.Replies
	store.Topics, store.Replies = ts.topics, ts.replies
	t.Cleanup(func() {
		store.Topics, store.Replies = prevTopics, prevReplies
	})

	reg, err := subscr.New(subscr.Config{
		Enabled:  true,
		SiteName: "Forum",
		NoReply:  "noreply@example.com",
	}, ts.subs, subscr.StoreForum{}, ts.out)
	if err != nil {
		t.Fatal(err)
	}
	registerHandlers(ts.mux, defaultApiPath, reg)
	return ts
}

func (ts *testServer) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

const topicJSON = `{"id":7,"title":"Hello <b>world</b>","permalink":"https://forum.example.com/t/7","state":"publish"}`

func TestReplyEventNew(t *testing.T) {
	ts := newTestServer(t)
	ts.subs.lists[7] = []string{"reader@example.com"}

	rec := ts.do(http.MethodPost, "/v0/events/reply", `{
		"event": "new",
		"topic": `+topicJSON+`,
		"reply": {"id": 70, "state": "publish", "authorName": "Anon", "authorEmail": " anon@example.com ",
			"content": "<p>First!</p>", "url": "https://forum.example.com/t/7#r70"},
		"subscribe": true
	}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"notified":true`) {
		t.Errorf("expected notification, got %s", rec.Body)
	}

	if got := ts.replies.replies[70]; got == nil || got.Topic != 7 {
		t.Errorf("reply not mirrored with topic 7: %+v", got)
	}
	if diff := cmp.Diff([]string{"reader@example.com", "anon@example.com"}, ts.subs.lists[7]); diff != "" {
		t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
	}

	if len(ts.out.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ts.out.msgs))
	}
	msg := ts.out.msgs[0]
	if msg.Subject != "[Forum] Hello world" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if diff := cmp.Diff([]string{"reader@example.com"}, msg.Header[mailer.HeaderBcc]); diff != "" {
		t.Errorf("bcc mismatch (-want +got):\n%s", diff)
	}
}

func TestReplyEventRejectedEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.subs.lists[7] = []string{"reader@example.com"}

	rec := ts.do(http.MethodPost, "/v0/events/reply", `{
		"event": "new",
		"topic": `+topicJSON+`,
		"reply": {"id": 72, "state": "publish", "authorName": "Anon", "authorEmail": "anon at example",
			"content": "hi", "url": "https://forum.example.com/t/7#r72"},
		"subscribe": true
	}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"subscribed":false`) || !strings.Contains(body, `"notified":true`) {
		t.Errorf("expected notification without subscription, got %s", body)
	}
	if diff := cmp.Diff([]string{"reader@example.com"}, ts.subs.lists[7]); diff != "" {
		t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
	}
	if len(ts.out.msgs) != 1 {
		t.Errorf("expected 1 message, got %d", len(ts.out.msgs))
	}
}

func TestReplyEventPending(t *testing.T) {
	ts := newTestServer(t)
	ts.subs.lists[7] = []string{"reader@example.com"}

	body := `{"event": "%s", "topic": ` + topicJSON + `,
		"reply": {"id": 71, "state": "%s", "authorEmail": "anon@example.com", "content": "hi"}}`

	rec := ts.do(http.MethodPost, "/v0/events/reply", fmt.Sprintf(body, "new", "pending"), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"notified":false`) {
		t.Fatalf("pending reply: unexpected response %d: %s", rec.Code, rec.Body)
	}
	if len(ts.out.msgs) != 0 {
		t.Fatalf("pending reply must not be announced")
	}

	rec = ts.do(http.MethodPost, "/v0/events/reply", fmt.Sprintf(body, "publish", "publish"), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"notified":true`) {
		t.Fatalf("published reply: unexpected response %d: %s", rec.Code, rec.Body)
	}
	if len(ts.out.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ts.out.msgs))
	}
	// The author did not ask to subscribe.
	if diff := cmp.Diff([]string{"reader@example.com"}, ts.subs.lists[7]); diff != "" {
		t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
	}
}

func TestReplyEventEditDoesNotNotify(t *testing.T) {
	ts := newTestServer(t)
	ts.subs.lists[7] = []string{"reader@example.com"}

	rec := ts.do(http.MethodPost, "/v0/events/reply", `{"event": "edit", "topic": `+topicJSON+`,
		"reply": {"id": 72, "state": "publish", "authorEmail": "anon@example.com"}, "subscribe": true}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if len(ts.out.msgs) != 0 {
		t.Error("edit must not notify subscribers")
	}
	if diff := cmp.Diff([]string{"reader@example.com", "anon@example.com"}, ts.subs.lists[7]); diff != "" {
		t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
	}
}

func TestReplyEventErrors(t *testing.T) {
	cases := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"not json", http.MethodPost, "hello", http.StatusBadRequest},
		{"no reply", http.MethodPost, `{"event":"new","topic":` + topicJSON + `}`, http.StatusBadRequest},
		{"unknown event", http.MethodPost, `{"event":"delete","reply":{"id":1,"topic":7}}`, http.StatusBadRequest},
		{"reply without topic", http.MethodPost, `{"event":"new","reply":{"id":1}}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(tc.method, "/v0/events/reply", tc.body, nil)
			if rec.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body)
			}
		})
	}
}

func TestUnsubscribeHandler(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		lang   string
		status int
		body   string
		remain []string
	}{
		{
			name:   "unsubscribed",
			query:  "?bbp_anonymous_unsubscribe=a@x.com&topic_id=7",
			status: http.StatusOK,
			body:   "Successfully unsubscribed!",
			remain: []string{"b@x.com"},
		},
		{
			name:   "explicit email",
			query:  "?bbp_anonymous_unsubscribe=1&user_email=b@x.com&topic_id=7",
			status: http.StatusOK,
			body:   "Successfully unsubscribed!",
			remain: []string{"a@x.com"},
		},
		{
			name:   "not subscribed",
			query:  "?bbp_anonymous_unsubscribe=c@x.com&topic_id=7",
			status: http.StatusOK,
			body:   "You do not seem subscribed to this topic, not with this email at least!",
			remain: []string{"a@x.com", "b@x.com"},
		},
		{
			name:   "localized",
			query:  "?bbp_anonymous_unsubscribe=a@x.com&topic_id=7",
			lang:   "de-CH, en;q=0.5",
			status: http.StatusOK,
			body:   "Erfolgreich abgemeldet!",
			remain: []string{"b@x.com"},
		},
		{
			name:   "no topic",
			query:  "?bbp_anonymous_unsubscribe=a@x.com",
			status: http.StatusNotFound,
			remain: []string{"a@x.com", "b@x.com"},
		},
		{
			name:   "invalid email",
			query:  "?bbp_anonymous_unsubscribe=nobody&topic_id=7",
			status: http.StatusNotFound,
			remain: []string{"a@x.com", "b@x.com"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.subs.lists[7] = []string{"a@x.com", "b@x.com"}

			var header map[string]string
			if tc.lang != "" {
				header = map[string]string{"Accept-Language": tc.lang}
			}
			rec := ts.do(http.MethodGet, "/v0/unsubscribe"+tc.query, "", header)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Errorf("unexpected body %q", rec.Body)
			}
			if diff := cmp.Diff(tc.remain, ts.subs.lists[7]); diff != "" {
				t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnsubscribeHandlerMethods(t *testing.T) {
	ts := newTestServer(t)
	ts.subs.lists[7] = []string{"a@x.com"}

	for _, method := range []string{http.MethodHead, http.MethodPost} {
		rec := ts.do(method, "/v0/unsubscribe?bbp_anonymous_unsubscribe=a@x.com&topic_id=7", "", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", method, rec.Code)
		}
		if rec.Header().Get("Allow") != http.MethodGet {
			t.Errorf("%s: unexpected Allow header %q", method, rec.Header().Get("Allow"))
		}
	}
	if diff := cmp.Diff([]string{"a@x.com"}, ts.subs.lists[7]); diff != "" {
		t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribeHandlerStorageFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.subs.err = types.ErrInternal

	rec := ts.do(http.MethodGet, "/v0/unsubscribe?bbp_anonymous_unsubscribe=a@x.com&topic_id=7", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Body.String() != "There was an error while unsubscribing!" {
		t.Errorf("unexpected body %q", rec.Body)
	}
}

func TestCheckboxHandler(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/v0/form/checkbox?authenticated=1", "", nil)
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("authenticated visitor: expected empty 200, got %d %q", rec.Code, rec.Body)
	}

	rec = ts.do(http.MethodGet, "/v0/form/checkbox?tabindex=5", "", map[string]string{"Accept-Language": "fr"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `name="bbp_anonymous_subscribe"`) || !strings.Contains(body, `tabindex="5"`) {
		t.Errorf("unexpected checkbox %q", body)
	}
	if !strings.Contains(body, "M&#39;avertir") {
		t.Errorf("expected French label in %q", body)
	}
	if cl := rec.Header().Get("Content-Language"); cl != "fr" {
		t.Errorf("unexpected Content-Language %q", cl)
	}
}

func TestUnknownPath(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/v0/nothing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
