package subscr

import (
	"errors"
	"net/url"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"

	"github.com/tinode/anonsub/server/mailer/mock_mailer"
	"github.com/tinode/anonsub/server/store/mock_store"
	"github.com/tinode/anonsub/server/store/types"
)

func TestUnsubscribeLink(t *testing.T) {
	cases := []struct {
		topicURL, email, want string
	}{
		{"https://f/t/1", "a@x.com", "https://f/t/1?bbp_anonymous_unsubscribe=a@x.com"},
		{"https://f/t/1?ref=x", "a@x.com", "https://f/t/1?ref=x&bbp_anonymous_unsubscribe=a@x.com"},
		{"https://f/t/1/", "a+b@x.com", "https://f/t/1/?bbp_anonymous_unsubscribe=a+b@x.com"},
	}
	for _, tc := range cases {
		if got := UnsubscribeLink(tc.topicURL, tc.email); got != tc.want {
			t.Errorf("UnsubscribeLink(%q, %q): want %q, got %q", tc.topicURL, tc.email, tc.want, got)
		}
	}
}

func TestResolveUnsubscribe(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		outcome Outcome
		want    map[int64][]string
	}{
		{
			name:    "unsubscribed",
			query:   "bbp_anonymous_unsubscribe=1&user_email=a@x.com&topic_id=1",
			outcome: Unsubscribed,
			want:    map[int64][]string{1: {"b@x.com"}, 2: {"a@x.com"}},
		},
		{
			name:    "email trimmed",
			query:   "bbp_anonymous_unsubscribe=1&user_email=%20a@x.com%20&topic_id=1",
			outcome: Unsubscribed,
			want:    map[int64][]string{1: {"b@x.com"}, 2: {"a@x.com"}},
		},
		{
			name:    "email from the flag",
			query:   "bbp_anonymous_unsubscribe=b@x.com&topic_id=1",
			outcome: Unsubscribed,
			want:    map[int64][]string{1: {"a@x.com"}, 2: {"a@x.com"}},
		},
		{
			name:    "last subscriber",
			query:   "bbp_anonymous_unsubscribe=1&user_email=a@x.com&topic_id=2",
			outcome: Unsubscribed,
			want:    map[int64][]string{1: {"a@x.com", "b@x.com"}},
		},
		{
			name:    "not subscribed",
			query:   "bbp_anonymous_unsubscribe=1&user_email=c@x.com&topic_id=1",
			outcome: NotSubscribed,
		},
		{
			name:    "missing topic id",
			query:   "bbp_anonymous_unsubscribe=1&user_email=a@x.com",
			outcome: NotHandled,
		},
		{
			name:    "missing flag",
			query:   "user_email=a@x.com&topic_id=1",
			outcome: NotHandled,
		},
		{
			name:    "invalid email",
			query:   "bbp_anonymous_unsubscribe=1&user_email=not-an-email&topic_id=1",
			outcome: NotHandled,
		},
		{
			name:    "flag is not an email",
			query:   "bbp_anonymous_unsubscribe=1&topic_id=1",
			outcome: NotHandled,
		},
		{
			name:    "topic without subscribers",
			query:   "bbp_anonymous_unsubscribe=1&user_email=a@x.com&topic_id=3",
			outcome: NotHandled,
		},
		{
			name:    "topic id with trailing garbage",
			query:   "bbp_anonymous_unsubscribe=1&user_email=a@x.com&topic_id=2abc",
			outcome: Unsubscribed,
			want:    map[int64][]string{1: {"a@x.com", "b@x.com"}},
		},
		{
			name:    "unparseable topic id",
			query:   "bbp_anonymous_unsubscribe=1&user_email=a@x.com&topic_id=abc",
			outcome: NotHandled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subs := newMemSubs()
			subs.lists[1] = []string{"a@x.com", "b@x.com"}
			subs.lists[2] = []string{"a@x.com"}
			r := newTestRegistry(t, subs)

			params, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatal(err)
			}
			outcome, err := r.ResolveUnsubscribe(params)
			if err != nil {
				t.Fatal(err)
			}
			if outcome != tc.outcome {
				t.Errorf("outcome: want %v, got %v", tc.outcome, outcome)
			}

			want := tc.want
			if want == nil {
				want = map[int64][]string{1: {"a@x.com", "b@x.com"}, 2: {"a@x.com"}}
			}
			if diff := cmp.Diff(want, subs.lists); diff != "" {
				t.Errorf("subscribers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveUnsubscribeStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	subs := mock_store.NewMockSubscribersObjMapperInterface(ctrl)
	r, _ := New(Config{}, subs, &memForum{}, mock_mailer.NewMockSender(ctrl))

	subs.EXPECT().Get(int64(1)).Return(nil, errors.New("timeout"))

	params := url.Values{
		ParamUnsubscribe: {"1"},
		ParamEmail:       {"a@x.com"},
		ParamTopic:       {"1"},
	}
	outcome, err := r.ResolveUnsubscribe(params)
	if outcome != Failed || !errors.Is(err, types.ErrInternal) {
		t.Errorf("expected Failed with ErrInternal, got %v, %v", outcome, err)
	}
}

type rejectAll struct{}

func (rejectAll) Init(string) error   { return nil }
func (rejectAll) IsInitialized() bool { return true }
func (rejectAll) PreCheck(string) (string, error) {
	return "", types.ErrPolicy
}

func TestResolveUnsubscribeValidator(t *testing.T) {
	subs := newMemSubs()
	subs.lists[1] = []string{"a@x.com"}
	r := newTestRegistry(t, subs, WithValidator(rejectAll{}))

	outcome, err := r.ResolveUnsubscribe(url.Values{
		ParamUnsubscribe: {"1"},
		ParamEmail:       {"a@x.com"},
		ParamTopic:       {"1"},
	})
	if outcome != NotHandled || err != nil {
		t.Errorf("expected the request to be rejected, got %v, %v", outcome, err)
	}
}

func TestParseTopicId(t *testing.T) {
	cases := map[string]int64{
		"12":     12,
		" 12 ":   12,
		"12abc":  12,
		"+7":     7,
		"-3":     -3,
		"abc":    0,
		"":       0,
		"-":      0,
		"1.5":    1,
		"0x1A":   0,
		"007bar": 7,
	}
	for in, want := range cases {
		if got := parseTopicId(in); got != want {
			t.Errorf("parseTopicId(%q): want %d, got %d", in, want, got)
		}
	}
}
