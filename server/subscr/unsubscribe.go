package subscr

import (
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/tinode/anonsub/server/store/types"
)

// Query parameters of unsubscribe requests.
const (
	ParamUnsubscribe = "bbp_anonymous_unsubscribe"
	ParamEmail       = "user_email"
	ParamTopic       = "topic_id"
)

// UnsubscribeLink appends the unsubscribe parameter to the topic URL. The email is not escaped.
func UnsubscribeLink(topicURL, email string) string {
	sep := "?"
	if strings.Contains(topicURL, "?") {
		sep = "&"
	}
	return topicURL + sep + ParamUnsubscribe + "=" + email
}

// ResolveUnsubscribe handles the unsubscribe request. The request must carry the unsubscribe flag,
// the email and the topic ID. If the email is missing, the value of the flag is used as the email.
// Requests with missing parameters, invalid emails or topics without subscribers are not handled.
func (r *Registry) ResolveUnsubscribe(params url.Values) (Outcome, error) {
	if !params.Has(ParamUnsubscribe) || !params.Has(ParamTopic) {
		return NotHandled, nil
	}

	email := params.Get(ParamUnsubscribe)
	if params.Has(ParamEmail) {
		email = params.Get(ParamEmail)
	}
	email, err := r.checkEmail(email)
	if err != nil {
		return NotHandled, nil
	}

	topicId := parseTopicId(params.Get(ParamTopic))

	emails, err := r.subs.Get(topicId)
	if err != nil {
		return Failed, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}
	if len(emails) == 0 {
		return NotHandled, nil
	}

	return r.Remove(topicId, email)
}

// checkEmail trims the email and checks it with the configured validator, or just its syntax.
func (r *Registry) checkEmail(email string) (string, error) {
	if r.validator != nil {
		return r.validator.PreCheck(email)
	}

	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", types.ErrMalformed
	}
	return email, nil
}

// parseTopicId parses the leading decimal digits of the value, i.e. "12abc" is 12.
// Values without leading digits are 0.
func parseTopicId(val string) int64 {
	val = strings.TrimSpace(val)
	end := 0
	if end < len(val) && (val[end] == '-' || val[end] == '+') {
		end++
	}
	for end < len(val) && val[end] >= '0' && val[end] <= '9' {
		end++
	}
	id, _ := strconv.ParseInt(val[:end], 10, 64)
	return id
}
