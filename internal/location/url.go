package location

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// URL is the address of the donation page as seen by one client. The
// payment id it carries is replaced in place, never navigated to.
type URL struct {
	mu    sync.RWMutex
	u     *url.URL
	param string
}

func Parse(raw, param string) (*URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	return &URL{u: u, param: param}, nil
}

func (l *URL) PaymentID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.u.Query().Get(l.param)
}

// ReplacePaymentID sets the payment id, or removes it when id is empty.
func (l *URL) ReplacePaymentID(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q := l.u.Query()
	if id != "" {
		q.Set(l.param, id)
	} else {
		q.Del(l.param)
	}
	l.u.RawQuery = q.Encode()
}

func (l *URL) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.u.String()
}

// PaymentIDFrom accepts either a bare payment id or a page URL carrying
// one in its query.
func PaymentIDFrom(arg, param string) string {
	arg = strings.TrimSpace(arg)
	if !strings.Contains(arg, "://") {
		return arg
	}
	u, err := url.Parse(arg)
	if err != nil {
		return ""
	}
	return u.Query().Get(param)
}
