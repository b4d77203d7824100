package channels

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
)

var (
	// ErrMissingSigningSecret is returned before any request leaves when a signing partner has no secret.
	ErrMissingSigningSecret = errors.New("signing secret is not configured")
	// ErrMissingCredentials is returned when an authenticator has nothing to send.
	ErrMissingCredentials = errors.New("channel credentials are not configured")
	// ErrNoChanges is returned by ModifyBooking when the request would change nothing.
	ErrNoChanges = errors.New("booking changes are empty")
)

// TransportError is a failed partner call: network error, timeout, open circuit, non-2xx status, or a 2xx
// response whose body reports failure.
type TransportError struct {
	Channel string
	Op      string
	Status  int
	Body    string
	Err     error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Channel)
	if e.Op != "" {
		b.WriteString(" " + e.Op)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	if e.Body != "" {
		b.WriteString(": " + e.Body)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Rejected builds the error for a 2xx response that carries partner error messages.
func Rejected(channel, op string, messages ...string) error {
	msg := strings.Join(messages, "; ")
	if msg == "" {
		msg = "partner reported failure"
	}
	return &TransportError{Channel: channel, Op: op, Status: http.StatusOK, Err: errors.New(msg)}
}

// IsRetryable reports whether err is a transport failure worth another attempt: a network error, a timeout,
// 429 or a 5xx. Open circuits and partner rejections are final.
func IsRetryable(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if errors.Is(te.Err, gobreaker.ErrOpenState) || errors.Is(te.Err, gobreaker.ErrTooManyRequests) {
		return false
	}
	switch {
	case te.Status == 0:
		return true
	case te.Status == http.StatusTooManyRequests, te.Status >= 500:
		return true
	}
	return false
}

// TransformError means one partner record could not be mapped onto the canonical booking.
type TransformError struct {
	Channel    string
	ExternalID string
	Field      string
	Reason     string
}

func (e *TransformError) Error() string {
	id := e.ExternalID
	if id == "" {
		id = "<unknown>"
	}
	if e.Field != "" {
		return fmt.Sprintf("%s booking %s: %s: %s", e.Channel, id, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s booking %s: %s", e.Channel, id, e.Reason)
}

// MissingField is the common TransformError for an absent required value.
func MissingField(channel, externalID, field string) error {
	return &TransformError{Channel: channel, ExternalID: externalID, Field: field, Reason: "missing"}
}
