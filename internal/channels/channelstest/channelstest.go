// Package channelstest provides fake partners and fixtures for adapter tests.
package channelstest

import (
	"crypto/hmac"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"channelhub/internal/channels"
	"channelhub/internal/model"
	"channelhub/internal/store"
)

const (
	PropertyID        = "prop-1"
	ChannelPropertyID = "hotel-42"
	// UnreachableURL refuses connections immediately.
	UnreachableURL = "http://127.0.0.1:1"
)

// Credentials has every member set, so any authenticator can be built from it.
var Credentials = model.Credentials{
	APIKey:    "key-123",
	APISecret: "secret-456",
	Username:  "integrator",
	Password:  "s3cret",
	Token:     "tok-789",
	PartnerID: "partner-1",
}

// Config returns a resolved config for the test property with retries disabled.
func Config(channel, baseURL string) model.ChannelConfig {
	return model.ChannelConfig{
		PropertyID:        PropertyID,
		Channel:           channel,
		ChannelPropertyID: ChannelPropertyID,
		BaseURL:           baseURL,
		Credentials:       Credentials,
		Sync:              model.SyncSettings{MaxRetries: -1, Timeout: 2 * time.Second},
		ResolvedAt:        time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Inventory returns n consecutive days for one room type starting 2026-11-01.
func Inventory(n int) []model.InventoryItem {
	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.InventoryItem, n)
	for i := range out {
		out[i] = model.InventoryItem{
			RoomTypeID:   "DLX",
			RatePlanID:   "BAR",
			Date:         start.AddDate(0, 0, i).Format(model.DateLayout),
			Availability: 5,
			Rate:         120 + float64(i),
			Currency:     "EUR",
		}
	}
	return out
}

func Rates(n int) []model.RateItem {
	out := make([]model.RateItem, 0, n)
	for _, it := range Inventory(n) {
		out = append(out, model.RateItem{RoomTypeID: it.RoomTypeID, RatePlanID: it.RatePlanID, Date: it.Date, Rate: it.Rate, Currency: it.Currency})
	}
	return out
}

func Restrictions(n int) []model.RestrictionItem {
	out := make([]model.RestrictionItem, 0, n)
	for i, it := range Inventory(n) {
		out = append(out, model.RestrictionItem{RoomTypeID: it.RoomTypeID, RatePlanID: it.RatePlanID, Date: it.Date, MinStay: 2, MaxStay: 14, ClosedToArrival: i%7 == 5})
	}
	return out
}

// Data returns a memory store seeded with n inventory, rate and restriction rows for the test property.
func Data(n int) *store.Memory {
	m := store.NewMemory()
	m.SetInventory(PropertyID, Inventory(n))
	m.SetRates(PropertyID, Rates(n))
	m.SetRestrictions(PropertyID, Restrictions(n))
	return m
}

// NewBase wires a Base the way the registry does, with a fresh client factory.
func NewBase(cfg model.ChannelConfig, auth channels.Authenticator, data channels.LocalData) channels.Base {
	f := channels.NewClientFactory(&http.Client{}, channels.BreakerSettings{}, zap.NewNop())
	return channels.Base{Config: cfg, Client: f.New(cfg, auth), Data: data, Logger: zap.NewNop()}
}

// Hit is one request received by a Partner.
type Hit struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// SignatureHeaders names the headers a partner reads HMAC signing values from.
type SignatureHeaders struct {
	Signature string
	Timestamp string
	Nonce     string
}

// SignedBy reports whether h carries a valid HMACSigner signature for apiKey and secret, rebuilt from the
// request as the partner receives it.
func (h Hit) SignedBy(apiKey, secret string, hdr SignatureHeaders) bool {
	uri := h.Path
	if h.Query != "" {
		uri += "?" + h.Query
	}
	msg := channels.CanonicalString(apiKey, h.Method, uri, h.Header.Get(hdr.Timestamp), h.Header.Get(hdr.Nonce), []byte(h.Body))
	want := channels.SignHMAC(secret, []byte(msg))
	return hmac.Equal([]byte(want), []byte(h.Header.Get(hdr.Signature)))
}

// Partner is a fake partner API that records every request.
type Partner struct {
	*httptest.Server
	mu   sync.Mutex
	hits []Hit
}

// NewPartner starts a recording server; handler may be nil to answer 200 {} to everything.
func NewPartner(t testing.TB, handler http.HandlerFunc) *Partner {
	t.Helper()
	p := &Partner{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		p.mu.Lock()
		p.hits = append(p.hits, Hit{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone(), Body: string(b)})
		p.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(b)))
		if handler == nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, "{}")
			return
		}
		handler(w, r)
	}))
	t.Cleanup(p.Close)
	return p
}

func (p *Partner) Hits() []Hit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Hit(nil), p.hits...)
}

// Count returns how many requests hit paths with the given prefix.
func (p *Partner) Count(prefix string) int {
	n := 0
	for _, h := range p.Hits() {
		if strings.HasPrefix(h.Path, prefix) {
			n++
		}
	}
	return n
}

// JSON writes a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}
