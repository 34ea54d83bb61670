package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func sampleNotification() Notification {
	return Notification{
		AsOf:               time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC),
		Symbol:             "SIS",
		Name:               "Stock Index Return Security",
		MarketPrice:        decimal.NewFromInt(13),
		IndexValue:         decimal.RequireFromString("238.54"),
		CashSurrenderValue: decimal.RequireFromString("15.02"),
		Discount:           decimal.RequireFromString("2.02"),
		DiscountPct:        decimal.RequireFromString("0.16"),
		ThresholdPct:       decimal.RequireFromString("0.05"),
		DownsideProtection: decimal.NewNullDecimal(decimal.RequireFromString("0.12")),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/bottoken/sendMessage") {
			t.Fatalf("path should target sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("unexpected chat_id: %#v", received)
	}
	text := received["text"]
	for _, want := range []string{"SIS", "Discount: 2.02 (16.0% of market, threshold 5.0%)", "Downside protection: 12.0%"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text should contain %q, got %q", want, text)
		}
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNotification()); err == nil {
		t.Fatal("ok=false should fail")
	}
}

func TestTelegramNotifierHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNotification()); err == nil {
		t.Fatal("non-2xx status should fail")
	}
}

func TestShouldAlert(t *testing.T) {
	cases := []struct {
		pct, threshold string
		want           bool
	}{
		{"0.16", "0.05", true},
		{"0.05", "0.05", true},
		{"0.04", "0.05", false},
		{"-0.10", "0.05", false},
		{"0.50", "0", false},
	}
	for _, tc := range cases {
		got := ShouldAlert(decimal.RequireFromString(tc.pct), decimal.RequireFromString(tc.threshold))
		if got != tc.want {
			t.Fatalf("ShouldAlert(%s, %s) = %v, want %v", tc.pct, tc.threshold, got, tc.want)
		}
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
