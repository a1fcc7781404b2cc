package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func envString(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// OutboxDispatcherEnabled starts the in-process Pub/Sub publisher.
//
// Set via env:
// - OUTBOX_DISPATCHER_ENABLED=true
func OutboxDispatcherEnabled() bool {
	return envBool("OUTBOX_DISPATCHER_ENABLED")
}

// SkipMigrations disables AutoMigrate on boot (schema owned by the DBA).
func SkipMigrations() bool {
	return envBool("SKIP_MIGRATIONS")
}

// PhoneRegion is the default region for numbers given without a country code.
func PhoneRegion() string {
	return strings.ToUpper(envString("PHONE_REGION", "TH"))
}

func InvoicePrefix() string {
	return envString("INVOICE_PREFIX", "INV")
}

func CustomerPrefix() string {
	return envString("CUSTOMER_PREFIX", "CUS")
}

// BookingIdempotencyTTL is how long a successful booking response is replayed for the same Idempotency-Key.
func BookingIdempotencyTTL() time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(os.Getenv("BOOKING_IDEMPOTENCY_TTL_SECONDS")))
	if err != nil || secs <= 0 {
		secs = 86400
	}
	return time.Duration(secs) * time.Second
}
