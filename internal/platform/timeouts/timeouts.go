// Package timeouts defines shared timeout constants used by folio binaries.
package timeouts

import "time"

// ReadHeader limits how long the admin HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Request caps the time a single admin API request may run.
const Request = 30 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// SMTPDial caps the wait time when connecting to the mail relay.
const SMTPDial = 10 * time.Second
