package remote

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"go-pixelbatch/internal/helpers"
)

// LoggingTransport wraps an http.RoundTripper and dumps request/response
// details to a log file. Enabled by the LogHttpRequests config flag; useful
// when diagnosing backend availability problems.
type LoggingTransport struct {
	Transport http.RoundTripper
	logFile   *os.File
	writer    *bufio.Writer
	mu        sync.Mutex
}

// NewLoggingTransport opens the log file for appending and returns the
// wrapping transport.
func NewLoggingTransport(transport http.RoundTripper, logFilePath string) (*LoggingTransport, error) {
	safePath := helpers.SanitizePath(logFilePath)
	// #nosec G304
	f, err := os.OpenFile(safePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open HTTP log file %s: %w", safePath, err)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &LoggingTransport{
		Transport: transport,
		logFile:   f,
		writer:    bufio.NewWriter(f),
	}, nil
}

// RoundTrip executes the request, logging headers on both sides. Bodies are
// not logged; backend payloads are binary image data.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if dump, err := httputil.DumpRequestOut(req, false); err != nil {
		log.WithError(err).Warn("Failed to dump HTTP request for logging")
	} else {
		t.writeLog(fmt.Sprintf("--- Request (%s) ---\n%s", start.Format(time.RFC3339), dump))
	}

	resp, err := t.Transport.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.writeLog(fmt.Sprintf("--- Response Error (duration %v) ---\n%v", duration, err))
		return resp, err
	}
	if dump, dumpErr := httputil.DumpResponse(resp, false); dumpErr == nil {
		t.writeLog(fmt.Sprintf("--- Response (duration %v) ---\n%s", duration, dump))
	}
	return resp, err
}

func (t *LoggingTransport) writeLog(entry string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.writer.WriteString(entry + "\n\n"); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing HTTP log: %v\n", err)
		return
	}
	if err := t.writer.Flush(); err != nil {
		log.WithError(err).Warn("Failed to flush HTTP log writer")
	}
}

// Close flushes and closes the log file.
func (t *LoggingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush HTTP log buffer: %w", err)
	}
	return t.logFile.Close()
}
