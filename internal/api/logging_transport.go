package api

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// LoggingTransport wraps an http.RoundTripper to log the gallery
// coordinator's detail/preview/page fetches and image downloads to a
// file. Bodies are only logged for HTML responses (detail/preview/page
// fetches); image downloads get a header-and-size line instead, since
// dumping raw image bytes into a text log is useless.
type LoggingTransport struct {
	Transport http.RoundTripper
	logFile   *os.File
	mu        sync.Mutex
	writer    *bufio.Writer
}

// NewLoggingTransport creates a new LoggingTransport.
// It opens the specified log file for appending.
func NewLoggingTransport(transport http.RoundTripper, logFilePath string) (*LoggingTransport, error) {
	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open API log file %s: %w", logFilePath, err)
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

// requestTag pulls "gid"/"p" off the request's query string so log
// lines read like "gid=1234 page=7" instead of a bare URL.
func requestTag(req *http.Request) string {
	q := req.URL.Query()
	gid := q.Get("gid")
	if gid == "" {
		return req.URL.Path
	}
	if p := q.Get("p"); p != "" {
		return fmt.Sprintf("gid=%s page=%s", gid, p)
	}
	return fmt.Sprintf("gid=%s", gid)
}

// RoundTrip executes a single HTTP transaction, logging details.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tag := requestTag(req)
	startTime := time.Now()

	reqDump, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		log.WithError(err).Error("failed to dump gallery request for logging")
	} else {
		t.writeLog(fmt.Sprintf("--- Request %s (%s) ---\n%s\n", tag, startTime.Format(time.RFC3339), string(reqDump)))
	}

	resp, err := t.Transport.RoundTrip(req)
	duration := time.Since(startTime)

	if err != nil {
		t.writeLog(fmt.Sprintf("--- Response Error %s (%s, Duration: %v) ---\n%s\n", tag, time.Now().Format(time.RFC3339), duration, err.Error()))
		if errFlush := t.writer.Flush(); errFlush != nil {
			log.WithError(errFlush).Error("failed to flush API log writer")
		}
		return resp, err
	}

	contentType := resp.Header.Get("Content-Type")
	logBody := strings.HasPrefix(contentType, "text/html")

	if logBody {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			log.WithError(readErr).Error("failed to read gallery response body for logging")
			respDump, _ := httputil.DumpResponse(resp, false)
			t.writeLog(fmt.Sprintf("--- Response Headers %s (%s, Duration: %v) ---\nStatus: %s\n%s\n(body read failed)\n", tag, time.Now().Format(time.RFC3339), duration, resp.Status, string(respDump)))
		} else {
			if closeErr := resp.Body.Close(); closeErr != nil {
				log.WithError(closeErr).Warn("failed to close gallery response body before replacing it")
			}
			resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			respDumpHeader, _ := httputil.DumpResponse(resp, false)
			t.writeLog(fmt.Sprintf("--- Response %s (%s, Duration: %v) ---\n%s\n--- Body ---\n%s\n", tag, time.Now().Format(time.RFC3339), duration, string(respDumpHeader), string(bodyBytes)))
		}
	} else {
		respDump, _ := httputil.DumpResponse(resp, false)
		t.writeLog(fmt.Sprintf("--- Response %s (%s, Duration: %v, Content-Type: %s, Length: %d) ---\n%s\n(image body not logged)\n", tag, time.Now().Format(time.RFC3339), duration, contentType, resp.ContentLength, string(respDump)))
	}

	if errFlush := t.writer.Flush(); errFlush != nil {
		log.WithError(errFlush).Error("failed to flush API log writer")
	}
	return resp, err
}

// writeLog writes a string to the buffered writer.
func (t *LoggingTransport) writeLog(logString string) {
	_, err := t.writer.WriteString(logString + "\n\n")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to API log file: %v\nLog message: %s\n", err, logString)
	}
}

// Close flushes and closes the underlying log file.
func (t *LoggingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	errFlush := t.writer.Flush()
	errClose := t.logFile.Close()
	if errFlush != nil {
		return fmt.Errorf("failed to flush API log buffer: %w", errFlush)
	}
	return errClose
}
