/*
 * Copyright 2024 MediScan Client Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Kind classifies a failed request.
type Kind int

const (
	// Unknown covers anything that is neither a remote rejection nor a transport failure.
	Unknown Kind = iota
	// RemoteRejected means the server understood the request and declined it.
	RemoteRejected
	// TransportFailure means no response was received.
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case RemoteRejected:
		return "RemoteRejected"
	case TransportFailure:
		return "TransportFailure"
	default:
		return "Unknown"
	}
}

// ConnectivityMessage is shown for every transport failure.
const ConnectivityMessage = "Unable to connect to the server. Please check your internet connection or try again later."

const fallbackMessage = "Request failed"

// ErrMalformedResponse is wrapped when a successful response cannot be understood.
var ErrMalformedResponse = errors.New("unexpected response from the server")

// Failure is the single error contract presented to callers.
// Message is always non-empty and safe to show to the end user.
type Failure struct {
	Kind       Kind
	Message    string
	StatusCode int // 0 when no response was received
	Err        error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// ResponseError is a non-2xx response from the remote service.
type ResponseError struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// TransportError wraps a failure that happened before a complete response arrived.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Classify turns any error into a Failure. In priority order:
// a "detail" field from the server, a "message" field from the server,
// a fixed connectivity message for transport failures, the error text,
// and finally defaultMessage.
func Classify(err error, defaultMessage string) *Failure {
	if strings.TrimSpace(defaultMessage) == "" {
		defaultMessage = fallbackMessage
	}
	if err == nil {
		return &Failure{Kind: Unknown, Message: defaultMessage}
	}

	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	status := 0
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		status = respErr.StatusCode
		if msg, ok := remoteMessage(respErr.Body); ok {
			return &Failure{Kind: RemoteRejected, Message: msg, StatusCode: status, Err: err}
		}
	} else if isTransport(err) {
		return &Failure{Kind: TransportFailure, Message: ConnectivityMessage, Err: err}
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return &Failure{Kind: Unknown, Message: msg, StatusCode: status, Err: err}
	}
	return &Failure{Kind: Unknown, Message: defaultMessage, StatusCode: status, Err: err}
}

// remoteMessage extracts "detail", then "message", from a JSON error body.
func remoteMessage(body []byte) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}
	if msg, ok := detailText(fields["detail"]); ok {
		return msg, true
	}
	if msg, ok := stringField(fields["message"]); ok {
		return msg, true
	}
	return "", false
}

// detailText accepts a string detail, or a validation list of {"msg": ...} entries.
func detailText(raw json.RawMessage) (string, bool) {
	if msg, ok := stringField(raw); ok {
		return msg, true
	}

	var entries []struct {
		Msg string `json:"msg"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &entries) != nil {
		return "", false
	}
	msgs := make([]string, 0, len(entries))
	for _, e := range entries {
		if m := strings.TrimSpace(e.Msg); m != "" {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) == 0 {
		return "", false
	}
	return strings.Join(msgs, "; "), true
}

func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if json.Unmarshal(raw, &s) != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func isTransport(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
