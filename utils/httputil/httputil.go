// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// StatusError occurs if an HTTP response has an unexpected status code.
type StatusError struct {
	Method       string
	URL          string
	Status       int
	ResponseDump string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s %s %d: %s", e.Method, e.URL, e.Status, e.ResponseDump)
}

// IsStatus returns true if err is a StatusError of the given status.
func IsStatus(err error, status int) bool {
	serr, ok := err.(StatusError)
	return ok && serr.Status == status
}

// IsForbidden returns true if err is a 403 StatusError.
func IsForbidden(err error) bool {
	return IsStatus(err, http.StatusForbidden)
}

// IsNotFound returns true if err is a 404 StatusError.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// NetworkError occurs if the request could not be sent or no response was
// received.
type NetworkError struct {
	err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("network error: %s", e.err)
}

// IsNetworkError returns true if err is a NetworkError.
func IsNetworkError(err error) bool {
	_, ok := err.(NetworkError)
	return ok
}

type sendOptions struct {
	ctx           context.Context
	body          io.Reader
	timeout       time.Duration
	acceptedCodes map[int]bool
	headers       map[string]string
	client        *http.Client
}

func defaultSendOptions() sendOptions {
	return sendOptions{
		ctx:           context.Background(),
		body:          bytes.NewReader(nil),
		timeout:       defaultTimeout,
		acceptedCodes: map[int]bool{http.StatusOK: true},
		headers:       map[string]string{},
	}
}

// SendOption allows overriding defaults for the Send function.
type SendOption func(*sendOptions)

// SendBody specifies a body for the request.
func SendBody(body io.Reader) SendOption {
	return func(o *sendOptions) { o.body = body }
}

// SendForm url encodes form as the request body.
func SendForm(form url.Values) SendOption {
	return func(o *sendOptions) {
		o.body = strings.NewReader(form.Encode())
		o.headers["Content-Type"] = "application/x-www-form-urlencoded"
	}
}

// SendTimeout specifies a timeout for the request. Ignored if SendClient is
// also given.
func SendTimeout(timeout time.Duration) SendOption {
	return func(o *sendOptions) { o.timeout = timeout }
}

// SendHeaders adds headers to the request.
func SendHeaders(headers map[string]string) SendOption {
	return func(o *sendOptions) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// SendAcceptedCodes specifies the status codes which do not result in a
// StatusError.
func SendAcceptedCodes(codes ...int) SendOption {
	return func(o *sendOptions) {
		m := make(map[int]bool)
		for _, c := range codes {
			m[c] = true
		}
		o.acceptedCodes = m
	}
}

// SendClient sends the request with client, e.g. to share a cookie jar
// between requests.
func SendClient(client *http.Client) SendOption {
	return func(o *sendOptions) { o.client = client }
}

// SendContext attaches ctx to the request.
func SendContext(ctx context.Context) SendOption {
	return func(o *sendOptions) { o.ctx = ctx }
}

// Send sends an HTTP request. Responses with a status code which is not
// accepted are returned as a StatusError with the body already closed.
func Send(method, endpoint string, options ...SendOption) (*http.Response, error) {
	opts := defaultSendOptions()
	for _, o := range options {
		o(&opts)
	}

	req, err := http.NewRequest(method, endpoint, opts.body)
	if err != nil {
		return nil, fmt.Errorf("new request: %s", err)
	}
	req = req.WithContext(opts.ctx)
	for k, v := range opts.headers {
		req.Header.Set(k, v)
	}

	client := opts.client
	if client == nil {
		client = &http.Client{Timeout: opts.timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, NetworkError{err}
	}
	if !opts.acceptedCodes[resp.StatusCode] {
		defer resp.Body.Close()
		b, err := ioutil.ReadAll(io.LimitReader(resp.Body, 1024))
		dump := string(b)
		if err != nil {
			dump = fmt.Sprintf("failed to read body: %s", err)
		}
		return nil, StatusError{method, endpoint, resp.StatusCode, dump}
	}
	return resp, nil
}

// Get sends a GET request.
func Get(endpoint string, options ...SendOption) (*http.Response, error) {
	return Send("GET", endpoint, options...)
}

// Post sends a POST request.
func Post(endpoint string, options ...SendOption) (*http.Response, error) {
	return Send("POST", endpoint, options...)
}

// ReadBody reads and closes the body of resp.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %s", err)
	}
	return b, nil
}
