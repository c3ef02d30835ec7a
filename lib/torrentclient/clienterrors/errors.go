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

// Package clienterrors defines the failures a torrent client adapter reports.
// Each of them aborts registration with that client only.
package clienterrors

import (
	"fmt"
	"time"
)

// AuthError occurs when a client rejects the configured credentials.
type AuthError struct {
	Client string
	Msg    string
}

func (e AuthError) Error() string {
	return fmt.Sprintf("client %s: authentication failed: %s", e.Client, e.Msg)
}

// IsAuthError returns true if err is an AuthError.
func IsAuthError(err error) bool {
	_, ok := err.(AuthError)
	return ok
}

// ConnectionError occurs when a client cannot be reached.
type ConnectionError struct {
	Client string
	Err    error
}

func (e ConnectionError) Error() string {
	return fmt.Sprintf("client %s: connection failed: %s", e.Client, e.Err)
}

// IsConnectionError returns true if err is a ConnectionError.
func IsConnectionError(err error) bool {
	_, ok := err.(ConnectionError)
	return ok
}

// RegistrationTimeoutError occurs when a client accepted a torrent but did
// not report it within the poll window.
type RegistrationTimeoutError struct {
	Client   string
	Hash     string
	Duration time.Duration
}

func (e RegistrationTimeoutError) Error() string {
	return fmt.Sprintf("client %s: torrent %s not registered after %s", e.Client, e.Hash, e.Duration)
}

// IsRegistrationTimeout returns true if err is a RegistrationTimeoutError.
func IsRegistrationTimeout(err error) bool {
	_, ok := err.(RegistrationTimeoutError)
	return ok
}
