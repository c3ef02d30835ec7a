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
package deluge

import (
	"bufio"
	"fmt"
	"net"
)

// Message types sent by the daemon.
const (
	rpcResponse = 1
	rpcError    = 2
	rpcEvent    = 3
)

// RPCError is an exception raised by the daemon.
type RPCError struct {
	Type string
	Msg  string
}

func (e RPCError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Msg)
}

// rpcConn is a connection to a Deluge daemon. Calls are not safe for
// concurrent use.
type rpcConn struct {
	conn   net.Conn
	r      *bufio.Reader
	nextID int64
}

func newRPCConn(conn net.Conn) *rpcConn {
	return &rpcConn{conn: conn, r: bufio.NewReader(conn)}
}

func (c *rpcConn) Close() error {
	return c.conn.Close()
}

// call invokes method and waits for its result, discarding any events the
// daemon pushes in the meantime.
func (c *rpcConn) call(method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	c.nextID++
	id := c.nextID
	if args == nil {
		args = []interface{}{}
	}
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}
	req := []interface{}{[]interface{}{id, method, args, kwargs}}
	if err := writeMessage(c.conn, req); err != nil {
		return nil, fmt.Errorf("write request: %s", err)
	}
	for {
		msg, err := readMessage(c.r)
		if err != nil {
			return nil, fmt.Errorf("read response: %s", err)
		}
		l, ok := msg.([]interface{})
		if !ok || len(l) < 2 {
			return nil, fmt.Errorf("malformed message %v", msg)
		}
		kind, _ := l[0].(int64)
		if kind == rpcEvent {
			continue
		}
		if rid, _ := l[1].(int64); rid != id {
			return nil, fmt.Errorf("response id %d does not match request %d", rid, id)
		}
		switch kind {
		case rpcResponse:
			if len(l) < 3 {
				return nil, nil
			}
			return l[2], nil
		case rpcError:
			e := RPCError{}
			if len(l) > 3 {
				e.Type, _ = l[2].(string)
				e.Msg, _ = l[3].(string)
			}
			return nil, e
		default:
			return nil, fmt.Errorf("unknown message type %d", kind)
		}
	}
}
