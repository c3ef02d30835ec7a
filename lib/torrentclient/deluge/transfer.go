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
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
)

const (
	protocolVersion = 1

	// Deluge 2.0 pre-releases sent 'D' in place of the version byte.
	legacyHeader = 'D'

	headerSize     = 5
	maxMessageSize = 64 << 20
)

// writeMessage writes v as one zlib compressed rencoded frame.
func writeMessage(w io.Writer, v interface{}) error {
	var raw bytes.Buffer
	if err := encode(&raw, v); err != nil {
		return err
	}
	var body bytes.Buffer
	zw := zlib.NewWriter(&body)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress: %s", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress: %s", err)
	}
	frame := make([]byte, headerSize, headerSize+body.Len())
	frame[0] = protocolVersion
	binary.BigEndian.PutUint32(frame[1:], uint32(body.Len()))
	frame = append(frame, body.Bytes()...)
	_, err := w.Write(frame)
	return err
}

// readMessage reads one frame written by writeMessage.
func readMessage(r io.Reader) (interface{}, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if header[0] != protocolVersion && header[0] != legacyHeader {
		return nil, fmt.Errorf("unsupported protocol version %d", header[0])
	}
	n := binary.BigEndian.Uint32(header[1:])
	if n > maxMessageSize {
		return nil, fmt.Errorf("message of %d bytes exceeds limit", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decompress: %s", err)
	}
	raw, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %s", err)
	}
	return decode(bytes.NewReader(raw))
}
