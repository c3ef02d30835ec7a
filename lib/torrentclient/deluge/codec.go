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
	"fmt"
	"io"
	"sort"

	"github.com/gdm85/go-rencode"
)

// encode rencodes v. Slices and string keyed maps are carried as rencode
// lists and dictionaries, with dictionary keys in sorted order.
func encode(w io.Writer, v interface{}) error {
	e := rencode.NewEncoder(w)
	return e.Encode(toRencode(v))
}

func toRencode(v interface{}) interface{} {
	switch x := v.(type) {
	case []interface{}:
		l := rencode.NewList()
		for _, e := range x {
			l.Add(toRencode(e))
		}
		return l
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var d rencode.Dictionary
		for _, k := range keys {
			d.Add(k, toRencode(x[k]))
		}
		return d
	case int:
		return int64(x)
	}
	return v
}

// decode reads one rencoded value from r. Lists and dictionaries come back as
// []interface{} and map[string]interface{}, and every integer as int64.
func decode(r io.Reader) (interface{}, error) {
	v, err := rencode.NewDecoder(r).DecodeNext()
	if err != nil {
		return nil, err
	}
	return fromRencode(v)
}

func fromRencode(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case *rencode.List:
		return fromList(x)
	case rencode.List:
		return fromList(&x)
	case *rencode.Dictionary:
		return fromDictionary(x)
	case rencode.Dictionary:
		return fromDictionary(&x)
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case []byte:
		return string(x), nil
	}
	return v, nil
}

func fromList(l *rencode.List) (interface{}, error) {
	values := l.Values()
	out := make([]interface{}, len(values))
	for i, e := range values {
		v, err := fromRencode(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func fromDictionary(d *rencode.Dictionary) (interface{}, error) {
	keys, values := d.Keys(), d.Values()
	out := make(map[string]interface{}, len(keys))
	for i, k := range keys {
		key, err := fromRencode(k)
		if err != nil {
			return nil, err
		}
		s, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("dictionary key %v is not a string", key)
		}
		v, err := fromRencode(values[i])
		if err != nil {
			return nil, err
		}
		out[s] = v
	}
	return out, nil
}
