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
package log

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines the report log, which records one entry per prepared
// content item. Unlike the global logger it is never sampled.
type Config struct {
	Disable     bool   `yaml:"disable"`
	ServiceName string `yaml:"service_name"`
	Path        string `yaml:"path"`
	Encoding    string `yaml:"encoding"`
}

func (c Config) applyDefaults() Config {
	if c.Path == "" {
		c.Path = "stderr"
	}
	if c.Encoding == "" {
		c.Encoding = "console"
	}
	return c
}

var reportEncoderConfig = zapcore.EncoderConfig{
	MessageKey:     "message",
	LevelKey:       "level",
	TimeKey:        "ts",
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
}

// New creates a report logger writing to c.Path. fields are attached to every
// entry.
func New(c Config, fields map[string]interface{}) (*zap.Logger, error) {
	c = c.applyDefaults()
	if c.Disable {
		return zap.NewNop(), nil
	}
	var enc zapcore.Encoder
	switch c.Encoding {
	case "console":
		enc = zapcore.NewConsoleEncoder(reportEncoderConfig)
	case "json":
		enc = zapcore.NewJSONEncoder(reportEncoderConfig)
	default:
		return nil, fmt.Errorf("unknown encoding %q", c.Encoding)
	}
	sink, _, err := zap.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %s", c.Path, err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var initial []zap.Field
	if c.ServiceName != "" {
		initial = append(initial, zap.String("service_name", c.ServiceName))
	}
	for _, k := range keys {
		initial = append(initial, zap.Any(k, fields[k]))
	}
	return zap.New(zapcore.NewCore(enc, sink, zapcore.InfoLevel)).With(initial...), nil
}
