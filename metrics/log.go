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
package metrics

import (
	"io"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/upload-assistant/torrentprep/utils/log"
)

func newLogScope(config Config, env string) (tally.Scope, io.Closer, error) {
	s, c := tally.NewRootScope(tally.ScopeOptions{
		Prefix:   config.Log.Prefix,
		Tags:     map[string]string{"env": env},
		Reporter: logReporter{log.With("reporter", "metrics")},
	}, time.Second)
	return s, c, nil
}

// logReporter writes every reported metric as one structured log entry.
type logReporter struct {
	logger *zap.SugaredLogger
}

func (r logReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.logger.Infow("counter", "name", name, "tags", tags, "value", value)
}

func (r logReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.logger.Infow("gauge", "name", name, "tags", tags, "value", value)
}

func (r logReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.logger.Infow("timer", "name", name, "tags", tags, "value", interval)
}

func (r logReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	lower float64,
	upper float64,
	samples int64) {

	r.logger.Infow("histogram",
		"name", name, "tags", tags, "lower", lower, "upper", upper, "samples", samples)
}

func (r logReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	lower time.Duration,
	upper time.Duration,
	samples int64) {

	r.logger.Infow("histogram",
		"name", name, "tags", tags, "lower", lower, "upper", upper, "samples", samples)
}

func (r logReporter) Capabilities() tally.Capabilities { return r }
func (r logReporter) Reporting() bool                  { return true }
func (r logReporter) Tagging() bool                    { return true }
func (r logReporter) Flush()                           {}
