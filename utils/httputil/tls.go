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
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
)

// TLSConfig defines client TLS configuration for torrent client endpoints.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`

	// CA is a PEM bundle used to verify the server. System roots are used if
	// empty.
	CA string `yaml:"ca"`

	// ServerName overrides the host name checked against the certificate.
	ServerName string `yaml:"server_name"`

	// SkipVerify accepts any server certificate. Deluge daemons generate a
	// self-signed certificate on first start.
	SkipVerify bool `yaml:"skip_verify"`
}

// BuildClient builds a tls.Config for clients. Returns nil if TLS is disabled.
func (c TLSConfig) BuildClient() (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	config := &tls.Config{
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.SkipVerify,
	}
	if c.CA != "" {
		pool, err := createCertPool(c.CA)
		if err != nil {
			return nil, fmt.Errorf("create cert pool: %s", err)
		}
		config.RootCAs = pool
	}
	return config, nil
}

func createCertPool(paths ...string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, p := range paths {
		pem, err := ioutil.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read file: %s", err)
		}
		if ok := pool.AppendCertsFromPEM(pem); !ok {
			return nil, fmt.Errorf("cannot append cert from %s", p)
		}
	}
	return pool, nil
}
