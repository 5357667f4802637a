// Copyright 2025 The Rivaas Authors
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

// Package config externalizes httpengine.Config's primitive fields into a
// YAML document, so operators can tune maxRequestHeadSize, timeout budgets,
// and the like without recompiling.
//
// This is deliberately a small slice of the teacher's sibling config
// module: no multi-source layering (file/env/Consul), no JSON-schema
// validation, no mapstructure binding. httpengine.Config's non-primitive
// fields (Logger, Metrics, Tracer) aren't representable in a YAML document
// and are left for the caller to set on the Config that Load returns.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/inboundhq/httpengine"
)

// document mirrors the YAML-serializable subset of httpengine.Config.
// Durations are decoded as strings (go-yaml has no built-in
// time.Duration support) and parsed with time.ParseDuration below.
type document struct {
	MaxRequestHeadSize           *int    `yaml:"maxRequestHeadSize"`
	MaxRequestTrailersSize       *int    `yaml:"maxRequestTrailersSize"`
	TimeoutIdleConnection        *string `yaml:"timeoutIdleConnection"`
	MaxErrorRecoveryAttempts     *int    `yaml:"maxErrorRecoveryAttempts"`
	MaxUnsuccessfulResponses     *int    `yaml:"maxUnsuccessfulResponses"`
	RejectClientsUsingHTTP1_0    *bool   `yaml:"rejectClientsUsingHTTP1_0"`
	ImmediatelyContinueExpect100 *bool   `yaml:"immediatelyContinueExpect100"`
	DiscardRejectedInformational *bool   `yaml:"discardRejectedInformational"`
	BloomFilterSize              *uint64 `yaml:"bloomFilterSize"`
	BloomFilterHashFuncs         *int    `yaml:"bloomFilterHashFuncs"`
	ReaderBufferSize             *int    `yaml:"readerBufferSize"`
}

// Load reads the YAML document at path and returns an httpengine.Config
// built from it, starting from httpengine.NewConfig's defaults and
// overlaying only the fields the document sets. Unknown keys are an
// error, since a typo'd field name silently keeping the default is a
// worse failure mode than refusing to start.
func Load(path string) (httpengine.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return httpengine.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var doc document
	if err := yaml.UnmarshalWithOptions(raw, &doc, yaml.Strict()); err != nil {
		return httpengine.Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	opts, err := doc.options()
	if err != nil {
		return httpengine.Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return httpengine.NewConfig(opts...), nil
}

// options converts the set fields of doc into httpengine.Options, in the
// same order httpengine/options.go declares them.
func (doc document) options() ([]httpengine.Option, error) {
	var opts []httpengine.Option

	if doc.MaxRequestHeadSize != nil {
		opts = append(opts, httpengine.WithMaxRequestHeadSize(*doc.MaxRequestHeadSize))
	}
	if doc.MaxRequestTrailersSize != nil {
		opts = append(opts, httpengine.WithMaxRequestTrailersSize(*doc.MaxRequestTrailersSize))
	}
	if doc.TimeoutIdleConnection != nil {
		d, err := time.ParseDuration(*doc.TimeoutIdleConnection)
		if err != nil {
			return nil, fmt.Errorf("timeoutIdleConnection: %w", err)
		}
		opts = append(opts, httpengine.WithTimeoutIdleConnection(d))
	}
	if doc.MaxErrorRecoveryAttempts != nil {
		opts = append(opts, httpengine.WithMaxErrorRecoveryAttempts(*doc.MaxErrorRecoveryAttempts))
	}
	if doc.MaxUnsuccessfulResponses != nil {
		opts = append(opts, httpengine.WithMaxUnsuccessfulResponses(*doc.MaxUnsuccessfulResponses))
	}
	if doc.RejectClientsUsingHTTP1_0 != nil {
		opts = append(opts, httpengine.WithRejectClientsUsingHTTP1_0(*doc.RejectClientsUsingHTTP1_0))
	}
	if doc.ImmediatelyContinueExpect100 != nil {
		opts = append(opts, httpengine.WithImmediatelyContinueExpect100(*doc.ImmediatelyContinueExpect100))
	}
	if doc.DiscardRejectedInformational != nil {
		opts = append(opts, httpengine.WithDiscardRejectedInformational(*doc.DiscardRejectedInformational))
	}
	if doc.BloomFilterSize != nil {
		opts = append(opts, httpengine.WithBloomFilterSize(*doc.BloomFilterSize))
	}
	if doc.BloomFilterHashFuncs != nil {
		opts = append(opts, httpengine.WithBloomFilterHashFunctions(*doc.BloomFilterHashFuncs))
	}
	if doc.ReaderBufferSize != nil {
		opts = append(opts, httpengine.WithReaderBufferSize(*doc.ReaderBufferSize))
	}

	return opts, nil
}
