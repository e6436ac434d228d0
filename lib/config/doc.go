// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the gateway configuration.
//
// The file is YAML, or JSON with comments when its name ends in .json
// or .jsonc. [Load] reads the path in TASKFLOW_CONFIG and falls back to
// [Default] when it is unset; [LoadFile] reads an explicit path (the
// --config flag).
//
// String fields may reference the environment as ${VAR} or
// ${VAR:-default}. The defaults use this for the variables the TaskFlow
// deployment already sets: HOST, PORT, FRONTEND_URL, MONGODB_URI,
// API_URL, and INBOUND_SECRET.
//
// The file may carry development and production sections that override
// base values when [Config].Environment matches. Without a production
// section, production switches logging to JSON.
package config
