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

package route

import "strings"

// Group organizes related routes under a common path prefix, with
// before/after actions registered on the group applying to every route
// added through it (spec §4.B: actions attach to a trie position, and a
// group prefix is just that position named ahead of time).
//
// Example:
//
//	api := registry.Group("/api/v1")
//	api.Before(authenticate)
//	api.Handle("GET", "/users/:id", getUser) // matches /api/v1/users/:id
type Group struct {
	registry   *Registry
	prefix     string
	namePrefix string
}

// Group returns a top-level group over r with the given prefix.
func (r *Registry) Group(prefix string) *Group {
	return (&Group{registry: r}).Group(prefix)
}

// Group creates a nested group under g, concatenating prefixes.
func (g *Group) Group(prefix string) *Group {
	return &Group{
		registry:   g.registry,
		prefix:     joinPath(g.prefix, prefix),
		namePrefix: g.namePrefix,
	}
}

// SetNamePrefix sets the name prefix prepended to every route name
// registered through g or its descendants; returns g for chaining.
func (g *Group) SetNamePrefix(prefix string) *Group {
	g.namePrefix += prefix
	return g
}

// Before registers a before-action applying to every route registered
// through g, present or future, and to every descendant group.
func (g *Group) Before(action BeforeAction) error {
	return g.registry.Before(g.fullPath(""), action)
}

// After registers an after-action applying to every route registered
// through g, present or future, and to every descendant group.
func (g *Group) After(action AfterAction) error {
	return g.registry.After(g.fullPath(""), action)
}

// Handle registers handler at method and path, relative to g's prefix.
func (g *Group) Handle(method, path string, handler HandlerFunc) error {
	return g.registry.HandleNamed(method, g.fullPath(path), g.namePrefix, handler)
}

func (g *Group) GET(path string, handler HandlerFunc) error     { return g.Handle("GET", path, handler) }
func (g *Group) POST(path string, handler HandlerFunc) error    { return g.Handle("POST", path, handler) }
func (g *Group) PUT(path string, handler HandlerFunc) error     { return g.Handle("PUT", path, handler) }
func (g *Group) DELETE(path string, handler HandlerFunc) error  { return g.Handle("DELETE", path, handler) }
func (g *Group) PATCH(path string, handler HandlerFunc) error   { return g.Handle("PATCH", path, handler) }
func (g *Group) OPTIONS(path string, handler HandlerFunc) error { return g.Handle("OPTIONS", path, handler) }
func (g *Group) HEAD(path string, handler HandlerFunc) error    { return g.Handle("HEAD", path, handler) }

func (g *Group) fullPath(path string) string {
	return joinPath(g.prefix, path)
}

func joinPath(prefix, path string) string {
	switch {
	case prefix == "":
		return path
	case path == "":
		return prefix
	default:
		var sb strings.Builder
		sb.Grow(len(prefix) + len(path) + 1)
		sb.WriteString(strings.TrimSuffix(prefix, "/"))
		if !strings.HasPrefix(path, "/") {
			sb.WriteByte('/')
		}
		sb.WriteString(path)
		return sb.String()
	}
}
