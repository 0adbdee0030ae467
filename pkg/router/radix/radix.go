/*
 * Copyright 2024 The Halyard Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package radix implements the Router interface with one segment-keyed
// prefix tree per HTTP method. At every branch point, literal segments are
// preferred over parameterized segments, and parameterized over wildcard;
// constrained parameters are tried before unconstrained ones, and a
// constraint failure backtracks to sibling branches.
package radix

import (
	"sort"
	"strings"

	"github.com/halyardhttp/halyard/pkg/errors"
	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/methods"
	"github.com/halyardhttp/halyard/pkg/router"
	"github.com/halyardhttp/halyard/pkg/router/route"
)

var _ router.Router = &radixRouter{}

type radixRouter struct {
	trees    map[string]*node
	patterns map[string]bool
	routes   []*route.Route
}

// NewRouter returns an empty radix Router
func NewRouter() router.Router {
	return &radixRouter{
		trees:    make(map[string]*node, 8),
		patterns: make(map[string]bool),
	}
}

type node struct {
	children map[string]*node
	params   []*paramEdge
	wildcard *wildcardEdge
	route    *route.Route
}

type paramEdge struct {
	name       string
	constraint constraint
	child      *node
}

type wildcardEdge struct {
	name  string
	route *route.Route
}

func newNode() *node {
	return &node{}
}

func (rt *radixRouter) AddRoute(method, pattern string,
	handler handlers.Handler, tags ...string) error {
	if !methods.IsValidMethod(method) {
		return errors.ErrInvalidMethod
	}
	method = strings.ToUpper(method)
	if pattern == "" || pattern[0] != '/' {
		return errors.ErrInvalidPattern
	}
	key := method + " " + pattern
	if rt.patterns[key] {
		return errors.ErrRouteConflict
	}

	r := &route.Route{Method: method, Pattern: pattern,
		Handler: handler, Tags: tags}

	root, ok := rt.trees[method]
	if !ok {
		root = newNode()
		rt.trees[method] = root
	}

	n := root
	segs := splitPath(pattern, make([]string, 0, 16))
	for i, seg := range segs {
		switch {
		case len(seg) > 1 && seg[0] == '*':
			if i != len(segs)-1 {
				return errors.ErrInvalidPattern
			}
			if n.wildcard != nil {
				return errors.ErrRouteConflict
			}
			n.wildcard = &wildcardEdge{name: seg[1:], route: r}
			rt.patterns[key] = true
			rt.routes = append(rt.routes, r)
			return nil
		case len(seg) > 1 && seg[0] == '{' && seg[len(seg)-1] == '}':
			name, c, err := parseParam(seg)
			if err != nil {
				return err
			}
			n, err = n.paramChild(name, c)
			if err != nil {
				return err
			}
		default:
			if n.children == nil {
				n.children = make(map[string]*node, 4)
			}
			c, ok := n.children[seg]
			if !ok {
				c = newNode()
				n.children[seg] = c
			}
			n = c
		}
	}
	if n.route != nil {
		// an equivalent pattern spelled with different parameter names
		// still terminates at the same tree position
		return errors.ErrRouteConflict
	}
	n.route = r
	rt.patterns[key] = true
	rt.routes = append(rt.routes, r)
	return nil
}

// paramChild returns the param edge for the provided constraint, adding one
// if needed. Edges are keyed by constraint spec; a same-spec edge registered
// under a different parameter name is a conflict, since both patterns occupy
// the same tree position. Constrained edges sort ahead of unconstrained
// edges so that more specific branches are tried first.
func (n *node) paramChild(name string, c constraint) (*node, error) {
	spec := ""
	if c != nil {
		spec = c.Spec()
	}
	for _, pe := range n.params {
		peSpec := ""
		if pe.constraint != nil {
			peSpec = pe.constraint.Spec()
		}
		if peSpec == spec {
			if pe.name != name {
				return nil, errors.ErrRouteConflict
			}
			return pe.child, nil
		}
	}
	pe := &paramEdge{name: name, constraint: c, child: newNode()}
	n.params = append(n.params, pe)
	sort.SliceStable(n.params, func(i, j int) bool {
		return n.params[i].constraint != nil && n.params[j].constraint == nil
	})
	return pe.child, nil
}

func parseParam(seg string) (string, constraint, error) {
	body := seg[1 : len(seg)-1]
	i := strings.Index(body, ":")
	if i < 0 {
		if body == "" {
			return "", nil, errors.ErrInvalidPattern
		}
		return body, nil, nil
	}
	name, spec := body[:i], body[i+1:]
	if name == "" || spec == "" {
		return "", nil, errors.ErrInvalidPattern
	}
	c, err := newConstraint(spec)
	if err != nil {
		return "", nil, err
	}
	return name, c, nil
}

func (rt *radixRouter) Match(method, path string) (*route.Match, error) {
	var segBuf [24]string
	segs := splitPath(path, segBuf[:0])
	m := &route.Match{}
	if root, ok := rt.trees[strings.ToUpper(method)]; ok {
		if r := root.match(segs, 0, m); r != nil {
			m.Route = r
			return m, nil
		}
	}
	// the path did not resolve under the request method; if it resolves
	// under any other method, this is a 405 rather than a 404
	var allowed []string
	for otherMethod, root := range rt.trees {
		if otherMethod == method {
			continue
		}
		var discard route.Match
		if r := root.match(segs, 0, &discard); r != nil {
			allowed = append(allowed, otherMethod)
		}
	}
	if len(allowed) > 0 {
		sort.Strings(allowed)
		m.Allowed = allowed
		return m, errors.ErrMethodNotAllowed
	}
	return nil, errors.ErrRouteNotFound
}

// match descends the tree one segment at a time, recording parameters only
// on the successful unwind so failed branches leave no residue
func (n *node) match(segs []string, depth int, m *route.Match) *route.Route {
	if depth == len(segs) {
		if n.route != nil {
			return n.route
		}
		if n.wildcard != nil {
			m.SetParam(n.wildcard.name, "")
			return n.wildcard.route
		}
		return nil
	}
	seg := segs[depth]
	if c, ok := n.children[seg]; ok {
		if r := c.match(segs, depth+1, m); r != nil {
			return r
		}
	}
	for _, pe := range n.params {
		if pe.constraint != nil && !pe.constraint.Validate(seg) {
			continue
		}
		if r := pe.child.match(segs, depth+1, m); r != nil {
			m.SetParam(pe.name, seg)
			return r
		}
	}
	if n.wildcard != nil {
		m.SetParam(n.wildcard.name, strings.Join(segs[depth:], "/"))
		return n.wildcard.route
	}
	return nil
}

func (rt *radixRouter) Routes() []*route.Route {
	out := make([]*route.Route, len(rt.routes))
	copy(out, rt.routes)
	return out
}

// splitPath tokenizes a path into its segments using the provided buffer,
// skipping empty segments so trailing slashes are insignificant
func splitPath(path string, buf []string) []string {
	start := -1
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if start >= 0 {
				buf = append(buf, path[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		buf = append(buf, path[start:])
	}
	return buf
}
