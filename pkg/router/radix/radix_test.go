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

package radix

import (
	"net/http"
	"testing"

	"github.com/halyardhttp/halyard/pkg/errors"
	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/request"
)

func testHandler(name string) handlers.Handler {
	return handlers.HandlerFunc(func(ctx *request.Context) (*request.Response, error) {
		resp := request.NewResponse(http.StatusOK)
		resp.SetBody([]byte(name), "text/plain")
		return resp, nil
	})
}

func TestAddRouteConflict(t *testing.T) {
	rt := NewRouter()
	if err := rt.AddRoute("GET", "/users/{id}", testHandler("a")); err != nil {
		t.Error(err)
	}
	err := rt.AddRoute("GET", "/users/{id}", testHandler("b"))
	if err != errors.ErrRouteConflict {
		t.Errorf("expected ErrRouteConflict, got %v", err)
	}
	// same pattern under a different method is not a conflict
	if err := rt.AddRoute("POST", "/users/{id}", testHandler("c")); err != nil {
		t.Error(err)
	}
	// an equivalent pattern with a different param name is a conflict
	err = rt.AddRoute("GET", "/users/{uid}", testHandler("d"))
	if err != errors.ErrRouteConflict {
		t.Errorf("expected ErrRouteConflict, got %v", err)
	}
}

func TestAddRouteInvalid(t *testing.T) {
	rt := NewRouter()
	if err := rt.AddRoute("BUNK", "/x", testHandler("a")); err != errors.ErrInvalidMethod {
		t.Errorf("expected ErrInvalidMethod, got %v", err)
	}
	if err := rt.AddRoute("GET", "nope", testHandler("a")); err != errors.ErrInvalidPattern {
		t.Errorf("expected ErrInvalidPattern, got %v", err)
	}
	if err := rt.AddRoute("GET", "/a/*rest/b", testHandler("a")); err != errors.ErrInvalidPattern {
		t.Errorf("expected ErrInvalidPattern, got %v", err)
	}
	if err := rt.AddRoute("GET", "/a/{id:bogus}", testHandler("a")); err != errors.ErrInvalidPattern {
		t.Errorf("expected ErrInvalidPattern, got %v", err)
	}
}

func TestMatchPrecedence(t *testing.T) {
	rt := NewRouter()
	rt.AddRoute("GET", "/users/me", testHandler("literal"))
	rt.AddRoute("GET", "/users/{id:int}", testHandler("int"))
	rt.AddRoute("GET", "/users/{name}", testHandler("param"))
	rt.AddRoute("GET", "/users/*rest", testHandler("wild"))

	tests := []struct {
		path    string
		pattern string
		params  map[string]string
	}{
		// a literal segment always wins over a parameterized route
		{"/users/me", "/users/me", nil},
		// a constrained param wins over an unconstrained one
		{"/users/42", "/users/{id:int}", map[string]string{"id": "42"}},
		{"/users/jane", "/users/{name}", map[string]string{"name": "jane"}},
		// params only match one segment; deeper paths fall to the wildcard
		{"/users/a/b/c", "/users/*rest", map[string]string{"rest": "a/b/c"}},
	}
	for _, test := range tests {
		m, err := rt.Match("GET", test.path)
		if err != nil {
			t.Errorf("path %s: unexpected error %v", test.path, err)
			continue
		}
		if m.Route.Pattern != test.pattern {
			t.Errorf("path %s: expected pattern %s, got %s",
				test.path, test.pattern, m.Route.Pattern)
		}
		for k, v := range test.params {
			if m.Params[k] != v {
				t.Errorf("path %s: expected param %s=%s, got %s",
					test.path, k, v, m.Params[k])
			}
		}
	}
}

func TestMatchBacktracking(t *testing.T) {
	rt := NewRouter()
	// /files/{id:int}/meta and /files/{name}/info diverge below the
	// parameterized branch; a failed subtree must backtrack to siblings
	rt.AddRoute("GET", "/files/{id:int}/meta", testHandler("intmeta"))
	rt.AddRoute("GET", "/files/{name}/info", testHandler("nameinfo"))

	m, err := rt.Match("GET", "/files/37/info")
	if err != nil {
		t.Fatal(err)
	}
	if m.Route.Pattern != "/files/{name}/info" {
		t.Errorf("expected backtracked match, got %s", m.Route.Pattern)
	}
	if m.Params["name"] != "37" {
		t.Errorf("expected name=37, got %s", m.Params["name"])
	}
	if _, ok := m.Params["id"]; ok {
		t.Error("failed branch left a param residue")
	}
}

func TestMatchConstraints(t *testing.T) {
	rt := NewRouter()
	rt.AddRoute("GET", "/objects/{id:uuid}", testHandler("uuid"))
	rt.AddRoute("GET", "/objects/{slug:re:[a-z-]+}", testHandler("slug"))
	rt.AddRoute("GET", "/objects/{other:alpha}", testHandler("alpha"))

	m, err := rt.Match("GET", "/objects/0a1b2c3d-0000-4000-8000-abcdefabcdef")
	if err != nil {
		t.Fatal(err)
	}
	if m.Route.Pattern != "/objects/{id:uuid}" {
		t.Errorf("expected uuid route, got %s", m.Route.Pattern)
	}

	m, err = rt.Match("GET", "/objects/my-slug")
	if err != nil {
		t.Fatal(err)
	}
	if m.Route.Pattern != "/objects/{slug:re:[a-z-]+}" {
		t.Errorf("expected regex route, got %s", m.Route.Pattern)
	}

	if _, err = rt.Match("GET", "/objects/1234"); err != errors.ErrRouteNotFound {
		t.Errorf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestMatchMethodNotAllowed(t *testing.T) {
	rt := NewRouter()
	rt.AddRoute("GET", "/things", testHandler("get"))
	rt.AddRoute("POST", "/things", testHandler("post"))
	rt.AddRoute("GET", "/things/{id}", testHandler("one"))

	m, err := rt.Match("DELETE", "/things")
	if err != errors.ErrMethodNotAllowed {
		t.Fatalf("expected ErrMethodNotAllowed, got %v", err)
	}
	if len(m.Allowed) != 2 || m.Allowed[0] != "GET" || m.Allowed[1] != "POST" {
		t.Errorf("expected allowed [GET POST], got %v", m.Allowed)
	}

	if _, err := rt.Match("DELETE", "/nothing"); err != errors.ErrRouteNotFound {
		t.Errorf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestMatchRootAndTrailingSlash(t *testing.T) {
	rt := NewRouter()
	rt.AddRoute("GET", "/", testHandler("root"))
	rt.AddRoute("GET", "/a/b", testHandler("ab"))

	m, err := rt.Match("GET", "/")
	if err != nil || m.Route.Pattern != "/" {
		t.Errorf("root match failed: %v", err)
	}
	m, err = rt.Match("GET", "/a/b/")
	if err != nil || m.Route.Pattern != "/a/b" {
		t.Errorf("trailing slash match failed: %v", err)
	}
}

func TestRoutes(t *testing.T) {
	rt := NewRouter()
	rt.AddRoute("GET", "/a", testHandler("a"), "users")
	rt.AddRoute("GET", "/b", testHandler("b"))
	routes := rt.Routes()
	if len(routes) != 2 {
		t.Errorf("expected 2 routes, got %d", len(routes))
	}
	if len(routes[0].Tags) != 1 || routes[0].Tags[0] != "users" {
		t.Errorf("expected tag users, got %v", routes[0].Tags)
	}
}
