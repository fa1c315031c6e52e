// Copyright 2026 R5Valkyrie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mgmtapi exposes the external HTTP surface of the master server:
// registration, the public listing query, and the hidden-owner self paths.
package mgmtapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/r5valkyrie/master-server-sub000/master/registration"
	"github.com/r5valkyrie/master-server-sub000/master/registry"
	"github.com/r5valkyrie/master-server-sub000/pkg/log"
)

// Registrar drives verification-backed registration.
type Registrar interface {
	Register(ctx context.Context, req registration.Request) (registration.Response, error)
}

// Store is the read/delist view of the registry the API needs.
type Store interface {
	GetAll(ctx context.Context, includeHidden bool) ([]registry.Listing, error)
	GetByEndpoint(ctx context.Context, endpoint netip.AddrPort) (registry.Listing, bool, error)
	GetByToken(ctx context.Context, token string) (registry.Listing, bool, error)
	Delete(ctx context.Context, endpoint netip.AddrPort) error
}

// Server implements the master server HTTP API.
type Server struct {
	Registrar Registrar
	Store     Store
	// Limiter is a global request limiter; nil disables limiting.
	Limiter *rate.Limiter
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Router builds the chi router with all routes and middlewares attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(s.rateLimit)
	r.Post("/servers/register", s.register)
	r.Get("/servers", s.list)
	r.Get("/servers/self", s.self)
	r.Delete("/servers/self", s.delist)
	if s.MetricsHandler != nil {
		r.Method("GET", "/metrics", s.MetricsHandler)
	}
	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Limiter != nil && !s.Limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalid, "malformed request body")
		return
	}
	ip, err := clientIP(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalid, "cannot determine client address")
		return
	}
	resp, err := s.Registrar.Register(r.Context(), body.toRequest(ip))
	switch {
	case errors.Is(err, registration.ErrInvalid):
		writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
	case errors.Is(err, registration.ErrVerifyTimeout):
		// Distinct from a plain rejection so operators can tell an
		// unreachable endpoint from a bad request.
		writeError(w, http.StatusGatewayTimeout, codeVerifyTimeout, err.Error())
	case err != nil:
		log.FromCtx(r.Context()).Error("Registration failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, codeRegistryDown, "registry unavailable")
	default:
		writeJSON(w, http.StatusOK, registerResponse{
			Success: true,
			IP:      resp.Endpoint.Addr().String(),
			Port:    int(resp.Endpoint.Port()),
			Token:   resp.Token,
		})
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	listings, err := s.Store.GetAll(r.Context(), false)
	if err != nil {
		// Reads degrade to an empty view rather than failing the caller.
		log.FromCtx(r.Context()).Error("Listing query degraded", "err", err)
		listings = nil
	}
	legacy := r.URL.Query().Get("legacy") == "1"
	if legacy {
		views := make([]legacyListingView, 0, len(listings))
		for _, l := range listings {
			views = append(views, newLegacyListingView(l))
		}
		writeJSON(w, http.StatusOK, views)
		return
	}
	views := make([]listingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, newListingView(l))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) self(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, codeInvalid, "token is required")
		return
	}
	l, ok, err := s.Store.GetByToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeRegistryDown, "registry unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "no listing for token")
		return
	}
	writeJSON(w, http.StatusOK, newListingView(l))
}

func (s *Server) delist(w http.ResponseWriter, r *http.Request) {
	port, err := strconv.Atoi(r.URL.Query().Get("port"))
	if err != nil || port < 1 || port > 65535 {
		writeError(w, http.StatusBadRequest, codeInvalid, "port is required")
		return
	}
	ip, err := clientIP(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalid, "cannot determine client address")
		return
	}
	endpoint := registry.EndpointOf(ip, uint16(port))
	l, ok, err := s.Store.GetByEndpoint(r.Context(), endpoint)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeRegistryDown, "registry unavailable")
		return
	}
	// Only the caller's own endpoint can be delisted; hidden listings
	// additionally require the owner token.
	if ok && l.Hidden && l.Token != r.URL.Query().Get("token") {
		writeError(w, http.StatusNotFound, codeNotFound, "no listing for endpoint")
		return
	}
	if ok {
		if err := s.Store.Delete(r.Context(), endpoint); err != nil {
			writeError(w, http.StatusServiceUnavailable, codeRegistryDown, "registry unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// clientIP resolves the registering endpoint's address from the transport.
// The declared port is self-reported, the address never is.
func clientIP(r *http.Request) (netip.Addr, error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return netip.Addr{}, err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, err
	}
	return addr.Unmap(), nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Success: false,
		Error:   errorBody{Code: code, Message: message},
	})
}
