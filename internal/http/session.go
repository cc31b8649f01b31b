package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/thedevsaddam/govalidator"

	"ely.by/yggrelay/internal/yggdrasil"
)

type YggdrasilClient interface {
	QueryUUIDs(ctx context.Context, names []string) map[string]uuid.UUID
	QueryProfile(ctx context.Context, id uuid.UUID, withSignature bool) *yggdrasil.Profile
	HasJoined(ctx context.Context, username string, serverId string) *yggdrasil.Profile
}

// Session serves the session server endpoints on top of the YggdrasilClient.
// Requests it can't answer are passed to the Fallback handler.
type Session struct {
	YggdrasilClient
	// Fallback receives declined requests. When nil, they are answered with 204 No Content
	Fallback http.Handler
	// Hosts restricts the intercepted requests by the Host header. Empty means any host
	Hosts []string
}

func (s *Session) Handler() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/session/minecraft/hasJoined", s.hasJoinedHandler).Methods(http.MethodGet)
	router.HandleFunc("/session/minecraft/profile/{uuid}", s.profileHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/profiles/minecraft", s.bulkUuidsHandler).Methods(http.MethodPost)
	router.HandleFunc("/profiles/minecraft", s.bulkUuidsHandler).Methods(http.MethodPost)

	return router
}

func (s *Session) hasJoinedHandler(resp http.ResponseWriter, req *http.Request) {
	if !s.accepts(req) {
		s.decline(resp, req)
		return
	}

	// Only absent parameters make the request unanswerable, empty values are passed as is
	query := req.URL.Query()
	if !query.Has("username") || !query.Has("serverId") {
		s.decline(resp, req)
		return
	}

	profile := s.HasJoined(req.Context(), query.Get("username"), query.Get("serverId"))
	if profile == nil {
		s.decline(resp, req)
		return
	}

	s.writeProfile(resp, profile, true)
}

func (s *Session) profileHandler(resp http.ResponseWriter, req *http.Request) {
	if !s.accepts(req) {
		s.decline(resp, req)
		return
	}

	id, err := yggdrasil.FromUnsigned(mux.Vars(req)["uuid"])
	if err != nil {
		apiIllegalArgument(resp, "Invalid UUID string: "+mux.Vars(req)["uuid"])
		return
	}

	validator := govalidator.New(govalidator.Options{
		Request: req,
		Rules: govalidator.MapData{
			"unsigned": {"in:true,false"},
		},
		RequiredDefault: false,
	})
	if errs := validator.Validate(); len(errs) != 0 {
		apiIllegalArgument(resp, "Invalid unsigned parameter: "+req.URL.Query().Get("unsigned"))
		return
	}

	withSignature := req.URL.Query().Get("unsigned") == "false"
	profile := s.QueryProfile(req.Context(), id, withSignature)
	if profile == nil {
		s.decline(resp, req)
		return
	}

	s.writeProfile(resp, profile, withSignature)
}

type profileInfoResponse struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

func (s *Session) bulkUuidsHandler(resp http.ResponseWriter, req *http.Request) {
	if !s.accepts(req) {
		s.decline(resp, req)
		return
	}

	var names []string
	if err := json.NewDecoder(req.Body).Decode(&names); err != nil {
		apiIllegalArgument(resp, "The body must be a JSON array of profile names")
		return
	}

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			apiIllegalArgument(resp, "profileName can not be null or empty.")
			return
		}
	}

	resolved := s.QueryUUIDs(req.Context(), names)
	byLowercase := make(map[string]string, len(resolved))
	for name := range resolved {
		byLowercase[strings.ToLower(name)] = name
	}

	result := []*profileInfoResponse{}
	for _, name := range names {
		key := strings.ToLower(name)
		resolvedName, ok := byLowercase[key]
		if !ok {
			continue
		}

		// Duplicates are reported once
		delete(byLowercase, key)
		result = append(result, &profileInfoResponse{
			Id:   yggdrasil.ToUnsigned(resolved[resolvedName]),
			Name: resolvedName,
		})
	}

	body, _ := json.Marshal(result)
	apiSuccess(resp, body)
}

func (s *Session) writeProfile(resp http.ResponseWriter, profile *yggdrasil.Profile, withSignature bool) {
	body, err := yggdrasil.SerializeProfile(profile, withSignature)
	if err != nil {
		apiServerError(resp)
		return
	}

	apiSuccess(resp, body)
}

func (s *Session) accepts(req *http.Request) bool {
	if len(s.Hosts) == 0 {
		return true
	}

	host := req.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	for _, allowed := range s.Hosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}

	return false
}

func (s *Session) decline(resp http.ResponseWriter, req *http.Request) {
	if s.Fallback == nil {
		NoContentHandler(resp, req)
		return
	}

	s.Fallback.ServeHTTP(resp, req)
}
