// Package testing provides an in-process fake of the GitHub endpoints the
// upscaler talks to, for use with go-github clients in tests.
package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
)

// Comment is a comment recorded by the fake server.
type Comment struct {
	Owner  string
	Repo   string
	Number int
	Body   string
	Auth   string
}

// Server is a fake GitHub REST API plus a static image host:
//   - GET  /repos/{owner}/{repo}/issues/{number}
//   - POST /repos/{owner}/{repo}/issues/{number}/comments
//   - GET  /repos/{owner}/{repo}/installation
//   - POST /app/installations/{id}/access_tokens
//   - GET  /images/{name}
//
// The returned server must be closed by the caller.
type Server struct {
	*httptest.Server

	mu                sync.Mutex
	issues            map[int]string
	images            map[string][]byte
	imageStatus       int
	commentStatus     int
	comments          []Comment
	installationToken string
}

// NewServer starts the fake API.
func NewServer() *Server {
	s := &Server{
		issues:            make(map[int]string),
		images:            make(map[string][]byte),
		installationToken: "ghs_installation",
	}

	r := mux.NewRouter()
	r.HandleFunc("/repos/{owner}/{repo}/issues/{number:[0-9]+}", s.getIssue).Methods(http.MethodGet)
	r.HandleFunc("/repos/{owner}/{repo}/issues/{number:[0-9]+}/comments", s.createComment).Methods(http.MethodPost)
	r.HandleFunc("/repos/{owner}/{repo}/installation", s.getInstallation).Methods(http.MethodGet)
	r.HandleFunc("/app/installations/{id:[0-9]+}/access_tokens", s.createAccessToken).Methods(http.MethodPost)
	r.HandleFunc("/images/{name}", s.getImage).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	return s
}

// SetIssueBody registers issue number with body.
func (s *Server) SetIssueBody(number int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues[number] = body
}

// SetImage serves data at /images/{name} and returns its URL.
func (s *Server) SetImage(name string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = data
	return s.URL + "/images/" + name
}

// ImageURL returns the URL an image with name would be served at.
func (s *Server) ImageURL(name string) string {
	return s.URL + "/images/" + name
}

// FailImages makes every image request answer with status.
func (s *Server) FailImages(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageStatus = status
}

// FailComments makes every comment request answer with status.
func (s *Server) FailComments(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commentStatus = status
}

// SetInstallationToken sets the token handed out by the App endpoints.
func (s *Server) SetInstallationToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installationToken = token
}

// Comments returns a copy of the comments posted so far.
func (s *Server) Comments() []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Comment, len(s.comments))
	copy(out, s.comments)
	return out
}

func (s *Server) getIssue(w http.ResponseWriter, r *http.Request) {
	number, _ := strconv.Atoi(mux.Vars(r)["number"])

	s.mu.Lock()
	body, ok := s.issues[number]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"number": number, "body": body})
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	number, _ := strconv.Atoi(vars["number"])

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	status := s.commentStatus
	if status == 0 {
		s.comments = append(s.comments, Comment{
			Owner:  vars["owner"],
			Repo:   vars["repo"],
			Number: number,
			Body:   req.Body,
			Auth:   r.Header.Get("Authorization"),
		})
	}
	id := len(s.comments)
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "body": req.Body})
}

func (s *Server) getInstallation(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": 4242})
}

func (s *Server) createAccessToken(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["id"] != "4242" {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	s.mu.Lock()
	token := s.installationToken
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"expires_at": "2030-01-01T00:00:00Z",
	})
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.imageStatus
	data, ok := s.images[mux.Vars(r)["name"]]
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
