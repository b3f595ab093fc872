// Package apitest provides an in-memory todo backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/idilsaglam/simpletodo/internal/model"
)

// Server serves /todos from memory. Items are returned in insertion order.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nextID   int
	todos    []model.Todo
	failures map[string]int // method -> status code for the next request
	calls    map[string]int
	headers  []http.Header
}

// NewServer starts a backend seeded with items and closes it on test cleanup.
func NewServer(t testing.TB, seed ...model.Todo) *Server {
	s := &Server{
		nextID:   1,
		failures: map[string]int{},
		calls:    map[string]int{},
	}
	for _, it := range seed {
		s.todos = append(s.todos, it)
		if it.ID >= s.nextID {
			s.nextID = it.ID + 1
		}
	}

	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/todos", s.list).Methods(http.MethodGet)
	r.HandleFunc("/todos", s.create).Methods(http.MethodPost)
	r.HandleFunc("/todos/{id:[0-9]+}", s.update).Methods(http.MethodPut)
	r.HandleFunc("/todos/{id:[0-9]+}", s.delete).Methods(http.MethodDelete)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// FailNext makes the next request with the given method answer with code.
func (s *Server) FailNext(method string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = code
}

// Calls returns how many requests with the given method reached the server.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Todos returns a copy of the stored items.
func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Todo(nil), s.todos...)
}

// LastHeader returns the headers of the most recent request.
func (s *Server) LastHeader() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.headers) == 0 {
		return nil
	}
	return s.headers[len(s.headers)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method]++
		s.headers = append(s.headers, r.Header.Clone())
		code, fail := s.failures[r.Method]
		delete(s.failures, r.Method)
		s.mu.Unlock()
		if fail {
			writeJSON(w, code, map[string]string{"msg": http.StatusText(code)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Todos())
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in model.NewTodo
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Todo == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "todo is required"})
		return
	}
	s.mu.Lock()
	t := model.Todo{ID: s.nextID, Todo: in.Todo, Done: in.Done}
	s.nextID++
	s.todos = append(s.todos, t)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var in model.Todo
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "invalid body"})
		return
	}
	in.ID = id
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos[i] = in
			writeJSON(w, http.StatusOK, in)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"msg": "not found"})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"msg": "not found"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
