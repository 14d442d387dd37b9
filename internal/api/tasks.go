package api

import (
	"net/http"

	"taskverse/pkg/task"
)

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	f := task.Filter{Status: task.Status(r.URL.Query().Get("status"))}
	tasks, err := s.tasks.List(r.Context(), f)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, tasks)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.tasks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var in task.CreateTask
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	t, err := s.tasks.Create(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, t)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	var patch task.UpdateTask
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	t, err := s.tasks.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
