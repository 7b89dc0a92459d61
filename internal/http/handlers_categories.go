package http

import (
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const msgCategoryDeleted = "Category deleted successfully."

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, owner core.UserID) {
	names, err := s.deps.Categories.List(r.Context(), owner)
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request, owner core.UserID) {
	var req CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}

	c, err := s.deps.Categories.Add(r.Context(), owner, req.Name)
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, CategoryRequest{Name: c.Name})
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request, owner core.UserID) {
	oldName := pathValue(r, "name")
	var req CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, applog.OpUpdate)
		return
	}

	c, err := s.deps.Categories.Rename(r.Context(), owner, oldName, req.Name)
	if err != nil {
		writeError(w, r, err, applog.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, renameResponse{OldName: oldName, NewName: c.Name})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request, owner core.UserID) {
	if err := s.deps.Categories.Remove(r.Context(), owner, pathValue(r, "name")); err != nil {
		writeError(w, r, err, applog.OpDelete)
		return
	}
	writeMessage(w, http.StatusOK, msgCategoryDeleted)
}
