package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
	uploadx "github.com/kaiyuanlo/onboarding-copilot/agent/upload"
)

type messageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not resolved")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	session, err := s.resolveSession(r.Context(), user.ID, req.SessionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	out, err := s.processor.HandleMessage(r.Context(), user.ID, session.ID, req.Message)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": session.PublicID,
		"message":    out.Reply,
		"completed":  out.Completed,
		"progress":   out.Progress,
	})
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not resolved")
		return
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(content)) > s.cfg.MaxUploadBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		return
	}

	session, err := s.resolveSession(r.Context(), user.ID, r.FormValue("session_id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	result, err := s.documents.Process(r.Context(), session.ID, uploadx.Document{
		Filename:    filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"filename":              filepath.Base(header.Filename),
		"session_id":            session.PublicID,
		"message":               result.Message,
		"extracted_text_length": result.TextLength,
		"data_updated":          result.DataUpdated,
		"products_added":        result.ProductsAdded,
		"progress":              result.Progress,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not resolved")
		return
	}

	session, record, err := s.processor.StartSession(r.Context(), user.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"session":  session,
		"progress": record.Progress(0),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not resolved")
		return
	}

	sessions, err := s.store.ListSessions(r.Context(), user.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleLatestSession(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not resolved")
		return
	}

	session, err := s.store.LatestActiveSession(r.Context(), user.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"session": session})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not resolved")
		return
	}

	session, err := s.store.SessionByPublicID(r.Context(), user.ID, chi.URLParam(r, "publicID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	messages, err := s.store.ListMessages(r.Context(), session.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": session.PublicID,
		"messages":   messages,
	})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not resolved")
		return
	}

	session, record, products, err := s.loadSessionData(r, user.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":     session.PublicID,
		"progress":       record.Progress(len(products)),
		"missing_fields": record.MissingFields(),
		"company":        record,
		"products":       products,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not resolved")
		return
	}

	_, record, products, err := s.loadSessionData(r, user.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, record.ExportFormat(products))
}

func (s *Server) loadSessionData(r *http.Request, userID int64) (*statex.Session, *statex.Record, []statex.Product, error) {
	session, err := s.store.SessionByPublicID(r.Context(), userID, chi.URLParam(r, "publicID"))
	if err != nil {
		return nil, nil, nil, err
	}
	record, err := s.store.RecordBySession(r.Context(), session.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	products, err := s.store.ListProducts(r.Context(), record.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return session, record, products, nil
}

// resolveSession finds the addressed session, or falls back to the user's
// latest active session, starting a fresh one when none exists. Mirrors how
// the conversational UI behaves on a cold start.
func (s *Server) resolveSession(ctx context.Context, userID int64, publicID string) (*statex.Session, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID != "" {
		return s.store.SessionByPublicID(ctx, userID, publicID)
	}

	session, err := s.store.LatestActiveSession(ctx, userID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, statex.ErrSessionNotFound) {
		return nil, err
	}

	session, _, err = s.processor.StartSession(ctx, userID)
	return session, err
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, statex.ErrSessionNotFound),
		errors.Is(err, statex.ErrRecordNotFound),
		errors.Is(err, statex.ErrProductNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contractx.ErrValidation),
		errors.Is(err, uploadx.ErrUnsupportedFile),
		errors.Is(err, uploadx.ErrEmptyDocument):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contractx.ErrModelInvoke),
		errors.Is(err, contractx.ErrSchemaViolation):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
