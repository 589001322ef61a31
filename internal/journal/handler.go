package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/stridecoach/stridecoach/internal/auth"
	"github.com/stridecoach/stridecoach/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=journal_mocks_test.go -package=journal_test

type journalRepo interface {
	Add(ctx context.Context, entry Entry) (*Entry, error)
	Update(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, id, userID int) error
	List(ctx context.Context, userID int) ([]Entry, error)
}

type Handler struct {
	repo journalRepo
}

func NewHandler(repo journalRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Errorf("add new journal entry failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	title := r.Form.Get("title")
	content := r.Form.Get("content")
	if content == "" {
		http.Error(w, "error, content empty", http.StatusBadRequest)
		return
	}

	entry := Entry{
		UserID:    auth.MustUserID(r.Context()),
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	}

	added, err := handler.repo.Add(r.Context(), entry)
	if err != nil {
		log.Errorf("failed to add new journal entry [%s]: %s", entry.Title, err)
		http.Error(w, "error, failed to add new journal entry", http.StatusInternalServerError)
		return
	}

	log.Debugf("new journal entry added: [%s]: %d", added.Title, added.ID)
	pkg.WriteResponse(w, "", fmt.Sprintf("added:%d", added.ID), http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "PUT, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Errorf("update journal entry failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	title := r.Form.Get("title")
	content := r.Form.Get("content")
	if content == "" {
		http.Error(w, "error, content empty", http.StatusBadRequest)
		return
	}
	idStr := r.Form.Get("id")
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id invalid", http.StatusBadRequest)
		return
	}

	entry := &Entry{
		ID:      id,
		UserID:  auth.MustUserID(r.Context()),
		Title:   title,
		Content: content,
		// CreatedAt: not updateable
	}

	if err := handler.repo.Update(r.Context(), entry); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update journal entry [%d]: %s", entry.ID, err)
		http.Error(w, "error, failed to update journal entry", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", fmt.Sprintf("updated:%d", entry.ID), http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(r.Context(), id, auth.MustUserID(r.Context())); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete journal entry %d: %s", id, err)
		http.Error(w, "error, entry not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, "", fmt.Sprintf("deleted:%d", id), http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := handler.repo.List(r.Context(), auth.MustUserID(r.Context()))
	if err != nil {
		log.Errorf("list journal entries error: %s", err)
		http.Error(w, "failed to get journal entries", http.StatusInternalServerError)
		return
	}

	entriesJson, err := json.Marshal(entries)
	if err != nil {
		log.Errorf("marshal journal entries error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resJson := fmt.Sprintf(`{"entries": %s, "total": %d}`, entriesJson, len(entries))
	pkg.WriteJSONResponseOK(w, resJson)
}
