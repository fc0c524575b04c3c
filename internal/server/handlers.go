package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"dropzone/internal/blobstore"
	"dropzone/internal/session"
	"dropzone/internal/upload"
)

const sessionCookie = "dz_session"

// uploadResp is the JSON response for an upload batch: the session the
// files landed in, the stored items, and any per-file failures.
type uploadResp struct {
	Session   string         `json:"session"`
	Succeeded []session.Item `json:"succeeded"`
	Failed    []fileFailure  `json:"failed"`
}

type fileFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// rootHandler resolves the caller's session from the cookie (minting a
// fresh one when absent or malformed) and redirects to its page.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	var supplied string
	if c, err := r.Cookie(sessionCookie); err == nil {
		supplied = c.Value
	}
	id := s.cfg.Manager.Resolve(supplied)
	if string(id) != supplied {
		s.setSessionCookie(w, id)
	}
	// First resolution of an unseen identifier creates the session, so
	// an empty session still carries its own expiry clock.
	s.cfg.Registry.EnsureSession(id)
	http.Redirect(w, r, "/s/"+string(id), http.StatusSeeOther)
}

// sessionPageHandler renders the listing for a session. A malformed
// token in the path is treated as "no token": the client is bounced to
// the root handler to get a fresh session. Unknown and empty sessions
// both render as an empty page; the JSON form keeps them distinct.
func (s *Server) sessionPageHandler(w http.ResponseWriter, r *http.Request) {
	sid := r.PathValue("sid")
	if !session.TokenPattern.MatchString(sid) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	items, err := s.cfg.Registry.ListItems(session.ID(sid))

	if wantsJSON(r) {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session": sid,
			"items":   items,
		})
		return
	}

	// HTML folds "no session" into "no files to show".
	s.renderSessionPage(w, session.ID(sid), items)
}

// uploadHandler accepts a multipart batch for a session. Files are
// uploaded independently; the response reports successes and failures
// side by side. 413 is reserved for batches where every file was over
// the size ceiling, 502 for batches where the backend failed them all.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	id := s.cfg.Manager.Resolve(r.PathValue("sid"))
	if string(id) != r.PathValue("sid") {
		s.setSessionCookie(w, id)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "bad multipart", http.StatusBadRequest)
		return
	}

	var files []upload.IncomingFile
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}

		// Read at most one byte past the ceiling; the coordinator
		// rejects the file without the rest of the payload ever
		// being buffered or sent to the backend.
		limit := int64(1 << 62)
		if s.cfg.MaxUploadBytes > 0 {
			limit = s.cfg.MaxUploadBytes + 1
		}
		data, err := io.ReadAll(io.LimitReader(part, limit))
		_ = part.Close()
		if err != nil {
			http.Error(w, "read upload", http.StatusBadRequest)
			return
		}

		files = append(files, upload.IncomingFile{
			Name:        filepath.Base(part.FileName()),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := s.cfg.Coordinator.Store(r.Context(), id, files)
	if err != nil {
		if errors.Is(err, upload.ErrNoFiles) {
			http.Error(w, "no files supplied", http.StatusBadRequest)
			return
		}
		rid := RequestIDFromContext(r.Context())
		log.Error().Err(err).Str("rid", rid).Msg("upload batch failed")
		http.Error(w, "upload failed", http.StatusBadGateway)
		return
	}

	if wantsHTML(r) {
		http.Redirect(w, r, "/s/"+string(id), http.StatusSeeOther)
		return
	}

	status := http.StatusOK
	if len(res.Succeeded) == 0 {
		status = http.StatusBadGateway
		if allTooLarge(res.Failed) {
			status = http.StatusRequestEntityTooLarge
		}
	}

	resp := uploadResp{Session: string(id), Succeeded: res.Succeeded, Failed: []fileFailure{}}
	if resp.Succeeded == nil {
		resp.Succeeded = []session.Item{}
	}
	for _, f := range res.Failed {
		resp.Failed = append(resp.Failed, fileFailure{Name: f.Name, Reason: failureReason(f.Err)})
	}
	writeJSON(w, status, resp)
}

// downloadHandler streams one stored blob back to the client.
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	sid := r.PathValue("sid")
	if !session.TokenPattern.MatchString(sid) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	items, err := s.cfg.Registry.ListItems(session.ID(sid))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	itemID := r.PathValue("id")
	var item *session.Item
	for i := range items {
		if items[i].ID == itemID {
			item = &items[i]
			break
		}
	}
	if item == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	rc, err := s.cfg.Blobs.Open(r.Context(), item.Locator)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		rid := RequestIDFromContext(r.Context())
		log.Error().Err(err).Str("rid", rid).Str("locator", item.Locator).Msg("open blob failed")
		http.Error(w, "storage error", http.StatusBadGateway)
		return
	}
	defer func() { _ = rc.Close() }()

	ct := mime.TypeByExtension(filepath.Ext(item.DisplayName))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.FormatInt(item.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", item.DisplayName))
	_, _ = io.Copy(w, rc)
}

// sweepHandler triggers one eviction pass on demand and reports what
// it removed. The timer-driven sweeper uses the same code path.
func (s *Server) sweepHandler(w http.ResponseWriter, r *http.Request) {
	removed := s.cfg.Sweeper.SweepOnce(r.Context(), time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]int{"removed": len(removed)})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	sessions, items := s.cfg.Registry.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": sessions,
		"items":    items,
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id session.ID) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    string(id),
		Path:     "/",
		MaxAge:   int(s.cfg.TTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func failureReason(err error) string {
	if errors.Is(err, upload.ErrPayloadTooLarge) {
		return "payload too large"
	}
	return "storage backend failure"
}

func allTooLarge(failed []upload.FileError) bool {
	for _, f := range failed {
		if !errors.Is(f.Err, upload.ErrPayloadTooLarge) {
			return false
		}
	}
	return len(failed) > 0
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
