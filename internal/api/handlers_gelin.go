package api

import (
	"net/http"
	"regexp"
	"strings"

	"gys/internal/models"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func dateRange(r *http.Request) (string, string, bool) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from != "" && !dateRe.MatchString(from) {
		return "", "", false
	}
	if to != "" && !dateRe.MatchString(to) {
		return "", "", false
	}
	return from, to, true
}

func (s *HTTPServer) handleGelinler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, to, ok := dateRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	gelinler, err := s.store.List(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("list gelinler")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"gelinler": gelinler, "count": len(gelinler)})
}

func (s *HTTPServer) handleGelin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/gelinler/"
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, prefix))
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	g, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("id", id).Msg("get gelin")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// handleUnprocessedFees lists records whose fee was never processed:
// the calendar still shows the X placeholder, or the fee flag is off.
func (s *HTTPServer) handleUnprocessedFees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, to, ok := dateRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	gelinler, err := s.store.List(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("list gelinler")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	unprocessed := make([]*models.Gelin, 0)
	for _, g := range gelinler {
		if g.AnlasilanUcret == models.FeeUnknown || !g.UcretKaydedildi {
			unprocessed = append(unprocessed, g)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"gelinler": unprocessed, "count": len(unprocessed)})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, to, ok := dateRange(r)
	if !ok || from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required as YYYY-MM-DD")
		return
	}

	gelinler, err := s.store.List(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("list gelinler for export")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	path, err := s.exporter.Export(gelinler, from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}
