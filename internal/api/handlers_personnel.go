package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gys/internal/database"
	"gys/internal/models"
)

func (s *HTTPServer) handlePersonnelCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		list, err := s.personnel.ListPersonnel(r.Context(), activeOnly)
		if err != nil {
			s.logger.Error().Err(err).Msg("list personnel")
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"personnel": list, "count": len(list)})

	case http.MethodPost:
		var p models.Personnel
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(p.Ad) == "" {
			writeError(w, http.StatusBadRequest, "ad is required")
			return
		}
		p.Aktif = true
		if err := s.personnel.CreatePersonnel(r.Context(), &p); err != nil {
			s.logger.Error().Err(err).Msg("create personnel")
			writeError(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusCreated, p)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handlePersonnelItem(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/personnel/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	if id, found := strings.CutSuffix(rest, "/attendance"); found {
		s.handleAttendanceList(w, r, id)
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid personnel id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.personnel.GetPersonnel(r.Context(), id)
		if err != nil {
			s.logger.Error().Err(err).Int64("id", id).Msg("get personnel")
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if p == nil {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodPut:
		var p models.Personnel
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		p.ID = id
		if err := s.personnel.UpdatePersonnel(r.Context(), &p); err != nil {
			writeError(w, http.StatusNotFound, "update failed")
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodDelete:
		if err := s.personnel.DeactivatePersonnel(r.Context(), id); err != nil {
			writeError(w, http.StatusNotFound, "deactivate failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleAttendanceList(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := strconv.ParseInt(strings.TrimSuffix(rawID, "/"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid personnel id")
		return
	}

	from, to := time.Now().AddDate(0, -1, 0), time.Now()
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		to = to.AddDate(0, 0, 1)
	}

	recs, err := s.personnel.ListAttendance(r.Context(), id, from, to)
	if err != nil {
		s.logger.Error().Err(err).Int64("personnel_id", id).Msg("list attendance")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attendance": recs, "count": len(recs)})
}

func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type request struct {
		PersonnelID int64  `json:"personnel_id"`
		Direction   string `json:"direction"`
		Nonce       string `json:"nonce"`
	}

	var body request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.PersonnelID == 0 || body.Nonce == "" {
		writeError(w, http.StatusBadRequest, "personnel_id and nonce are required")
		return
	}
	if body.Direction != models.DirectionIn && body.Direction != models.DirectionOut {
		writeError(w, http.StatusBadRequest, "direction must be giris or cikis")
		return
	}

	p, err := s.personnel.GetPersonnel(r.Context(), body.PersonnelID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if p == nil || !p.Aktif {
		writeError(w, http.StatusNotFound, "personnel not found or inactive")
		return
	}

	rec := &models.AttendanceRecord{
		PersonnelID: body.PersonnelID,
		Direction:   body.Direction,
		Nonce:       body.Nonce,
	}
	err = s.personnel.CreateAttendance(r.Context(), rec)
	if errors.Is(err, database.ErrDuplicateCheckIn) {
		writeError(w, http.StatusConflict, "check-in already recorded")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("record attendance")
		writeError(w, http.StatusInternalServerError, "record failed")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}
