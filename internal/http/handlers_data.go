package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"smartexpense/internal/backup"
	"smartexpense/internal/export"
	"smartexpense/internal/storage"
)

const defaultHistoryLimit = 20

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Ledger.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Buffer so a write failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := s.deps.Exporter.CSV(r.Context(), &buf, txs); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Exporter.SheetsEnabled() {
		writeError(w, r, errSheetsDisabled)
		return
	}
	txs, err := s.deps.Ledger.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := s.deps.Exporter.ToSheets(r.Context(), txs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"range": ref, "rows": len(txs)})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Records.ExportSnapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	target, err := backup.ParseTarget(p.Get("target"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := backup.Request{Target: target, Email: p.Get("email")}
	if a, ok := s.deps.Session.Current(); ok {
		req.RequestedBy = a.Username
	}
	res, err := s.deps.Backups.Run(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if target == backup.TargetQueue {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (s *Server) handleBackupHistory(w http.ResponseWriter, r *http.Request) {
	entries := []storage.BackupEntry{}
	if s.deps.History == nil {
		writeJSON(w, http.StatusOK, entries)
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, fmt.Errorf("%w: invalid limit %q", errBadRequest, v))
			return
		}
		limit = n
	}
	found, err := s.deps.History.RecentBackups(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if found != nil {
		entries = found
	}
	writeJSON(w, http.StatusOK, entries)
}
