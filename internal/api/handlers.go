package api

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/susu3304/warikan/internal/db"
	"github.com/susu3304/warikan/internal/export"
	"github.com/susu3304/warikan/internal/room"
	"github.com/susu3304/warikan/internal/settle"
)

func (a *API) handleUp(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": a.store.IDs()})
}

// room resolves {roomId} and answers the not-found body itself.
func (a *API) room(w http.ResponseWriter, r *http.Request) (*room.Room, bool) {
	rm, err := a.store.Get(mux.Vars(r)["roomId"])
	if err != nil {
		writeFailure(w, http.StatusNotFound, "Room not found")
		return nil, false
	}
	return rm, true
}

func (a *API) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := a.room(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "room": rm.State()})
}

func (a *API) handleSettlement(w http.ResponseWriter, r *http.Request) {
	rm, ok := a.room(w, r)
	if !ok {
		return
	}
	expenses, debts := rm.Ledger()
	writeJSON(w, http.StatusOK, settle.NewPlan(a.store.Roster(), expenses, debts))
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	rm, ok := a.room(w, r)
	if !ok {
		return
	}
	now := a.now()
	expenses, debts := rm.Ledger()

	var buf bytes.Buffer
	if err := export.NewBackup(expenses, debts, now).Encode(&buf); err != nil {
		http.Error(w, "failed to encode backup", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.BackupFilename(now)))
	_, _ = w.Write(buf.Bytes())
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	rm, ok := a.room(w, r)
	if !ok {
		return
	}
	sections, err := export.ParseSections(r.URL.Query().Get("sections"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	now := a.now()
	expenses, debts := rm.Ledger()
	report := export.Report{
		Roster:      a.store.Roster(),
		Expenses:    expenses,
		Debts:       debts,
		GeneratedAt: now,
		Sections:    sections,
	}

	var buf bytes.Buffer
	if _, err := report.WriteTo(&buf); err != nil {
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ReportFilename(now)))
	_, _ = w.Write(buf.Bytes())
}

func (a *API) handleSaveBackup(w http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		writeFailure(w, http.StatusServiceUnavailable, "backup archive is not configured")
		return
	}
	rm, ok := a.room(w, r)
	if !ok {
		return
	}
	expenses, debts := rm.Ledger()
	rec, err := a.archive.Save(r.Context(), rm.ID(), export.NewBackup(expenses, debts, a.now()))
	if err != nil {
		log.Printf("api: failed to save backup room=%s: %v", rm.ID(), err)
		writeFailure(w, http.StatusInternalServerError, "failed to save backup")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) handleListBackups(w http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		writeFailure(w, http.StatusServiceUnavailable, "backup archive is not configured")
		return
	}
	records, err := a.archive.List(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		log.Printf("api: failed to list backups: %v", err)
		writeFailure(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) handleGetBackup(w http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		writeFailure(w, http.StatusServiceUnavailable, "backup archive is not configured")
		return
	}
	rec, err := a.archive.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, db.ErrBackupNotFound) {
		writeFailure(w, http.StatusNotFound, "Backup not found")
		return
	}
	if err != nil {
		log.Printf("api: failed to load backup: %v", err)
		writeFailure(w, http.StatusInternalServerError, "failed to load backup")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.BackupFilename(rec.CreatedAt)))
	_, _ = w.Write(rec.Document)
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.AppName}}</title>
</head>
<body>
<h1>{{.AppName}}</h1>
<p>Connect a client to <code>/ws</code> and join a room.</p>
<ul>
{{range .Rooms}}<li>{{.}}: <a href="/api/room/{{.}}">state</a>, <a href="/api/room/{{.}}/settlement">settlement</a>, <a href="/api/room/{{.}}/report.csv">report</a>, <a href="/api/room/{{.}}/export">backup</a></li>
{{end}}</ul>
</body>
</html>
`))

func (a *API) handleWebInterface(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, struct {
		AppName string
		Rooms   []string
	}{AppName: export.AppName, Rooms: a.store.IDs()})
	if err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
