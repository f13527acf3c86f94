package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
	"go.uber.org/zap"

	"notion2anki/internal/extract"
	"notion2anki/internal/logger"
	"notion2anki/internal/models"
	"notion2anki/internal/services"
)

const maxRequestBody = 1 << 20 // 1 MB

// Importer runs one import pass over the configured source.
type Importer interface {
	Run(ctx context.Context, progress services.ProgressCallback) (*models.ImportRun, error)
}

type Server struct {
	mux       *http.ServeMux
	importer  Importer
	runs      *services.RunService
	cards     *services.CardStore
	extractor extract.Options
	jobs      *JobManager
	log       *zap.Logger
}

func NewServer(
	importer Importer,
	runs *services.RunService,
	cards *services.CardStore,
	extractor extract.Options,
	log *zap.Logger,
) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		importer:  importer,
		runs:      runs,
		cards:     cards,
		extractor: extractor,
		jobs:      NewJobManager(),
		log:       logger.OrNop(log).Named("api"),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/imports", s.handleImports)
	s.mux.HandleFunc("/api/imports/jobs/", s.handleJobStatus)
	s.mux.HandleFunc("/api/imports/", s.handleRun)
	s.mux.HandleFunc("/api/cards", s.handleListCards)
	s.mux.HandleFunc("/api/cards/", s.handleCardActions)
	s.mux.HandleFunc("/api/extract", s.handleExtract)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListRuns(w, r)
	case http.MethodPost:
		s.handleStartImport(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON(&run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	job, created := s.jobs.CreateJob()
	if !created {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "an import is already running",
			"job":   job,
		})
		return
	}

	go s.runImportJob(context.Background(), job.ID)

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) runImportJob(ctx context.Context, jobID string) {
	s.jobs.MarkProcessing(jobID)
	progress := func(step, message string, current, total int) {
		s.jobs.UpdateProgress(jobID, step, message, current, total)
	}

	run, err := s.importer.Run(ctx, progress)
	runID := ""
	if run != nil {
		runID = run.ID
	}
	if err != nil {
		s.log.Error("import job failed", zap.String("job", jobID), zap.Error(err))
		s.jobs.MarkFailed(jobID, runID, err.Error())
		return
	}
	s.jobs.MarkCompleted(jobID, runID, RunSummary{
		Documents:   run.Documents,
		CardsFound:  run.CardsFound,
		CardsAdded:  run.CardsAdded,
		CardsFailed: run.CardsFailed,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/imports/jobs/"), "/")
	if jobID == "" {
		http.NotFound(w, r)
		return
	}

	job, ok := s.jobs.GetJob(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/imports/"), "/")
	if runID == "" || strings.Contains(runID, "/") {
		http.NotFound(w, r)
		return
	}

	run, err := s.runs.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := runJSON(run)
	docs := make([]map[string]any, 0, len(run.Results))
	for _, doc := range run.Results {
		docs = append(docs, map[string]any{
			"documentId":  doc.DocumentID,
			"title":       doc.Title,
			"cardsFound":  doc.CardsFound,
			"cardsAdded":  doc.CardsAdded,
			"cardsFailed": doc.CardsFailed,
			"error":       nullString(doc.Error),
		})
	}
	out["documents"] = docs
	writeJSON(w, http.StatusOK, map[string]any{"run": out})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	limit := 100
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	cards, err := s.cards.ListCards(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	count, err := s.cards.CountCards(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]any, 0, len(cards))
	for _, card := range cards {
		out = append(out, cardJSON(&card))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cards": out,
		"total": count,
	})
}

func (s *Server) handleCardActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/cards/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "review" {
		http.NotFound(w, r)
		return
	}

	cardID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid card id")
		return
	}

	var payload reviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	rating, err := parseRating(payload.Rating)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, err := s.cards.ReviewCard(r.Context(), cardID, rating)
	if err != nil {
		if errors.Is(err, services.ErrCardNotFound) {
			writeError(w, http.StatusNotFound, "card not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"card": cardJSON(card)})
}

type reviewRequest struct {
	Rating string `json:"rating"`
}

type extractRequest struct {
	Text      string `json:"text"`
	FenceOnly *bool  `json:"fenceOnly"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload extractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	opts := s.extractor
	if payload.FenceOnly != nil {
		opts.FenceOnly = *payload.FenceOnly
	}
	cards := extract.Parse(payload.Text, opts)
	if cards == nil {
		cards = []models.Flashcard{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"flashcards": cards})
}

const timeLayout = time.RFC3339

func parseRating(raw string) (fsrs.Rating, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "again":
		return fsrs.Again, nil
	case "hard":
		return fsrs.Hard, nil
	case "good":
		return fsrs.Good, nil
	case "easy":
		return fsrs.Easy, nil
	default:
		return 0, errors.New("unknown rating " + strconv.Quote(raw))
	}
}

func runJSON(run *models.ImportRun) map[string]any {
	return map[string]any{
		"id":          run.ID,
		"source":      run.Source,
		"sink":        run.Sink,
		"status":      run.Status,
		"documents":   run.Documents,
		"cardsFound":  run.CardsFound,
		"cardsAdded":  run.CardsAdded,
		"cardsFailed": run.CardsFailed,
		"error":       nullString(run.Error),
		"startedAt":   run.StartedAt.Format(timeLayout),
		"finishedAt":  nullTimeToString(run.FinishedAt),
	}
}

func cardJSON(card *models.Card) map[string]any {
	return map[string]any{
		"id":        card.ID,
		"deck":      card.Deck,
		"model":     card.Model,
		"front":     card.Front,
		"back":      card.Back,
		"source":    nullString(card.SourceDocID),
		"due":       nullTimeToString(card.Due),
		"state":     card.State,
		"stability": card.Stability,
		"createdAt": card.CreatedAt.Format(timeLayout),
	}
}

func nullTimeToString(t sql.NullTime) *string {
	if t.Valid {
		str := t.Time.Format(timeLayout)
		return &str
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if v.Valid {
		str := v.String
		return &str
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
