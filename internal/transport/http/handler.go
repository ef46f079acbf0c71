package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// Handler exposes the core services over REST. It owns the outcome-to-status
// mapping (not-found 404, invalid input 400, conflict 409); the services know
// nothing about HTTP.
type Handler struct {
	sessions   *app.SessionService
	enrollment *app.EnrollmentService
	scoring    *app.ScoringService
	catalog    *app.CatalogService
}

func NewHandler(sessions *app.SessionService, enrollment *app.EnrollmentService, scoring *app.ScoringService, catalog *app.CatalogService) *Handler {
	return &Handler{
		sessions:   sessions,
		enrollment: enrollment,
		scoring:    scoring,
		catalog:    catalog,
	}
}

// Register wires all routes into mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /users", h.createUser)
	mux.HandleFunc("GET /users", h.listUsers)
	mux.HandleFunc("GET /users/{id}", h.getUser)
	mux.HandleFunc("DELETE /users/{id}", h.deleteUser)

	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("GET /quizzes", h.listQuizzes)
	mux.HandleFunc("GET /quizzes/{id}/questions", h.listQuestions)

	mux.HandleFunc("POST /questions", h.createQuestion)
	mux.HandleFunc("GET /questions/{id}", h.getQuestion)
	mux.HandleFunc("DELETE /questions/{id}", h.deleteQuestion)
	mux.HandleFunc("GET /questions/{id}/options", h.listAnswerOptions)
	mux.HandleFunc("POST /answer-options", h.createAnswerOption)

	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/{id}", h.getSession)
	mux.HandleFunc("GET /sessions/by-code/{code}", h.getSessionByCode)
	mux.HandleFunc("PATCH /sessions/{id}/status", h.updateSessionStatus)
	mux.HandleFunc("GET /sessions/{id}/players", h.listSessionPlayers)

	mux.HandleFunc("POST /session-players", h.addSessionPlayer)
	mux.HandleFunc("POST /session-answers", h.submitAnswer)
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError maps the domain error taxonomy to status codes. Unclassified
// errors are server faults and never leak internal detail.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: err.Error()})
	case domain.IsInvalidInput(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
	case domain.IsConflict(err):
		writeJSON(w, http.StatusConflict, errorResponse{Detail: err.Error()})
	default:
		log.Printf("store failure: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid " + name})
		return 0, false
	}
	return id, true
}

type idResponse struct {
	ID int64 `json:"id"`
}

// ----- users -----

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.catalog.CreateUser(r.Context(), req.Username, req.Email, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: user.ID})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.catalog.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.catalog.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----- quizzes -----

type createQuizRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	CreatorID   int64  `json:"creator_id"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, err := h.catalog.CreateQuiz(r.Context(), domain.Quiz{
		Title:       req.Title,
		Description: req.Description,
		Visibility:  req.Visibility,
		CreatorID:   req.CreatorID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: quiz.ID})
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.catalog.ListQuizzes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	questions, err := h.catalog.ListQuestions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// ----- questions and options -----

type createQuestionRequest struct {
	QuizID           int64  `json:"quiz_id"`
	QuestionType     string `json:"question_type"`
	TimeLimitSeconds *int   `json:"time_limit_seconds"`
	Points           *int   `json:"points"`
	SortOrder        *int   `json:"sort_order"`
	QuestionText     string `json:"question_text"`
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if !decode(w, r, &req) {
		return
	}
	question, err := h.catalog.CreateQuestion(r.Context(), domain.Question{
		QuizID:           req.QuizID,
		QuestionType:     req.QuestionType,
		TimeLimitSeconds: req.TimeLimitSeconds,
		Points:           req.Points,
		SortOrder:        req.SortOrder,
		QuestionText:     req.QuestionText,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: question.ID})
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	question, err := h.catalog.GetQuestion(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createAnswerOptionRequest struct {
	QuestionID int64  `json:"question_id"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
	SortOrder  *int   `json:"sort_order"`
}

func (h *Handler) createAnswerOption(w http.ResponseWriter, r *http.Request) {
	var req createAnswerOptionRequest
	if !decode(w, r, &req) {
		return
	}
	option, err := h.catalog.CreateAnswerOption(r.Context(), domain.AnswerOption{
		QuestionID: req.QuestionID,
		OptionText: req.OptionText,
		IsCorrect:  req.IsCorrect,
		SortOrder:  req.SortOrder,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: option.ID})
}

func (h *Handler) listAnswerOptions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	options, err := h.catalog.ListAnswerOptions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

// ----- sessions -----

type createSessionRequest struct {
	QuizID   int64  `json:"quiz_id"`
	HostID   int64  `json:"host_id"`
	JoinCode string `json:"join_code"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.sessions.CreateSession(r.Context(), req.QuizID, req.HostID, req.JoinCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	session, err := h.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) getSessionByCode(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.GetSessionByJoinCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateSessionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.sessions.UpdateStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) listSessionPlayers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	players, err := h.enrollment.ListPlayers(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// ----- players and answers -----

type addPlayerRequest struct {
	SessionID int64  `json:"session_id"`
	Nickname  string `json:"nickname"`
	UserID    *int64 `json:"user_id"`
}

func (h *Handler) addSessionPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	if !decode(w, r, &req) {
		return
	}
	player, err := h.enrollment.AddPlayer(r.Context(), req.SessionID, req.Nickname, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

type submitAnswerRequest struct {
	SessionPlayerID int64 `json:"session_player_id"`
	QuestionID      int64 `json:"question_id"`
	AnswerOptionID  int64 `json:"answer_option_id"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if !decode(w, r, &req) {
		return
	}
	answer, err := h.scoring.SubmitAnswer(r.Context(), req.SessionPlayerID, req.QuestionID, req.AnswerOptionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}
