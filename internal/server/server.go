package server

import (
	"encoding/json"
	"net/http"

	"grouprank/internal/apperrors"
	"grouprank/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Server exposes the rating engine over JSON HTTP. The upstream gateway has
// already authenticated the caller; their uid arrives in the X-User-ID header.
type Server struct {
	groupSvc       *service.GroupService
	reporter       *service.MatchReporter
	revoker        *service.MatchRevoker
	seasonMgr      *service.SeasonManager
	leaderboardSvc *service.LeaderboardService
	logger         zerolog.Logger
}

func New(
	groupSvc *service.GroupService,
	reporter *service.MatchReporter,
	revoker *service.MatchRevoker,
	seasonMgr *service.SeasonManager,
	leaderboardSvc *service.LeaderboardService,
	logger zerolog.Logger,
) *Server {
	return &Server{
		groupSvc:       groupSvc,
		reporter:       reporter,
		revoker:        revoker,
		seasonMgr:      seasonMgr,
		leaderboardSvc: leaderboardSvc,
		logger:         logger,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/groups", s.handleCreateGroup)
	r.Post("/groups/{groupID}/join", s.handleJoinGroup)
	r.Post("/groups/{groupID}/leave", s.handleLeaveGroup)

	r.Post("/matches", s.handleReportMatch)
	r.Delete("/matches/{gameID}", s.handleDeleteMatch)

	r.Post("/groups/{groupID}/seasons", s.handleCreateSeason)
	r.Post("/groups/{groupID}/seasons/{seasonID}/end", s.handleEndSeason)
	r.Post("/groups/{groupID}/seasons/{seasonID}/reset", s.handleResetSeason)

	r.Get("/groups/{groupID}/seasons/{seasonID}/leaderboard", s.handleGetLeaderboard)
	r.Get("/groups/{groupID}/seasons/{seasonID}/players/{uid}/history", s.handleGetPlayerHistory)

	return r
}

func callerUID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

type errorResponse struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

var kindToStatus = map[apperrors.Kind]int{
	apperrors.KindInvalidArgument:    http.StatusBadRequest,
	apperrors.KindPermissionDenied:   http.StatusForbidden,
	apperrors.KindNotFound:           http.StatusNotFound,
	apperrors.KindAlreadyExists:      http.StatusConflict,
	apperrors.KindFailedPrecondition: http.StatusConflict,
	apperrors.KindResourceExhausted:  http.StatusTooManyRequests,
	apperrors.KindInternal:           http.StatusInternalServerError,
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	status, ok := kindToStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.writeJSON(w, status, errorResponse{Kind: kind, Message: apperrors.Message(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidArgument, err, "malformed request body")
	}
	return nil
}
