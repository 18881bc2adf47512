package server

import (
	"net/http"

	"grouprank/internal/domain"

	"github.com/go-chi/chi/v5"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	group, err := s.groupSvc.CreateGroup(r.Context(), callerUID(r), req.DisplayName, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, group)
}

type joinGroupRequest struct {
	DisplayName string `json:"displayName"`
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	var req joinGroupRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	member, err := s.groupSvc.JoinGroup(r.Context(), callerUID(r), req.DisplayName, chi.URLParam(r, "groupID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, member)
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groupSvc.LeaveGroup(r.Context(), callerUID(r), chi.URLParam(r, "groupID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "left group"})
}

func (s *Server) handleReportMatch(w http.ResponseWriter, r *http.Request) {
	var in domain.ReportMatchInput
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.reporter.ReportMatch(r.Context(), callerUID(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"game":         report.Game,
		"participants": report.Participants,
	})
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.revoker.DeleteMatch(r.Context(), callerUID(r), chi.URLParam(r, "gameID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "match deleted and ratings reversed"})
}

type createSeasonRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateSeason(w http.ResponseWriter, r *http.Request) {
	var req createSeasonRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	season, err := s.seasonMgr.CreateSeason(r.Context(), callerUID(r), chi.URLParam(r, "groupID"), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, season)
}

func (s *Server) handleEndSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasonMgr.EndSeason(r.Context(), callerUID(r), chi.URLParam(r, "groupID"), chi.URLParam(r, "seasonID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, season)
}

func (s *Server) handleResetSeason(w http.ResponseWriter, r *http.Request) {
	err := s.seasonMgr.ResetSeasonRatings(r.Context(), callerUID(r), chi.URLParam(r, "groupID"), chi.URLParam(r, "seasonID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "season ratings reset"})
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.leaderboardSvc.GetLeaderboard(r.Context(), callerUID(r),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "seasonID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ratings": ratings})
}

func (s *Server) handleGetPlayerHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.leaderboardSvc.GetPlayerHistory(r.Context(), callerUID(r),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "seasonID"), chi.URLParam(r, "uid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"history": history})
}
