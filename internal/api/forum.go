package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
	"github.com/UkralStul/studyabroad-realtime/internal/dataloader"
	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/moderation"
	"github.com/UkralStul/studyabroad-realtime/internal/poll"
	"github.com/UkralStul/studyabroad-realtime/internal/service"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

// postView - пост с опросом в том виде, в каком его видит вызывающий.
type postView struct {
	*domain.ForumPost
	Poll *poll.View `json:"poll,omitempty"`
}

func (s *Server) postViews(r *http.Request, viewer auth.Principal, posts []*domain.ForumPost) ([]postView, error) {
	var withPoll []string
	for _, p := range posts {
		if p.HasPoll() {
			withPoll = append(withPoll, p.ID)
		}
	}

	votes := map[string][]*domain.PollVote{}
	if len(withPoll) > 0 {
		var err error
		if loaders := dataloader.For(r.Context()); loaders != nil {
			votes, err = loaders.PollVotes(r.Context(), withPoll)
		} else {
			votes, err = s.store.GetVotesByPostIDs(r.Context(), withPoll)
		}
		if err != nil {
			return nil, err
		}
	}

	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, postView{ForumPost: p, Poll: poll.Summarize(p, votes[p.ID], viewer)})
	}
	return out, nil
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var in service.CreatePostInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	post, err := s.forum.CreatePost(r.Context(), principalFrom(r.Context()).UserID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	viewer := principalFrom(r.Context())
	posts, err := s.forum.ListPosts(r.Context(), viewer, storage.ListPostsArgs{
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views, err := s.postViews(r, viewer, posts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	viewer := principalFrom(r.Context())
	post, err := s.forum.GetPost(r.Context(), viewer, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views, err := s.postViews(r, viewer, []*domain.ForumPost{post})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views[0])
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	var in service.UpdatePostInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	post, err := s.forum.UpdatePost(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request) {
	res, err := s.forum.ToggleLike(r.Context(), chi.URLParam(r, "id"), principalFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Content string `json:"content"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	comment, err := s.forum.AddComment(r.Context(), chi.URLParam(r, "id"), principalFrom(r.Context()).UserID, in.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.forum.ListComments(r.Context(), principalFrom(r.Context()), chi.URLParam(r, "id"), pagination(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) reportPost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason  domain.ReportReason `json:"reason"`
		Details string              `json:"details"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.moderation.Report(r.Context(), moderation.ReportInput{
		PostID:     chi.URLParam(r, "id"),
		ReporterID: principalFrom(r.Context()).UserID,
		Reason:     in.Reason,
		Details:    in.Details,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) vote(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OptionID string `json:"optionId"`
	}
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	viewer := principalFrom(r.Context())
	res, err := s.polls.Vote(r.Context(), chi.URLParam(r, "id"), viewer.UserID, in.OptionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poll.ViewFor(res, viewer))
}

func (s *Server) pollResults(w http.ResponseWriter, r *http.Request) {
	view, err := s.polls.Results(r.Context(), chi.URLParam(r, "id"), principalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// === Admin ===

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.moderation.ListReports(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) restorePost(w http.ResponseWriter, r *http.Request) {
	post, err := s.moderation.Restore(r.Context(), chi.URLParam(r, "id"), principalFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) moderatePost(w http.ResponseWriter, r *http.Request) {
	post, err := s.moderation.PermanentlyModerate(r.Context(), chi.URLParam(r, "id"), principalFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
