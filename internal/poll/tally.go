// Package poll подсчитывает голоса опросов и решает, что видит каждый пользователь.
package poll

import (
	"math"
	"time"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
	"github.com/UkralStul/studyabroad-realtime/internal/domain"
)

type OptionResult struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
}

// Results - полный, нефильтрованный подсчет опроса. Наружу в таком виде
// не отдается, используйте ViewFor.
type Results struct {
	PostID     string         `json:"postId"`
	Question   string         `json:"question"`
	Options    []OptionResult `json:"options"`
	TotalVotes int            `json:"totalVotes"`
	EndsAt     *time.Time     `json:"endsAt,omitempty"`

	ballots map[string]string // userID -> optionID
}

// Tally считает голоса по вариантам поста. Голоса за неизвестные варианты
// пропускаются. Проценты округляются по каждому варианту, сумма может быть не 100.
func Tally(post *domain.ForumPost, votes []*domain.PollVote) Results {
	counts := make(map[string]int, len(post.PollOptions))
	for _, o := range post.PollOptions {
		counts[o.ID] = 0
	}

	ballots := make(map[string]string, len(votes))
	total := 0
	for _, v := range votes {
		if _, ok := counts[v.OptionID]; !ok {
			continue
		}
		counts[v.OptionID]++
		ballots[v.UserID] = v.OptionID
		total++
	}

	options := make([]OptionResult, 0, len(post.PollOptions))
	for _, o := range post.PollOptions {
		options = append(options, OptionResult{
			ID:         o.ID,
			Text:       o.Text,
			Votes:      counts[o.ID],
			Percentage: percentage(counts[o.ID], total),
		})
	}

	return Results{
		PostID:     post.ID,
		Question:   post.PollQuestion,
		Options:    options,
		TotalVotes: total,
		EndsAt:     post.PollEndsAt,
		ballots:    ballots,
	}
}

func percentage(votes, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(votes) / float64(total) * 100))
}

// VoteOf возвращает вариант, выбранный userID.
func (r Results) VoteOf(userID string) (string, bool) {
	optionID, ok := r.ballots[userID]
	return optionID, ok
}

// OptionView - вариант глазами зрителя; счетчики nil, если скрыты.
type OptionView struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Votes      *int   `json:"votes,omitempty"`
	Percentage *int   `json:"percentage,omitempty"`
}

// View - опрос, отфильтрованный для одного зрителя.
type View struct {
	PostID      string       `json:"postId"`
	Question    string       `json:"question"`
	Options     []OptionView `json:"options"`
	TotalVotes  *int         `json:"totalVotes,omitempty"`
	EndsAt      *time.Time   `json:"endsAt,omitempty"`
	ShowResults bool         `json:"showResults"`
	UserVotes   []string     `json:"userVotes"`
}

// ViewFor применяет правило приватности: админы и проголосовавшие видят голоса
// и проценты, остальные только id и текст вариантов.
func ViewFor(r Results, viewer auth.Principal) View {
	optionID, voted := r.VoteOf(viewer.UserID)
	show := voted || viewer.IsAdmin()

	v := View{
		PostID:      r.PostID,
		Question:    r.Question,
		Options:     make([]OptionView, 0, len(r.Options)),
		EndsAt:      r.EndsAt,
		ShowResults: show,
		UserVotes:   []string{},
	}
	if voted {
		v.UserVotes = []string{optionID}
	}
	for _, o := range r.Options {
		ov := OptionView{ID: o.ID, Text: o.Text}
		if show {
			votes, pct := o.Votes, o.Percentage
			ov.Votes = &votes
			ov.Percentage = &pct
		}
		v.Options = append(v.Options, ov)
	}
	if show {
		total := r.TotalVotes
		v.TotalVotes = &total
	}
	return v
}
