package app

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"live-quiz-service/internal/domain"
)

// SearchRooms ranks pending rooms by the smallest edit distance between the query and
// the quiz name, the owner's username or the room id.
func (s *SessionService) SearchRooms(_ context.Context, query string) []domain.RoomSummary {
	needle := strings.ToLower(strings.TrimSpace(query))

	type hit struct {
		summary  domain.RoomSummary
		distance int
	}
	var hits []hit
	for _, room := range s.rooms.List() {
		if room.Status() != domain.StatusPending {
			continue
		}
		best := -1
		for _, candidate := range []string{room.QuizName(), room.Owner().Username, string(room.ID())} {
			d := levenshtein.ComputeDistance(needle, strings.ToLower(candidate))
			if best < 0 || d < best {
				best = d
			}
		}
		hits = append(hits, hit{
			summary:  domain.RoomSummary{ID: room.ID(), Name: room.QuizName()},
			distance: best,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].summary.ID < hits[j].summary.ID
	})

	limit := s.opts.SearchLimit
	if limit > len(hits) {
		limit = len(hits)
	}
	out := make([]domain.RoomSummary, limit)
	for i := range out {
		out[i] = hits[i].summary
	}
	return out
}
