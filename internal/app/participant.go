package app

import (
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/fanout"
)

type participant struct {
	id       domain.UserID
	username string
	conn     fanout.Conn
	score    int
	seq      int

	composing   bool
	composeGen  int
	composeStop func()
}

func (p *participant) info() domain.UserInfo {
	return domain.UserInfo{ID: p.id, Username: p.username, Points: p.score}
}

// clearComposing drops the typing flag and its expiry timer. It reports whether the flag was set.
func (p *participant) clearComposing() bool {
	if p.composeStop != nil {
		p.composeStop()
		p.composeStop = nil
	}
	p.composeGen++
	was := p.composing
	p.composing = false
	return was
}

type response struct {
	answers   []domain.ChoiceID
	remaining int
}

type pointsCommit struct {
	user   domain.UserID
	points int
}
