package app

import (
	"log/slog"

	"live-quiz-service/internal/domain"
)

// startCountdownLocked replaces the room's countdown with a fresh one for phase.
// done runs under the room lock once the countdown reports 0.
func (s *SessionService) startCountdownLocked(room *Room, phase domain.Phase, count int, done func(*Room)) {
	s.stopCountdownLocked(room)

	var cd *Countdown
	cd = NewCountdown(count, s.opts.TickInterval, s.opts.Scheduler, func(n int) {
		s.onTick(room, cd, phase, n, done)
	})
	room.countdown = cd
	room.phase = phase
	cd.Start()
}

func (s *SessionService) stopCountdownLocked(room *Room) {
	if room.countdown != nil {
		room.countdown.Stop()
		room.countdown = nil
	}
}

func (s *SessionService) onTick(room *Room, cd *Countdown, phase domain.Phase, n int, done func(*Room)) {
	room.mu.Lock()
	defer s.release(room)

	// a replaced countdown may still deliver one late tick
	if room.countdown != cd || room.destroyed {
		return
	}
	room.broadcast(domain.CountdownTick{Phase: phase, Count: n})
	if n == 0 {
		done(room)
	}
}

func (s *SessionService) beginSessionLocked(room *Room) {
	room.status = domain.StatusStarted
	room.broadcast(domain.SessionStarted{})
	s.log.Info("session started",
		slog.String("room", string(room.id)),
		slog.Int("participants", len(room.participants)),
	)
	s.beginQuestionLocked(room)
}

func (s *SessionService) beginQuestionLocked(room *Room) {
	q, ok := room.currentQuestion()
	if !ok {
		s.finishLocked(room)
		return
	}
	room.responses = make(map[domain.UserID]response)

	total := len(room.quiz.Questions)
	room.sendTo(domain.QuestionRevealed{QuestionView: domain.NewQuestionView(q, room.index, total, false)},
		room.conns(func(p *participant) bool { return !room.isOwner(p.id) })...)
	room.sendTo(domain.QuestionRevealed{QuestionView: domain.NewQuestionView(q, room.index, total, true)},
		room.conns(func(p *participant) bool { return room.isOwner(p.id) })...)

	s.log.Info("question revealed",
		slog.String("room", string(room.id)),
		slog.Int("position", room.index),
		slog.Int("duration", q.Duration),
	)
	s.startCountdownLocked(room, domain.PhaseQuestion, q.Duration, s.endQuestionLocked)
}

// endQuestionLocked closes the response window: final percentages, correct choices,
// scores, then the results countdown.
func (s *SessionService) endQuestionLocked(room *Room) {
	q, ok := room.currentQuestion()
	if !ok {
		s.finishLocked(room)
		return
	}
	room.broadcast(room.percentage(q))
	room.broadcast(domain.QuestionEnded{QuestionID: q.ID, CorrectChoices: q.CorrectChoices()})

	for _, p := range room.participants {
		if resp, answered := room.responses[p.id]; answered {
			p.score += Score(q, resp.answers, resp.remaining)
		}
	}
	room.broadcast(domain.ScoreUpdate{Users: room.leaderboard()})

	s.startCountdownLocked(room, domain.PhaseResults, s.opts.ResultsSeconds, s.nextQuestionLocked)
}

func (s *SessionService) nextQuestionLocked(room *Room) {
	if room.index < len(room.quiz.Questions) {
		room.index++
	}
	s.beginQuestionLocked(room)
}

// finishLocked ends a room whose questions are exhausted. The room stays registered,
// closed to joins, until its last participant leaves.
func (s *SessionService) finishLocked(room *Room) {
	s.stopCountdownLocked(room)
	room.status = domain.StatusEnded
	room.broadcast(domain.FinishedQuestions{Users: room.leaderboard()})
	room.commits = room.snapshotScores()
	s.log.Info("questions finished",
		slog.String("room", string(room.id)),
		slog.Int("participants", len(room.participants)),
	)
}
