package game

import (
	"strconv"

	"github.com/sirupsen/logrus"
)

// Level returns the current level and whether it is running
func (s *Session) Level() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level, s.levelRunning
}

// Finished reports whether the game has ended
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// startLevel clears the civilian zones and starts spawning. It is a no-op
// while a level runs or after the game ended.
func (s *Session) startLevel() {
	if s.levelRunning || s.finished {
		return
	}
	s.world.Remove(s.shop, s.mission)
	s.levelRunning = true
	s.spawnClock = 0
	final := s.tuning.IsFinal(s.level)
	if final {
		s.spawnBoss()
	}
	for _, m := range s.participants {
		m.missionPending = false
	}
	s.events.Track(EvtLevelStart, s.room, "", strconv.Itoa(s.level))
	s.broadcast(MsgStartLevel, LevelMsg{Level: s.level, Quota: s.tuning.Enemies(s.level), Final: final})
	s.log.WithFields(logrus.Fields{"game_level": s.level, "final": final}).Info("level started")
}

// endLevel moves to the next level, or ends the game after the last one
func (s *Session) endLevel() {
	if s.tuning.IsFinal(s.level) {
		s.endGame(true)
		return
	}
	s.events.Track(EvtLevelEnd, s.room, "", strconv.Itoa(s.level))
	s.levelRunning = false
	s.level++
	s.enemiesSpawned = 0
	s.spawnClock = 0
	for _, m := range s.participants {
		if m.player != nil {
			m.player.heal()
		}
	}
	s.world.Add(s.shop, s.mission)
	s.broadcast(MsgEndLevel, LevelMsg{Level: s.level, Quota: s.tuning.Enemies(s.level), Final: s.tuning.IsFinal(s.level)})
	s.log.WithField("game_level", s.level).Info("level cleared")
}

// endGame stops progression and marks the room finished
func (s *Session) endGame(victory bool) {
	if s.finished {
		return
	}
	s.finished = true
	s.levelRunning = false
	for _, e := range s.enemies {
		s.world.Remove(e.body)
	}
	s.enemies = nil
	s.events.Track(EvtGameEnd, s.room, "", strconv.FormatBool(victory))
	s.broadcast(MsgEndGame, EndGameMsg{Victory: victory, Level: s.level})
	s.setStatus(StatusFinished)
	s.log.WithField("victory", victory).Info("game over")
}
