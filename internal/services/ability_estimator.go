package services

import (
	"math"
	"time"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

// EstimateAbility is the session ability for the answered items, or ok=false
// when nothing has been answered yet.
func EstimateAbility(items []models.SessionItem) (ability float64, ok bool) {
	answered, correct := 0, 0
	difficultySum := 0.0
	for _, item := range items {
		if !item.IsAnswered() {
			continue
		}
		answered++
		difficultySum += item.Difficulty
		if item.IsCorrect != nil && *item.IsCorrect {
			correct++
		}
	}
	if answered == 0 {
		return 0, false
	}

	correctRate := float64(correct) / float64(answered)
	averageDifficulty := difficultySum / float64(answered)
	ability = correctRate + (averageDifficulty-0.5)*0.2
	return math.Max(0, math.Min(1, ability)), true
}

// UpdateAbility recomputes the session estimate and appends a snapshot.
func UpdateAbility(session *models.AssessmentSession, at time.Time) {
	ability, ok := EstimateAbility(session.AnsweredItems())
	if !ok {
		return
	}
	session.EstimatedAbility = ability
	session.AbilityHistory = append(session.AbilityHistory, models.AbilitySnapshot{
		Timestamp:  at,
		Ability:    ability,
		Confidence: session.Confidence(),
	})
}
