// Package engagement computes and stores per-event engagement scores.
package engagement

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/eventflow/internal/registration"
)

// MaxTotalScore bounds the sum of the three components.
const MaxTotalScore = 6

// Aggregates are the registration counts a score is computed from.
type Aggregates struct {
	Registrations int
	Confirmed     int
	FeedbackCount int
	FeedbackSum   int
}

// Score is a computed engagement score.
type Score struct {
	EventID           uuid.UUID `json:"event_id"`
	RegistrationCount int       `json:"registration_count"`
	ConfirmedCount    int       `json:"confirmed_count"`
	FeedbackCount     int       `json:"feedback_count"`
	RegistrationScore int       `json:"registration_score"`
	AttendanceScore   int       `json:"attendance_score"`
	FeedbackScore     float64   `json:"feedback_score"`
	TotalScore        float64   `json:"total_score"`
	CalculatedAt      time.Time `json:"calculated_at"`
}

// Aggregate counts an event's registration set.
func Aggregate(regs []*registration.Registration) Aggregates {
	var a Aggregates
	for _, r := range regs {
		a.Registrations++
		if r.Confirmed {
			a.Confirmed++
		}
		if r.FeedbackScore != nil {
			a.FeedbackCount++
			a.FeedbackSum += *r.FeedbackScore
		}
	}
	return a
}

// Compute scores a set of aggregates. It fills everything except EventID and
// CalculatedAt.
func Compute(a Aggregates) Score {
	regScore := registrationScore(a.Registrations)
	attScore := attendanceScore(AttendanceRate(a))
	fbScore := feedbackScore(a)

	total := float64(regScore+attScore) + fbScore
	total = math.Max(0, math.Min(MaxTotalScore, total))

	return Score{
		RegistrationCount: a.Registrations,
		ConfirmedCount:    a.Confirmed,
		FeedbackCount:     a.FeedbackCount,
		RegistrationScore: regScore,
		AttendanceScore:   attScore,
		FeedbackScore:     round2(fbScore),
		TotalScore:        round2(total),
	}
}

// AttendanceRate is confirmed over registered, 0 when nobody registered.
func AttendanceRate(a Aggregates) float64 {
	if a.Registrations == 0 {
		return 0
	}
	return float64(a.Confirmed) / float64(a.Registrations)
}

func registrationScore(n int) int {
	switch {
	case n < 10:
		return 0
	case n <= 50:
		return 1
	default:
		return 2
	}
}

func attendanceScore(rate float64) int {
	switch {
	case rate < 0.5:
		return 0
	case rate <= 0.75:
		return 1
	default:
		return 2
	}
}

// feedbackScore maps the average rating (1-5) onto [0, 2].
func feedbackScore(a Aggregates) float64 {
	if a.FeedbackCount == 0 {
		return 0
	}
	avg := float64(a.FeedbackSum) / float64(a.FeedbackCount)
	return avg / float64(registration.MaxFeedback) * 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
