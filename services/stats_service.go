package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aicert/cert_platform/models"
	"gorm.io/gorm"
)

const minutesPerAnswer = 2

type ProfileStats struct {
	TotalProblemsSolved   int64   `json:"total_problems_solved"`
	CorrectAnswers        int64   `json:"correct_answers"`
	AccuracyRate          float64 `json:"accuracy_rate"`
	StudyStreak           int     `json:"study_streak"`
	TotalStudyTime        string  `json:"total_study_time"`
	AverageDailyProblems  float64 `json:"average_daily_problems"`
	TargetAchievementRate float64 `json:"target_achievement_rate"`
}

type StatsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db, now: time.Now}
}

func (s *StatsService) ForUser(ctx context.Context, user models.User) (ProfileStats, error) {
	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	var stats ProfileStats
	if err := db.Model(&models.UserAnswer{}).Where("user_id = ?", user.ID).Count(&stats.TotalProblemsSolved).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.UserAnswer{}).Where("user_id = ? AND is_correct = ?", user.ID, true).Count(&stats.CorrectAnswers).Error; err != nil {
		return stats, err
	}
	if stats.TotalProblemsSolved > 0 {
		stats.AccuracyRate = round1(float64(stats.CorrectAnswers) / float64(stats.TotalProblemsSolved) * 100)
	}

	// distinct calendar days are counted in Go so the query stays portable
	var recent []time.Time
	if err := db.Model(&models.UserAnswer{}).
		Where("user_id = ? AND answered_at >= ?", user.ID, now.AddDate(0, 0, -7)).
		Pluck("answered_at", &recent).Error; err != nil {
		return stats, err
	}
	days := map[string]struct{}{}
	for _, t := range recent {
		days[t.UTC().Format(time.DateOnly)] = struct{}{}
	}
	stats.StudyStreak = len(days)

	daysSinceSignup := int(now.Sub(user.CreatedAt).Hours() / 24)
	if daysSinceSignup < 1 {
		daysSinceSignup = 1
	}
	stats.AverageDailyProblems = round1(float64(stats.TotalProblemsSolved) / float64(daysSinceSignup))

	dailyGoal := 5
	var profile models.UserProfile
	if err := db.Where("user_id = ?", user.ID).Limit(1).Find(&profile).Error; err != nil {
		return stats, err
	}
	if profile.ID != 0 {
		dailyGoal = profile.DailyGoal
	}

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var today int64
	if err := db.Model(&models.UserAnswer{}).Where("user_id = ? AND answered_at >= ?", user.ID, todayStart).Count(&today).Error; err != nil {
		return stats, err
	}
	if dailyGoal > 0 {
		stats.TargetAchievementRate = round1(float64(today) / float64(dailyGoal) * 100)
	}

	stats.TotalStudyTime = formatStudyTime(stats.TotalProblemsSolved * minutesPerAnswer)
	return stats, nil
}

func formatStudyTime(minutes int64) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
