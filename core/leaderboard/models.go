package leaderboard

import (
	"time"
)

// Activity types
const (
	ActivityQuizzes = "Quizzes"
	ActivityCourses = "Courses"
)

type Medals struct {
	Gold   int `json:"gold" db:"gold_medals"`
	Silver int `json:"silver" db:"silver_medals"`
	Bronze int `json:"bronze" db:"bronze_medals"`
}

type Entry struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Name         string    `json:"name" db:"name"` // denormalized display name
	Points       int       `json:"points" db:"points"`
	ActivityType string    `json:"activity" db:"activity_type"`
	AvatarURL    string    `json:"avatar,omitempty" db:"avatar_url"`
	Medals       Medals    `json:"medals"`
	JoinedDate   time.Time `json:"joined" db:"joined_date"`
}
