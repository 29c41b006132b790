package models

import (
	"strings"
	"time"
)

// Category classifies an activity card.
type Category string

const (
	CategoryProgramming   Category = "Programming"
	CategoryWork          Category = "Work"
	CategoryLearning      Category = "Learning"
	CategoryMeeting       Category = "Meeting"
	CategorySocial        Category = "Social"
	CategoryEntertainment Category = "Entertainment"
	CategoryRest          Category = "Rest"
	CategoryOther         Category = "Other"
)

var categoryColors = map[Category]string{
	CategoryWork:          "#7c3aed",
	CategoryLearning:      "#3b82f6",
	CategoryProgramming:   "#10b981",
	CategoryMeeting:       "#f59e0b",
	CategoryEntertainment: "#ef4444",
	CategorySocial:        "#ec4899",
	CategoryRest:          "#6b7280",
	CategoryOther:         "#8b5cf6",
}

// Color returns the chart color for the category. Unmapped categories
// fall back to the Other color.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return categoryColors[CategoryOther]
}

// ParseCategory maps free-form model output onto a known category.
// Unrecognized values become Other.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "programming":
		return CategoryProgramming
	case "work":
		return CategoryWork
	case "learning":
		return CategoryLearning
	case "meeting":
		return CategoryMeeting
	case "social":
		return CategorySocial
	case "entertainment":
		return CategoryEntertainment
	case "rest":
		return CategoryRest
	default:
		return CategoryOther
	}
}

// AppSite records time attributed to one application or website within a card.
type AppSite struct {
	Name            string  `json:"name"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Distraction records a detour inside an activity.
type Distraction struct {
	Description     string  `json:"description"`
	Timestamp       float64 `json:"timestamp"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ActivityCard is a synthesized unit of user activity. Cards are created once
// per generation response and are immutable afterwards; the storage layer owns
// their durable lifetime.
type ActivityCard struct {
	ID                string        `json:"id"`
	Category          Category      `json:"category"`
	Title             string        `json:"title"`
	Summary           string        `json:"summary"`
	StartTime         *time.Time    `json:"start_time,omitempty"`
	EndTime           *time.Time    `json:"end_time,omitempty"`
	AppSites          []AppSite     `json:"app_sites"`
	Distractions      []Distraction `json:"distractions"`
	ProductivityScore float64       `json:"productivity_score"`
}

// DurationMinutes derives the card length from its timestamps.
// Cards missing either endpoint have zero duration.
func (c ActivityCard) DurationMinutes() float64 {
	if c.StartTime == nil || c.EndTime == nil {
		return 0
	}
	return c.EndTime.Sub(*c.StartTime).Minutes()
}
