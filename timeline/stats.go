package timeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dayloom/dayloom/models"
)

// deepWorkThreshold is the minimum productivity score counted as deep work.
const deepWorkThreshold = 80

// CardSource is the narrow read contract against the storage collaborator.
type CardSource interface {
	CardsForDate(ctx context.Context, date time.Time) ([]models.ActivityCard, error)
}

// Collector reduces persisted activity cards into report metrics. All
// reductions are pure; the collector never mutates fetched cards, so running
// the same query twice yields identical results.
type Collector struct {
	source CardSource
}

func NewCollector(source CardSource) *Collector {
	return &Collector{source: source}
}

// CategorySlice is a per-category slice of the time distribution pie.
type CategorySlice struct {
	Name    models.Category `json:"name"`
	Minutes float64         `json:"value"`
	Color   string          `json:"color"`
}

// HourlyPoint is the average efficiency and logged time for one hour bucket.
type HourlyPoint struct {
	Hour    int     `json:"hour"`
	Score   float64 `json:"score"`
	Minutes float64 `json:"duration"`
}

// DayTrend is one bar of the weekly trend chart.
type DayTrend struct {
	Date    string  `json:"date"`
	Weekday string  `json:"weekday"`
	Minutes float64 `json:"duration"`
	Score   float64 `json:"score"`
}

// AppUsage is one row of the top-applications ranking.
type AppUsage struct {
	Name       string  `json:"name"`
	Minutes    float64 `json:"duration"`
	Percentage float64 `json:"percentage"`
}

// ActivityEntry is a card flattened for display.
type ActivityEntry struct {
	Start    string          `json:"start"`
	End      string          `json:"end"`
	Date     string          `json:"date"`
	Category models.Category `json:"category"`
	Color    string          `json:"category_color"`
	Title    string          `json:"title"`
	Summary  string          `json:"summary"`
	Score    float64         `json:"score"`
	Minutes  float64         `json:"duration"`
	MainApp  string          `json:"main_app"`
	Apps     []string        `json:"apps"`
}

// Report bundles every metric the reporting layer consumes for one range.
type Report struct {
	StartDate            time.Time
	EndDate              time.Time
	TotalMinutes         int
	AvgProductivity      float64
	DeepWorkMinutes      int
	ActivityCount        int
	CategoryDistribution []CategorySlice
	HourlyEfficiency     []HourlyPoint
	WeeklyTrend          []DayTrend
	TopApplications      []AppUsage
	Activities           []ActivityEntry
}

func (c *Collector) cardsInRange(ctx context.Context, start, end time.Time) ([]models.ActivityCard, error) {
	var cards []models.ActivityCard
	for day := dateOnly(start); !day.After(dateOnly(end)); day = day.AddDate(0, 0, 1) {
		dayCards, err := c.source.CardsForDate(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("fetch cards for %s: %w", day.Format("2006-01-02"), err)
		}
		cards = append(cards, dayCards...)
	}
	return cards, nil
}

// TotalDuration returns the summed card duration in whole minutes.
func (c *Collector) TotalDuration(ctx context.Context, start, end time.Time) (int, error) {
	cards, err := c.cardsInRange(ctx, start, end)
	if err != nil {
		return 0, err
	}
	return int(sumMinutes(cards)), nil
}

// AvgProductivity returns the duration-weighted mean score, 0 when nothing
// was logged.
func (c *Collector) AvgProductivity(ctx context.Context, start, end time.Time) (float64, error) {
	cards, err := c.cardsInRange(ctx, start, end)
	if err != nil {
		return 0, err
	}
	return weightedScore(cards), nil
}

// DeepWorkDuration returns minutes spent on cards scoring at least 80.
func (c *Collector) DeepWorkDuration(ctx context.Context, start, end time.Time) (int, error) {
	cards, err := c.cardsInRange(ctx, start, end)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, card := range cards {
		if card.ProductivityScore >= deepWorkThreshold {
			total += card.DurationMinutes()
		}
	}
	return int(total), nil
}

// CategoryDistribution sums duration per category, sorted by share.
func (c *Collector) CategoryDistribution(ctx context.Context, start, end time.Time) ([]CategorySlice, error) {
	cards, err := c.cardsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[models.Category]float64)
	for _, card := range cards {
		category := card.Category
		if category == "" {
			category = models.CategoryOther
		}
		byCategory[category] += card.DurationMinutes()
	}

	slices := make([]CategorySlice, 0, len(byCategory))
	for category, minutes := range byCategory {
		slices = append(slices, CategorySlice{
			Name:    category,
			Minutes: round1(minutes),
			Color:   category.Color(),
		})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Minutes != slices[j].Minutes {
			return slices[i].Minutes > slices[j].Minutes
		}
		return slices[i].Name < slices[j].Name
	})
	return slices, nil
}

// HourlyEfficiency buckets one day's cards by start hour. A card keeps its
// entire duration in its start-hour bucket even when it crosses an hour
// boundary; splitting is deliberately not done.
func (c *Collector) HourlyEfficiency(ctx context.Context, date time.Time) ([]HourlyPoint, error) {
	cards, err := c.source.CardsForDate(ctx, dateOnly(date))
	if err != nil {
		return nil, err
	}

	type bucket struct {
		scoreSum float64
		minutes  float64
	}
	var buckets [24]bucket

	for _, card := range cards {
		if card.StartTime == nil || card.EndTime == nil {
			continue
		}
		hour := card.StartTime.Hour()
		minutes := card.DurationMinutes()
		buckets[hour].scoreSum += card.ProductivityScore * minutes
		buckets[hour].minutes += minutes
	}

	points := make([]HourlyPoint, 24)
	for hour := range buckets {
		score := 0.0
		if buckets[hour].minutes > 0 {
			score = buckets[hour].scoreSum / buckets[hour].minutes
		}
		points[hour] = HourlyPoint{
			Hour:    hour,
			Score:   round1(score),
			Minutes: round1(buckets[hour].minutes),
		}
	}
	return points, nil
}

// WeeklyTrend returns the 7 calendar days ending at end, oldest first.
func (c *Collector) WeeklyTrend(ctx context.Context, end time.Time) ([]DayTrend, error) {
	trend := make([]DayTrend, 0, 7)
	for i := 6; i >= 0; i-- {
		day := dateOnly(end).AddDate(0, 0, -i)
		cards, err := c.source.CardsForDate(ctx, day)
		if err != nil {
			return nil, err
		}
		trend = append(trend, DayTrend{
			Date:    day.Format("01-02"),
			Weekday: day.Weekday().String(),
			Minutes: round1(sumMinutes(cards)),
			Score:   weightedScore(cards),
		})
	}
	return trend, nil
}

// TopApplications ranks per-application time across app_sites, truncated to
// limit. Percentages are shares of the truncated ranking's own total.
func (c *Collector) TopApplications(ctx context.Context, start, end time.Time, limit int) ([]AppUsage, error) {
	cards, err := c.cardsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byApp := make(map[string]float64)
	for _, card := range cards {
		for _, site := range card.AppSites {
			byApp[site.Name] += site.DurationSeconds / 60
		}
	}

	apps := make([]AppUsage, 0, len(byApp))
	for name, minutes := range byApp {
		apps = append(apps, AppUsage{Name: name, Minutes: minutes})
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Minutes != apps[j].Minutes {
			return apps[i].Minutes > apps[j].Minutes
		}
		return apps[i].Name < apps[j].Name
	})
	if limit > 0 && len(apps) > limit {
		apps = apps[:limit]
	}

	total := 0.0
	for _, app := range apps {
		total += app.Minutes
	}
	for i := range apps {
		if total > 0 {
			apps[i].Percentage = round1(apps[i].Minutes / total * 100)
		}
		apps[i].Minutes = round1(apps[i].Minutes)
	}
	return apps, nil
}

// Activities flattens the range's cards for display, ordered by start time.
// Cards without a start time sort first.
func (c *Collector) Activities(ctx context.Context, start, end time.Time) ([]ActivityEntry, error) {
	cards, err := c.cardsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	ordered := make([]models.ActivityCard, len(cards))
	copy(ordered, cards)
	sort.SliceStable(ordered, func(i, j int) bool {
		return startOrMin(ordered[i]).Before(startOrMin(ordered[j]))
	})

	entries := make([]ActivityEntry, 0, len(ordered))
	for _, card := range ordered {
		category := card.Category
		if category == "" {
			category = models.CategoryOther
		}
		entry := ActivityEntry{
			Category: category,
			Color:    category.Color(),
			Title:    card.Title,
			Summary:  card.Summary,
			Score:    card.ProductivityScore,
			Minutes:  round1(card.DurationMinutes()),
		}
		if card.StartTime != nil {
			entry.Start = card.StartTime.Format("15:04")
			entry.Date = card.StartTime.Format("2006-01-02")
		}
		if card.EndTime != nil {
			entry.End = card.EndTime.Format("15:04")
		}
		if len(card.AppSites) > 0 {
			entry.MainApp = card.AppSites[0].Name
			for _, site := range card.AppSites {
				entry.Apps = append(entry.Apps, site.Name)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Collect assembles the full report for a range: totals over [start, end],
// hourly efficiency for the range's final day, and the weekly trend ending
// there.
func (c *Collector) Collect(ctx context.Context, start, end time.Time, appLimit int) (*Report, error) {
	cards, err := c.cardsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	distribution, err := c.CategoryDistribution(ctx, start, end)
	if err != nil {
		return nil, err
	}
	hourly, err := c.HourlyEfficiency(ctx, end)
	if err != nil {
		return nil, err
	}
	weekly, err := c.WeeklyTrend(ctx, end)
	if err != nil {
		return nil, err
	}
	topApps, err := c.TopApplications(ctx, start, end, appLimit)
	if err != nil {
		return nil, err
	}
	activities, err := c.Activities(ctx, start, end)
	if err != nil {
		return nil, err
	}

	deepWork := 0.0
	for _, card := range cards {
		if card.ProductivityScore >= deepWorkThreshold {
			deepWork += card.DurationMinutes()
		}
	}

	return &Report{
		StartDate:            dateOnly(start),
		EndDate:              dateOnly(end),
		TotalMinutes:         int(sumMinutes(cards)),
		AvgProductivity:      weightedScore(cards),
		DeepWorkMinutes:      int(deepWork),
		ActivityCount:        len(cards),
		CategoryDistribution: distribution,
		HourlyEfficiency:     hourly,
		WeeklyTrend:          weekly,
		TopApplications:      topApps,
		Activities:           activities,
	}, nil
}

// FormatDuration renders minutes as "2h 30m", "2h", or "45m".
func FormatDuration(minutes int) string {
	if minutes < 1 {
		return "0m"
	}
	hours := minutes / 60
	mins := minutes % 60
	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

func sumMinutes(cards []models.ActivityCard) float64 {
	total := 0.0
	for _, card := range cards {
		total += card.DurationMinutes()
	}
	return total
}

// weightedScore is the duration-weighted mean productivity, rounded to one
// decimal, 0 when no time was logged.
func weightedScore(cards []models.ActivityCard) float64 {
	weighted := 0.0
	total := 0.0
	for _, card := range cards {
		minutes := card.DurationMinutes()
		if minutes > 0 {
			weighted += card.ProductivityScore * minutes
			total += minutes
		}
	}
	if total == 0 {
		return 0
	}
	return round1(weighted / total)
}

func startOrMin(card models.ActivityCard) time.Time {
	if card.StartTime == nil {
		return time.Time{}
	}
	return *card.StartTime
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
