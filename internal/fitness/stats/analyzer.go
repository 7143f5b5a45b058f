package stats

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/fittrackio/fittrack/internal/fitness/metrics"
	"github.com/fittrackio/fittrack/internal/fitness/profiles"
	"github.com/fittrackio/fittrack/internal/fitness/sessions"
	"github.com/fittrackio/fittrack/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// ErrNoHeartRateData signals a session without a single heart rate reading.
var ErrNoHeartRateData = errors.New("no heart rate data")

const defaultStatisticsRange = 30 * 24 * time.Hour

//go:generate mockgen -source=$GOFILE -destination=stats_mocks_test.go -package=stats_test

type sessionsRepo interface {
	Get(ctx context.Context, userID, id int) (*sessions.Session, error)
	ListAll(ctx context.Context, params sessions.SessionParams) ([]sessions.Session, error)
}

type metricsRepo interface {
	ListBySession(ctx context.Context, sessionID int) ([]metrics.Metric, error)
}

type profilesRepo interface {
	GetByUserID(ctx context.Context, userID int) (*profiles.Profile, error)
}

// PeriodBucket holds the aggregates of all sessions whose start time falls
// into one bucket.
type PeriodBucket struct {
	Period               Period                      `json:"period"`
	BucketStart          time.Time                   `json:"bucketStart"`
	Workouts             int                         `json:"workouts"`
	TotalDurationMinutes int                         `json:"totalDurationMinutes"`
	TotalDistance        float64                     `json:"totalDistance"`
	TotalCalories        int                         `json:"totalCalories"`
	AvgHeartRate         float64                     `json:"avgHeartRate"`
	WorkoutTypeCounts    map[sessions.WorkoutType]int `json:"workoutTypeCounts"`
}

// CumulativePoint carries the running totals through one day that had at
// least one session.
type CumulativePoint struct {
	Date                 time.Time `json:"date"`
	Workouts             int       `json:"workouts"`
	TotalDistance        float64   `json:"totalDistance"`
	TotalCalories        int       `json:"totalCalories"`
	TotalDurationMinutes int       `json:"totalDurationMinutes"`
}

type ZoneResult struct {
	Zone          string  `json:"zone"`
	LowerBound    int     `json:"lowerBound"`
	UpperBound    *int    `json:"upperBound,omitempty"`
	Readings      int     `json:"readings"`
	Percentage    float64 `json:"percentage"`
	MinutesInZone int     `json:"minutesInZone"`
}

type ZoneAnalysis struct {
	SessionID     int          `json:"sessionId"`
	MaxHeartRate  int          `json:"maxHeartRate"`
	TotalReadings int          `json:"totalReadings"`
	Zones         []ZoneResult `json:"zones"`
}

type OverallTotals struct {
	Workouts             int     `json:"workouts"`
	TotalDistance        float64 `json:"totalDistance"`
	TotalCalories        int     `json:"totalCalories"`
	TotalDurationMinutes int     `json:"totalDurationMinutes"`
	AvgDurationMinutes   float64 `json:"avgDurationMinutes"`
	AvgHeartRate         float64 `json:"avgHeartRate"`
	MaxDistance          float64 `json:"maxDistance"`
}

type WorkoutTypeStats struct {
	WorkoutType          sessions.WorkoutType `json:"workoutType"`
	Workouts             int                  `json:"workouts"`
	TotalDurationMinutes int                  `json:"totalDurationMinutes"`
}

type TrendWindow struct {
	Workouts      int     `json:"workouts"`
	TotalDistance float64 `json:"totalDistance"`
}

type RecentTrend struct {
	LastWeek      TrendWindow `json:"lastWeek"`
	PreviousWeek  TrendWindow `json:"previousWeek"`
	WorkoutsDelta int         `json:"workoutsDelta"`
	DistanceDelta float64     `json:"distanceDelta"`
}

type Summary struct {
	Overall      OverallTotals      `json:"overall"`
	WorkoutTypes []WorkoutTypeStats `json:"workoutTypes"`
	RecentTrend  RecentTrend        `json:"recentTrend"`
}

// Analyzer computes all derived statistics. It is stateless and purely
// read-only: every call recomputes from the source rows, nothing is cached
// or persisted.
type Analyzer struct {
	sessionsRepo sessionsRepo
	metricsRepo  metricsRepo
	profilesRepo profilesRepo

	// injectable clock for deterministic tests
	NowFunc func() time.Time
}

func NewAnalyzer(
	sessionsRepo sessionsRepo,
	metricsRepo metricsRepo,
	profilesRepo profilesRepo,
) *Analyzer {
	return &Analyzer{
		sessionsRepo: sessionsRepo,
		metricsRepo:  metricsRepo,
		profilesRepo: profilesRepo,
		NowFunc:      time.Now,
	}
}

// resolveRange applies the defaults: to = now, from = to - 30 days.
func (a *Analyzer) resolveRange(from, to *time.Time) (time.Time, time.Time) {
	end := a.NowFunc()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultStatisticsRange)
	if from != nil {
		start = *from
	}
	return start, end
}

// Statistics aggregates the user's sessions in [from, to) into buckets of
// the given period, ascending by bucket start. A range with no sessions
// yields an empty slice, never an error. A reversed range is not swapped.
func (a *Analyzer) Statistics(
	ctx context.Context,
	userID int,
	from, to *time.Time,
	period Period,
) (_ []PeriodBucket, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.stats.statistics")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.String("period", string(period)))

	start, end := a.resolveRange(from, to)
	sessionsList, err := a.sessionsRepo.ListAll(ctx, sessions.SessionParams{
		UserID: userID,
		From:   &start,
		To:     &end,
	})
	if err != nil {
		return nil, err
	}

	byBucket := make(map[time.Time][]sessions.Session)
	for _, s := range sessionsList {
		bucket := BucketOf(s.StartTime, period)
		byBucket[bucket] = append(byBucket[bucket], s)
	}

	buckets := make([]PeriodBucket, 0, len(byBucket))
	for bucketStart, bucketSessions := range byBucket {
		buckets = append(buckets, aggregateBucket(period, bucketStart, bucketSessions))
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].BucketStart.Before(buckets[j].BucketStart)
	})

	return buckets, nil
}

// aggregateBucket reduces the sessions of one bucket. Sums treat absent
// values as 0; the heart rate average excludes sessions without a reading
// and yields 0 when no session contributes.
func aggregateBucket(period Period, bucketStart time.Time, bucketSessions []sessions.Session) PeriodBucket {
	bucket := PeriodBucket{
		Period:            period,
		BucketStart:       bucketStart,
		Workouts:          len(bucketSessions),
		WorkoutTypeCounts: make(map[sessions.WorkoutType]int),
	}

	var hrSum, hrCount int
	for _, s := range bucketSessions {
		if s.DurationMinutes != nil {
			bucket.TotalDurationMinutes += *s.DurationMinutes
		}
		if s.TotalDistance != nil {
			bucket.TotalDistance += *s.TotalDistance
		}
		if s.TotalCalories != nil {
			bucket.TotalCalories += *s.TotalCalories
		}
		if s.AvgHeartRate != nil {
			hrSum += *s.AvgHeartRate
			hrCount++
		}
		bucket.WorkoutTypeCounts[s.WorkoutType]++
	}

	if hrCount > 0 {
		bucket.AvgHeartRate = float64(hrSum) / float64(hrCount)
	}

	return bucket
}

// Progress computes the running totals over the days in [from, to) that
// actually had sessions. It is always bucketed by day: days without a
// single session are skipped, not zero-filled.
func (a *Analyzer) Progress(
	ctx context.Context,
	userID int,
	from, to *time.Time,
) (_ []CumulativePoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.stats.progress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	dailyBuckets, err := a.Statistics(ctx, userID, from, to, PeriodDay)
	if err != nil {
		return nil, err
	}

	points := make([]CumulativePoint, 0, len(dailyBuckets))
	var running CumulativePoint
	for _, bucket := range dailyBuckets {
		running.Workouts += bucket.Workouts
		running.TotalDistance += bucket.TotalDistance
		running.TotalCalories += bucket.TotalCalories
		running.TotalDurationMinutes += bucket.TotalDurationMinutes
		points = append(points, CumulativePoint{
			Date:                 bucket.BucketStart,
			Workouts:             running.Workouts,
			TotalDistance:        running.TotalDistance,
			TotalCalories:        running.TotalCalories,
			TotalDurationMinutes: running.TotalDurationMinutes,
		})
	}

	return points, nil
}

// The five fixed heart rate zones. Each zone spans
// [floor(maxHR * lower), floor(maxHR * upper)); the last one is open-ended.
var zoneDefinitions = []struct {
	name  string
	lower float64
	upper float64
}{
	{"Recovery", 0.50, 0.60},
	{"Aerobic", 0.60, 0.70},
	{"Tempo", 0.70, 0.80},
	{"Threshold", 0.80, 0.90},
	{"Maximum", 0.90, 1.00},
}

// HeartRateZones distributes the session's heart rate readings over the
// five zones. The zone minutes assume readings are roughly evenly spaced
// in time; this is an approximation, not a time-weighted integral.
// Readings below the Recovery floor count toward the total but fall into
// no zone.
func (a *Analyzer) HeartRateZones(
	ctx context.Context,
	userID, sessionID int,
) (_ *ZoneAnalysis, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.stats.heartRateZones")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", sessionID))

	session, err := a.sessionsRepo.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	readings, err := a.metricsRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	var heartRates []int
	for _, m := range readings {
		if m.HeartRate != nil {
			heartRates = append(heartRates, *m.HeartRate)
		}
	}
	if len(heartRates) == 0 {
		return nil, ErrNoHeartRateData
	}

	maxHR := a.maxHeartRate(ctx, userID)
	span.SetAttributes(attribute.Int("max.heart.rate", maxHR))

	durationMinutes := 0
	if session.DurationMinutes != nil {
		durationMinutes = *session.DurationMinutes
	}

	total := len(heartRates)
	zones := make([]ZoneResult, 0, len(zoneDefinitions))
	for i, def := range zoneDefinitions {
		lower := int(math.Floor(float64(maxHR) * def.lower))
		zone := ZoneResult{
			Zone:       def.name,
			LowerBound: lower,
		}
		if i < len(zoneDefinitions)-1 {
			upper := int(math.Floor(float64(maxHR) * def.upper))
			zone.UpperBound = &upper
		}

		for _, hr := range heartRates {
			if hr < zone.LowerBound {
				continue
			}
			if zone.UpperBound != nil && hr >= *zone.UpperBound {
				continue
			}
			zone.Readings++
		}

		share := float64(zone.Readings) / float64(total)
		zone.Percentage = math.Round(share*100*100) / 100
		zone.MinutesInZone = int(math.Floor(share * float64(durationMinutes)))
		zones = append(zones, zone)
	}

	return &ZoneAnalysis{
		SessionID:     session.ID,
		MaxHeartRate:  maxHR,
		TotalReadings: total,
		Zones:         zones,
	}, nil
}

// maxHeartRate estimates the user's maximum heart rate from the profile
// age; any lookup failure falls back to the default of 190.
func (a *Analyzer) maxHeartRate(ctx context.Context, userID int) int {
	profile, err := a.profilesRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 190
	}
	return profile.MaxHeartRate()
}

// UserSummary computes the all-time totals, the workout type distribution
// and the recent 7-day trend of a user.
func (a *Analyzer) UserSummary(ctx context.Context, userID int) (_ *Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.stats.summary")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	allSessions, err := a.sessionsRepo.ListAll(ctx, sessions.SessionParams{
		UserID: userID,
	})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Overall:      overallTotals(allSessions),
		WorkoutTypes: workoutTypeDistribution(allSessions),
		RecentTrend:  recentTrend(allSessions, a.NowFunc()),
	}
	return summary, nil
}

func overallTotals(allSessions []sessions.Session) OverallTotals {
	overall := OverallTotals{
		Workouts: len(allSessions),
	}

	var durationCount, hrSum, hrCount int
	for _, s := range allSessions {
		if s.DurationMinutes != nil {
			overall.TotalDurationMinutes += *s.DurationMinutes
			durationCount++
		}
		if s.TotalDistance != nil {
			overall.TotalDistance += *s.TotalDistance
			if *s.TotalDistance > overall.MaxDistance {
				overall.MaxDistance = *s.TotalDistance
			}
		}
		if s.TotalCalories != nil {
			overall.TotalCalories += *s.TotalCalories
		}
		if s.AvgHeartRate != nil {
			hrSum += *s.AvgHeartRate
			hrCount++
		}
	}

	if durationCount > 0 {
		overall.AvgDurationMinutes = float64(overall.TotalDurationMinutes) / float64(durationCount)
	}
	if hrCount > 0 {
		overall.AvgHeartRate = float64(hrSum) / float64(hrCount)
	}

	return overall
}

func workoutTypeDistribution(allSessions []sessions.Session) []WorkoutTypeStats {
	byType := make(map[sessions.WorkoutType]*WorkoutTypeStats)
	for _, s := range allSessions {
		stats, ok := byType[s.WorkoutType]
		if !ok {
			stats = &WorkoutTypeStats{WorkoutType: s.WorkoutType}
			byType[s.WorkoutType] = stats
		}
		stats.Workouts++
		if s.DurationMinutes != nil {
			stats.TotalDurationMinutes += *s.DurationMinutes
		}
	}

	distribution := make([]WorkoutTypeStats, 0, len(byType))
	for _, stats := range byType {
		distribution = append(distribution, *stats)
	}
	sort.Slice(distribution, func(i, j int) bool {
		if distribution[i].Workouts != distribution[j].Workouts {
			return distribution[i].Workouts > distribution[j].Workouts
		}
		return distribution[i].WorkoutType < distribution[j].WorkoutType
	})

	return distribution
}

// recentTrend compares [now-7d, now) against [now-14d, now-7d). Both
// windows are half-open so a session landing exactly on a boundary instant
// is counted once.
func recentTrend(allSessions []sessions.Session, now time.Time) RecentTrend {
	weekAgo := now.Add(-7 * 24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)

	var trend RecentTrend
	for _, s := range allSessions {
		switch {
		case !s.StartTime.Before(weekAgo) && s.StartTime.Before(now):
			trend.LastWeek.Workouts++
			if s.TotalDistance != nil {
				trend.LastWeek.TotalDistance += *s.TotalDistance
			}
		case !s.StartTime.Before(twoWeeksAgo) && s.StartTime.Before(weekAgo):
			trend.PreviousWeek.Workouts++
			if s.TotalDistance != nil {
				trend.PreviousWeek.TotalDistance += *s.TotalDistance
			}
		}
	}

	trend.WorkoutsDelta = trend.LastWeek.Workouts - trend.PreviousWeek.Workouts
	trend.DistanceDelta = trend.LastWeek.TotalDistance - trend.PreviousWeek.TotalDistance
	return trend
}
