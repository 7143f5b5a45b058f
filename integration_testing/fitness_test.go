//go:build integration

package integration_testing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fittrackio/fittrack/internal/fitness/metrics"
	"github.com/fittrackio/fittrack/internal/fitness/profiles"
	"github.com/fittrackio/fittrack/internal/fitness/sessions"
	"github.com/fittrackio/fittrack/internal/fitness/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestProfile_GetAndUpdate() {
	ctx := context.Background()
	token, user, _ := s.registerUser(ctx)

	// register creates a default profile
	profBytes := s.doRequest(ctx, "GET", "/api/profile", token, nil, http.StatusOK)
	var prof profiles.ProfileResponse
	require.NoError(s.T(), json.Unmarshal(profBytes, &prof))
	assert.Equal(s.T(), user.ID, prof.UserID)
	assert.Equal(s.T(), profiles.GoalGeneralFitness, prof.FitnessGoal)
	assert.Nil(s.T(), prof.BMI)
	assert.Equal(s.T(), 190, prof.MaxHeartRate)

	// a partial update keeps everything else intact
	updatedBytes := s.doRequest(ctx, "PUT", "/api/profile", token, map[string]any{
		"age":      30,
		"weightKg": 80.0,
		"heightCm": 180.0,
	}, http.StatusOK)
	var updated profiles.ProfileResponse
	require.NoError(s.T(), json.Unmarshal(updatedBytes, &updated))
	require.NotNil(s.T(), updated.Age)
	assert.Equal(s.T(), 30, *updated.Age)
	require.NotNil(s.T(), updated.BMI)
	assert.InDelta(s.T(), 24.69, *updated.BMI, 0.001)
	assert.Equal(s.T(), 190, updated.MaxHeartRate)

	// invalid age rejected
	s.doRequest(ctx, "PUT", "/api/profile", token, map[string]any{
		"age": 240,
	}, http.StatusBadRequest)
}

func (s *IntegrationTestSuite) TestWorkouts_Lifecycle() {
	ctx := context.Background()
	token, _, _ := s.registerUser(ctx)

	start := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Second)
	end := start.Add(45 * time.Minute)

	addedBytes := s.doRequest(ctx, "POST", "/api/workouts", token, map[string]any{
		"workoutType":   "running",
		"title":         "morning run",
		"startTime":     start,
		"endTime":       end,
		"totalDistance": 8.5,
		"totalCalories": 500,
		"avgHeartRate":  150,
	}, http.StatusCreated)
	var added sessions.Session
	require.NoError(s.T(), json.Unmarshal(addedBytes, &added))
	require.NotZero(s.T(), added.ID)
	require.NotNil(s.T(), added.DurationMinutes)
	assert.Equal(s.T(), 45, *added.DurationMinutes)

	// detail includes the (still empty) readings
	detailBytes := s.doRequest(
		ctx, "GET", fmt.Sprintf("/api/workouts/%d", added.ID), token, nil, http.StatusOK,
	)
	var detail sessions.DetailView
	require.NoError(s.T(), json.Unmarshal(detailBytes, &detail))
	assert.Equal(s.T(), "morning run", detail.Title)
	assert.Empty(s.T(), detail.Metrics)

	// update the title and strava-style notes
	updated := detail.Session
	updated.Title = "morning run, intervals"
	updated.Notes = "felt good"
	updatedBytes := s.doRequest(
		ctx, "PUT", fmt.Sprintf("/api/workouts/%d", added.ID),
		token, updated, http.StatusOK,
	)
	var afterUpdate sessions.Session
	require.NoError(s.T(), json.Unmarshal(updatedBytes, &afterUpdate))
	assert.Equal(s.T(), "morning run, intervals", afterUpdate.Title)

	// list it back, filtered by type
	listBytes := s.doRequest(
		ctx, "GET", "/api/workouts?workout_type=running", token, nil, http.StatusOK,
	)
	var list sessions.ListResponse
	require.NoError(s.T(), json.Unmarshal(listBytes, &list))
	require.Equal(s.T(), 1, list.Total)
	assert.Equal(s.T(), added.ID, list.Sessions[0].ID)

	// unknown filter value rejected
	s.doRequest(ctx, "GET", "/api/workouts?workout_type=parkour", token, nil, http.StatusBadRequest)

	// and a session of another user is invisible
	otherToken, _, _ := s.registerUser(ctx)
	s.doRequest(
		ctx, "GET", fmt.Sprintf("/api/workouts/%d", added.ID),
		otherToken, nil, http.StatusNotFound,
	)

	deleteBytes := s.doRequest(
		ctx, "DELETE", fmt.Sprintf("/api/workouts/%d", added.ID),
		token, nil, http.StatusOK,
	)
	var deleteResp sessions.DeleteSessionResponse
	require.NoError(s.T(), json.Unmarshal(deleteBytes, &deleteResp))
	assert.Equal(s.T(), added.ID, deleteResp.DeletedID)

	s.doRequest(
		ctx, "GET", fmt.Sprintf("/api/workouts/%d", added.ID),
		token, nil, http.StatusNotFound,
	)
}

func (s *IntegrationTestSuite) TestStats_FullFlow() {
	ctx := context.Background()
	token, _, _ := s.registerUser(ctx)

	// age 30 => max heart rate 190
	s.doRequest(ctx, "PUT", "/api/profile", token, map[string]any{"age": 30}, http.StatusOK)

	day1 := time.Now().UTC().AddDate(0, 0, -3).Truncate(24 * time.Hour).Add(8 * time.Hour)
	day2 := day1.AddDate(0, 0, 1)

	addWorkout := func(start time.Time, durationMin int, distance float64, calories int) sessions.Session {
		end := start.Add(time.Duration(durationMin) * time.Minute)
		body := map[string]any{
			"workoutType":   "running",
			"title":         "run",
			"startTime":     start,
			"endTime":       end,
			"totalDistance": distance,
			"totalCalories": calories,
			"avgHeartRate":  150,
		}
		respBytes := s.doRequest(ctx, "POST", "/api/workouts", token, body, http.StatusCreated)
		var added sessions.Session
		require.NoError(s.T(), json.Unmarshal(respBytes, &added))
		return added
	}

	first := addWorkout(day1, 60, 10, 600)
	addWorkout(day2, 30, 5, 300)
	addWorkout(day2.Add(10*time.Hour), 30, 5, 300)

	// heart rate readings for the first workout
	for i, hr := range []int{100, 140, 171} {
		metricBytes := s.doRequest(
			ctx, "POST", fmt.Sprintf("/api/workouts/%d/metrics", first.ID),
			token, map[string]any{
				"timestamp": day1.Add(time.Duration(i*10) * time.Minute),
				"heartRate": hr,
			}, http.StatusCreated,
		)
		var added metrics.Metric
		require.NoError(s.T(), json.Unmarshal(metricBytes, &added))
		require.NotZero(s.T(), added.ID)
	}

	// a reading outside the session bounds is rejected
	s.doRequest(
		ctx, "POST", fmt.Sprintf("/api/workouts/%d/metrics", first.ID),
		token, map[string]any{
			"timestamp": day1.Add(-time.Hour),
			"heartRate": 120,
		}, http.StatusBadRequest,
	)

	// daily statistics: two buckets, ascending
	statsBytes := s.doRequest(ctx, "GET", "/api/stats?period=day", token, nil, http.StatusOK)
	var buckets []stats.PeriodBucket
	require.NoError(s.T(), json.Unmarshal(statsBytes, &buckets))
	require.Len(s.T(), buckets, 2)
	assert.Equal(s.T(), 1, buckets[0].Workouts)
	assert.Equal(s.T(), 2, buckets[1].Workouts)
	assert.Equal(s.T(), 10.0, buckets[0].TotalDistance)
	assert.Equal(s.T(), 60, buckets[0].TotalDurationMinutes)
	assert.True(s.T(), buckets[0].BucketStart.Before(buckets[1].BucketStart))

	// cumulative progress
	progressBytes := s.doRequest(ctx, "GET", "/api/stats/progress", token, nil, http.StatusOK)
	var progress []stats.CumulativePoint
	require.NoError(s.T(), json.Unmarshal(progressBytes, &progress))
	require.Len(s.T(), progress, 2)
	assert.Equal(s.T(), 1, progress[0].Workouts)
	assert.Equal(s.T(), 3, progress[1].Workouts)
	assert.Equal(s.T(), 20.0, progress[1].TotalDistance)

	// chart projection
	chartBytes := s.doRequest(
		ctx, "GET", "/api/stats/chart?period=day&metric=distance", token, nil, http.StatusOK,
	)
	var chart stats.ChartSeries
	require.NoError(s.T(), json.Unmarshal(chartBytes, &chart))
	require.Len(s.T(), chart.Labels, 2)
	require.Len(s.T(), chart.Datasets, 1)
	assert.Equal(s.T(), []float64{10, 10}, chart.Datasets[0].Data)

	// summary
	summaryBytes := s.doRequest(ctx, "GET", "/api/stats/summary", token, nil, http.StatusOK)
	var summary stats.Summary
	require.NoError(s.T(), json.Unmarshal(summaryBytes, &summary))
	assert.Equal(s.T(), 3, summary.Overall.Workouts)
	assert.Equal(s.T(), 20.0, summary.Overall.TotalDistance)
	require.Len(s.T(), summary.WorkoutTypes, 1)
	assert.Equal(s.T(), sessions.WorkoutRunning, summary.WorkoutTypes[0].WorkoutType)

	// heart rate zones for the workout with readings; max heart rate 190
	zonesBytes := s.doRequest(
		ctx, "GET", fmt.Sprintf("/api/workouts/%d/zones", first.ID), token, nil, http.StatusOK,
	)
	var zones stats.ZoneAnalysis
	require.NoError(s.T(), json.Unmarshal(zonesBytes, &zones))
	assert.Equal(s.T(), 190, zones.MaxHeartRate)
	assert.Equal(s.T(), 3, zones.TotalReadings)
	require.Len(s.T(), zones.Zones, 5)

	// a workout without readings has no zones to offer
	second := addWorkout(day2.Add(12*time.Hour), 20, 2, 100)
	s.doRequest(
		ctx, "GET", fmt.Sprintf("/api/workouts/%d/zones", second.ID),
		token, nil, http.StatusNotFound,
	)
}
