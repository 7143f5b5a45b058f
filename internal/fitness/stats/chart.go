package stats

import "fmt"

// ChartMetric selects the per-bucket value projected into a chart series.
type ChartMetric string

const (
	ChartMetricCalories ChartMetric = "calories"
	ChartMetricDistance ChartMetric = "distance"
	ChartMetricDuration ChartMetric = "duration"
	ChartMetricWorkouts ChartMetric = "workouts"
)

// ParseChartMetric parses the metric query param, defaulting to calories
// when absent.
func ParseChartMetric(s string) (ChartMetric, error) {
	switch ChartMetric(s) {
	case ChartMetricCalories, ChartMetricDistance, ChartMetricDuration, ChartMetricWorkouts:
		return ChartMetric(s), nil
	case "":
		return ChartMetricCalories, nil
	}
	return "", fmt.Errorf("invalid metric: %s", s)
}

type ChartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

type ChartSeries struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ToChartSeries projects one metric out of the aggregation result into a
// chart-friendly shape. It is presentation only: no new aggregation
// happens here, the labels keep the ascending bucket order.
func ToChartSeries(buckets []PeriodBucket, metric ChartMetric) ChartSeries {
	labels := make([]string, 0, len(buckets))
	data := make([]float64, 0, len(buckets))
	for _, bucket := range buckets {
		labels = append(labels, bucket.BucketStart.Format("2006-01-02"))

		var value float64
		switch metric {
		case ChartMetricDistance:
			value = bucket.TotalDistance
		case ChartMetricDuration:
			value = float64(bucket.TotalDurationMinutes)
		case ChartMetricWorkouts:
			value = float64(bucket.Workouts)
		default:
			value = float64(bucket.TotalCalories)
		}
		data = append(data, value)
	}

	return ChartSeries{
		Labels: labels,
		Datasets: []ChartDataset{
			{
				Label: string(metric),
				Data:  data,
			},
		},
	}
}
