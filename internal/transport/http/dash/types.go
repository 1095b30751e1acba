package dashhttp

import (
	"time"

	"tradedesk/internal/dashboard"
)

// BucketView 在 Bucket 之上附加图表配色分类。
type BucketView struct {
	Label           string         `json:"label"`
	Count           int            `json:"count"`
	ProfitableCount int            `json:"profitable_count"`
	LosingCount     int            `json:"losing_count"`
	Tone            dashboard.Tone `json:"tone"`
}

// VelocityView 是 /api/dash/velocity 的响应体。
type VelocityView struct {
	Buckets     []BucketView            `json:"buckets"`
	Stats       dashboard.ActivityStats `json:"stats"`
	WindowCount int                     `json:"window_count"`
	WindowSize  string                  `json:"window_size"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// BoundaryStatus 描述单个面板边界的健康状态。
type BoundaryStatus struct {
	Panel   string `json:"panel"`
	Failed  bool   `json:"failed"`
	LastErr string `json:"last_error,omitempty"`
}

func bucketViews(buckets []dashboard.Bucket) []BucketView {
	out := make([]BucketView, len(buckets))
	for i, b := range buckets {
		out[i] = BucketView{
			Label:           b.Label,
			Count:           b.Count,
			ProfitableCount: b.ProfitableCount,
			LosingCount:     b.LosingCount,
			Tone:            dashboard.BucketTone(buckets, i),
		}
	}
	return out
}
