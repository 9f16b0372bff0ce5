package models

type DailyActivity struct {
	Date      string `json:"date"`
	PageViews int    `json:"page_views"`
	Orders    int    `json:"orders"`
}

type UserPoint struct {
	UserID         string `json:"user_id"`
	TotalEvents    int    `json:"total_events"`
	TotalPurchases int    `json:"total_purchases"`
	Segment        string `json:"segment"`
}

type HistogramBin struct {
	Lower     float64        `json:"lower"`
	Upper     float64        `json:"upper"`
	Count     int            `json:"count"`
	BySegment map[string]int `json:"by_segment"`
}

type FunnelStage struct {
	Label          string  `json:"label"`
	Count          int     `json:"count"`
	PercentInitial float64 `json:"percent_initial"`
}
