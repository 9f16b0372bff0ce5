package models

// Rule-based segment labels, in evaluation order.
const (
	SegmentPowerShoppers = "Power Shoppers"
	SegmentCustomers     = "Customers"
	SegmentBrowsers      = "Browsers"
	SegmentVisitors      = "Visitors"
)

// FallbackSegment labels the single summary row produced when clustering
// cannot run.
const (
	FallbackSegment     = "All Users"
	FallbackDescription = "Basic segmentation due to insufficient data"
)

// ClusterLabel is one of the fixed descriptive labels assigned to clusters.
type ClusterLabel struct {
	Name        string
	Description string
}

// ClusterLabels is ordered: cluster position i receives ClusterLabels[i].
var ClusterLabels = []ClusterLabel{
	{Name: "High-Value Customers", Description: "Frequent purchases, long sessions"},
	{Name: "Regular Customers", Description: "Average purchase frequency"},
	{Name: "Occasional Browsers", Description: "Low purchase rate, short sessions"},
	{Name: "New/Inactive Users", Description: "Very few interactions"},
}

type SegmentSummary struct {
	Segment            string  `json:"Segment"`
	Description        string  `json:"Description"`
	Size               int     `json:"Size"`
	AvgPurchases       float64 `json:"Avg_Purchases"`
	AvgSessionDuration float64 `json:"Avg_Session_Duration"`
}

// ClusterStats are the rounded per-cluster means behind a summary row.
type ClusterStats struct {
	Cluster            int     `json:"cluster"`
	Users              int     `json:"users"`
	AvgEvents          float64 `json:"avg_events"`
	AvgPurchases       float64 `json:"avg_purchases"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
	AvgSessions        float64 `json:"avg_sessions"`
}
