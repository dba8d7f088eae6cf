package dto

// AdminDashboardResponse is the aggregated admin view.
type AdminDashboardResponse struct {
	OpenedTickets        int                    `json:"openedTickets"`
	OverdueTickets       int                    `json:"overdueTickets"`
	ResolvedThisMonth    int                    `json:"resolvedThisMonth"`
	TotalComplaints      int                    `json:"totalComplaints"`
	MostReportedFacility *MostReportedFacility  `json:"mostReportedFacility"`
	FacilityData         []FacilityCount        `json:"facilityData"`
	TrendChartData       []TrendPoint           `json:"trendChartData"`
	StaffChartData       []StaffOpenLoad        `json:"staffChartData"`
	StaffPerformance     []StaffPerformanceItem `json:"staffPerformance"`
	GeneratedAt          string                 `json:"generatedAt"`
}

// MostReportedFacility is the facility with the highest complaint count.
type MostReportedFacility struct {
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type FacilityCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TrendPoint is one month of the six month trend.
type TrendPoint struct {
	Month        string  `json:"month"`
	Complaints   int     `json:"complaints"`
	Satisfaction float64 `json:"satisfaction"`
}

// StaffOpenLoad reports a staff member's unresolved complaints.
type StaffOpenLoad struct {
	StaffID        string `json:"staffId"`
	Name           string `json:"name"`
	OpenCount      int    `json:"openCount"`
	OldestOpenDays int    `json:"oldestOpenDays"`
}

// StaffPerformanceItem rates a staff member from student feedback.
type StaffPerformanceItem struct {
	StaffID       string  `json:"staffId"`
	Name          string  `json:"name"`
	Group         string  `json:"group"`
	ResolvedCount int     `json:"resolvedCount"`
	RatedCount    int     `json:"ratedCount"`
	AverageRating float64 `json:"averageRating"`
	RatingLabel   string  `json:"ratingLabel"`
}

// StaffAnalyticsResponse is the admin drill-down for one staff member.
type StaffAnalyticsResponse struct {
	Performance StaffPerformanceItem `json:"performance"`
	OpenLoad    StaffOpenLoad        `json:"openLoad"`
}
