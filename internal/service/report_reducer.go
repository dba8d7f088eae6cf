package service

import (
	"math"
	"sort"
	"time"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/models"
)

const (
	trendMonths      = 6
	topFacilityLimit = 5
)

// ReportSnapshot is everything the dashboard reduces over. Complaints must be
// ordered by created_at then task_id so tie-breaks are stable.
type ReportSnapshot struct {
	Complaints []models.ComplaintView
	Feedback   []models.Feedback
	Staff      []models.StaffMember
}

// ReduceDashboard computes the admin dashboard in one pass over the snapshot.
func ReduceDashboard(snap ReportSnapshot, now time.Time, overdueAfter time.Duration) dto.AdminDashboardResponse {
	resp := dto.AdminDashboardResponse{
		TotalComplaints:  len(snap.Complaints),
		FacilityData:     []dto.FacilityCount{},
		TrendChartData:   TrendChart(snap, now),
		StaffChartData:   StaffOpenLoads(snap, now),
		StaffPerformance: StaffPerformance(snap),
		GeneratedAt:      now.Format(time.RFC3339),
	}

	var facilities []dto.FacilityCount
	facilityIndex := map[string]int{}
	for _, c := range snap.Complaints {
		if c.StatusID != models.StatusResolved {
			resp.OpenedTickets++
			if now.Sub(c.CreatedAt) > overdueAfter {
				resp.OverdueTickets++
			}
		}
		if c.ResolvedAt != nil && sameMonth(c.ResolvedAt.In(now.Location()), now) {
			resp.ResolvedThisMonth++
		}

		i, ok := facilityIndex[c.FacilityName]
		if !ok {
			i = len(facilities)
			facilityIndex[c.FacilityName] = i
			facilities = append(facilities, dto.FacilityCount{Name: c.FacilityName})
		}
		facilities[i].Count++
	}

	resp.MostReportedFacility = mostReported(facilities, len(snap.Complaints))

	// stable sort keeps first-seen order among equal counts
	sort.SliceStable(facilities, func(i, j int) bool { return facilities[i].Count > facilities[j].Count })
	if len(facilities) > topFacilityLimit {
		facilities = facilities[:topFacilityLimit]
	}
	if facilities != nil {
		resp.FacilityData = facilities
	}
	return resp
}

func mostReported(facilities []dto.FacilityCount, total int) *dto.MostReportedFacility {
	if total == 0 || len(facilities) == 0 {
		return nil
	}
	best := facilities[0]
	for _, f := range facilities[1:] {
		if f.Count > best.Count {
			best = f
		}
	}
	return &dto.MostReportedFacility{
		Name:       best.Name,
		Count:      best.Count,
		Percentage: int(math.Round(100 * float64(best.Count) / float64(total))),
	}
}

// TrendChart returns the current month and the five before it, oldest
// first, with the complaints opened and the mean rating given in each.
func TrendChart(snap ReportSnapshot, now time.Time) []dto.TrendPoint {
	loc := now.Location()
	first := time.Date(now.Year(), now.Month()-trendMonths+1, 1, 0, 0, 0, 0, loc)

	points := make([]dto.TrendPoint, trendMonths)
	ratingSum := make([]int, trendMonths)
	ratingCount := make([]int, trendMonths)
	for i := range points {
		points[i].Month = first.AddDate(0, i, 0).Format("Jan")
	}

	for _, c := range snap.Complaints {
		if i := monthOffset(first, c.CreatedAt.In(loc)); i >= 0 && i < trendMonths {
			points[i].Complaints++
		}
	}
	for _, fb := range snap.Feedback {
		if i := monthOffset(first, fb.CreatedAt.In(loc)); i >= 0 && i < trendMonths {
			ratingSum[i] += fb.Rating
			ratingCount[i]++
		}
	}
	for i := range points {
		if ratingCount[i] > 0 {
			points[i].Satisfaction = round1(float64(ratingSum[i]) / float64(ratingCount[i]))
		}
	}
	return points
}

// StaffOpenLoads lists staff holding unresolved complaints in first-seen
// order.
func StaffOpenLoads(snap ReportSnapshot, now time.Time) []dto.StaffOpenLoad {
	names := staffNames(snap.Staff)
	index := map[string]int{}
	oldest := map[string]time.Time{}
	loads := []dto.StaffOpenLoad{}

	for _, c := range snap.Complaints {
		if c.AssignedTo == nil || c.ResolvedAt != nil {
			continue
		}
		id := *c.AssignedTo
		i, ok := index[id]
		if !ok {
			i = len(loads)
			index[id] = i
			name := names[id]
			if name == "" && c.AssigneeName != nil {
				name = *c.AssigneeName
			}
			loads = append(loads, dto.StaffOpenLoad{StaffID: id, Name: name})
		}
		loads[i].OpenCount++
		if prev, ok := oldest[id]; !ok || c.CreatedAt.Before(prev) {
			oldest[id] = c.CreatedAt
		}
	}
	for i := range loads {
		age := now.Sub(oldest[loads[i].StaffID])
		if age > 0 {
			loads[i].OldestOpenDays = int(age.Hours() / 24)
		}
	}
	return loads
}

// StaffPerformance rates every staff member from the feedback on the
// resolved complaints assigned to them.
func StaffPerformance(snap ReportSnapshot) []dto.StaffPerformanceItem {
	ratings := make(map[string]int, len(snap.Feedback))
	for _, fb := range snap.Feedback {
		ratings[fb.ComplaintID] = fb.Rating
	}

	type tally struct{ resolved, rated, sum int }
	tallies := map[string]*tally{}
	for _, c := range snap.Complaints {
		if c.AssignedTo == nil || c.StatusID != models.StatusResolved {
			continue
		}
		t := tallies[*c.AssignedTo]
		if t == nil {
			t = &tally{}
			tallies[*c.AssignedTo] = t
		}
		t.resolved++
		if !c.Feedback {
			continue
		}
		if rating, ok := ratings[c.ID]; ok {
			t.rated++
			t.sum += rating
		}
	}

	items := make([]dto.StaffPerformanceItem, 0, len(snap.Staff))
	for _, member := range snap.Staff {
		item := dto.StaffPerformanceItem{StaffID: member.ID, Name: member.FullName}
		if member.AssignedGroup != nil {
			item.Group = *member.AssignedGroup
		}
		var avg float64
		if t := tallies[member.ID]; t != nil {
			item.ResolvedCount = t.resolved
			item.RatedCount = t.rated
			if t.rated > 0 {
				avg = float64(t.sum) / float64(t.rated)
			}
		}
		item.AverageRating = round1(avg)
		item.RatingLabel = RatingLabel(avg)
		items = append(items, item)
	}
	return items
}

// RatingLabel bands an average rating.
func RatingLabel(avg float64) string {
	switch {
	case avg >= 4.5:
		return "Excellent"
	case avg >= 3.5:
		return "Satisfactory"
	case avg > 0:
		return "Needs Improvement"
	default:
		return "No Ratings"
	}
}

func staffNames(staff []models.StaffMember) map[string]string {
	names := make(map[string]string, len(staff))
	for _, s := range staff {
		names[s.ID] = s.FullName
	}
	return names
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func monthOffset(first, t time.Time) int {
	return (t.Year()-first.Year())*12 + int(t.Month()) - int(first.Month())
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
