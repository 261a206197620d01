package analytics

import "strings"

// ApplicationStats summarizes the job application funnel.
type ApplicationStats struct {
	Total         int                       `json:"total"`
	ByStatus      map[ApplicationStatus]int `json:"by_status"`
	ResponseRate  float64                   `json:"response_rate"`
	InterviewRate float64                   `json:"interview_rate"`
	OfferRate     float64                   `json:"offer_rate"`
}

// AggregateApplications counts applications per status and derives the
// response, interview and offer rates. Every status key is present.
func AggregateApplications(apps []Application) ApplicationStats {
	stats := ApplicationStats{
		Total:    len(apps),
		ByStatus: make(map[ApplicationStatus]int, len(ApplicationStatuses)),
	}
	for _, s := range ApplicationStatuses {
		stats.ByStatus[s] = 0
	}

	var responded, interviewed, offered int
	for _, a := range apps {
		stats.ByStatus[a.Status]++
		if a.Status.responded() || a.InterviewCount >= 1 {
			responded++
		}
		if a.InterviewCount >= 1 {
			interviewed++
		}
		if a.Status.offered() {
			offered++
		}
	}

	stats.ResponseRate = ratio(responded, stats.Total)
	stats.InterviewRate = ratio(interviewed, stats.Total)
	stats.OfferRate = ratio(offered, stats.Total)
	return stats
}

// ConversionRates are stage-to-stage ratios of the dealflow pipeline. Each is
// count(at or past the later stage) / count(at or past the earlier stage).
type ConversionRates struct {
	SourcedToContacted  float64 `json:"sourced_to_contacted"`
	ContactedToMeeting  float64 `json:"contacted_to_meeting"`
	MeetingToShared     float64 `json:"meeting_to_shared"`
	SharedToProgressing float64 `json:"shared_to_progressing"`
}

// NetworkGrowth totals outreach effort across the pipeline.
type NetworkGrowth struct {
	TotalEmailsSent   int `json:"total_emails_sent"`
	TotalMeetingsHeld int `json:"total_meetings_held"`
	IntrosMade        int `json:"intros_made"`
}

// DealflowStats summarizes the dealflow pipeline.
type DealflowStats struct {
	Total           int                    `json:"total"`
	Pipeline        map[DealflowStatus]int `json:"pipeline"`
	ConversionRates ConversionRates        `json:"conversion_rates"`
	NetworkGrowth   NetworkGrowth          `json:"network_growth"`
	Outcomes        map[string]int         `json:"outcomes"`
}

// AggregateDealflow counts entries per stage, derives conversion rates and
// sums outreach counters. Outcomes counts the recorded outcomes of closed
// entries.
func AggregateDealflow(entries []DealflowEntry) DealflowStats {
	stats := DealflowStats{
		Total:    len(entries),
		Pipeline: make(map[DealflowStatus]int, len(DealflowStages)),
		Outcomes: make(map[string]int),
	}
	for _, s := range DealflowStages {
		stats.Pipeline[s] = 0
	}

	reached := make(map[DealflowStatus]int, len(DealflowStages))
	for _, e := range entries {
		stats.Pipeline[e.Status]++
		for _, s := range DealflowStages {
			if e.Status.AtOrPast(s) {
				reached[s]++
			}
		}

		stats.NetworkGrowth.TotalEmailsSent += e.EmailsSent
		stats.NetworkGrowth.TotalMeetingsHeld += e.MeetingsHeld
		if strings.TrimSpace(e.IntroMadeTo) != "" {
			stats.NetworkGrowth.IntrosMade++
		}

		if e.Status == StageClosed {
			if o := strings.TrimSpace(e.Outcome); o != "" {
				stats.Outcomes[o]++
			}
		}
	}

	stats.ConversionRates = ConversionRates{
		SourcedToContacted:  ratio(reached[StageContacted], reached[StageSourced]),
		ContactedToMeeting:  ratio(reached[StageMeeting], reached[StageContacted]),
		MeetingToShared:     ratio(reached[StageShared], reached[StageMeeting]),
		SharedToProgressing: ratio(reached[StageProgressing], reached[StageShared]),
	}
	return stats
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
