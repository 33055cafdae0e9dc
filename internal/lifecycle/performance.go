package lifecycle

// TechnicianPerformance is derived from a technician's work orders on demand and never stored
type TechnicianPerformance struct {
	Total            int     `json:"total"`
	Unassigned       int     `json:"unassigned"`
	PendingApprovals int     `json:"pendingApprovals"`
	InProgress       int     `json:"inProgress"`
	Transferred      int     `json:"transferred"`
	Completed        int     `json:"completed"`
	CompletionRate   float64 `json:"completionRate"`
}

// Performance counts items per bucket. CompletionRate is completed/total in percent,
// zero for an empty list.
func Performance[T Item](items []T) TechnicianPerformance {
	var p TechnicianPerformance
	for _, item := range items {
		p.Total++
		switch BucketOf(item.CurrentStatus()) {
		case BucketPendingApprovals:
			p.PendingApprovals++
		case BucketInProgress:
			p.InProgress++
		case BucketTransferred:
			p.Transferred++
		case BucketCompleted:
			p.Completed++
		default:
			p.Unassigned++
		}
	}
	if p.Total > 0 {
		p.CompletionRate = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}
