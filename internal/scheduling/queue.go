package scheduling

import (
	"sort"

	"github.com/KentSpendy/BukCare/pkg/types"
)

// DefaultDoctorQueueTriage is the triage subset a doctor's queue shows when
// no explicit filter is requested: patients waiting or in consultation.
var DefaultDoctorQueueTriage = []types.TriageStatus{types.TriageWaiting, types.TriageInConsultation}

// BuildQueue filters a doctor's approved appointments for the day down to
// the live queue, ordered by slot start time. A nil or empty triage subset
// keeps every approved appointment regardless of triage state. The first
// waiting patient is flagged as next.
func BuildQueue(appointments []*types.Appointment, triage []types.TriageStatus) []*types.QueueEntry {
	var queue []*types.QueueEntry
	for _, apt := range appointments {
		if apt.Status != types.StatusApproved {
			continue
		}
		if len(triage) > 0 && !triageIn(apt.TriageStatus, triage) {
			continue
		}
		queue = append(queue, &types.QueueEntry{Appointment: apt})
	}

	// Zero-padded HH:MM sorts chronologically as a plain string
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].StartTime < queue[j].StartTime
	})

	for i, entry := range queue {
		entry.Position = i + 1
	}

	for _, entry := range queue {
		if entry.TriageStatus == types.TriageWaiting {
			entry.Next = true
			break
		}
	}

	return queue
}

func triageIn(status types.TriageStatus, subset []types.TriageStatus) bool {
	for _, t := range subset {
		if status == t {
			return true
		}
	}
	return false
}
