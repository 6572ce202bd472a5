package session

import "gatedesk/models"

// DutyPolicy decides a guard's duty status. current is the signed-in operator; signedIn is false
// when nobody is.
type DutyPolicy func(g models.Guard, current models.Identity, signedIn bool) models.DutyStatus

// SessionMatchPolicy treats the signed-in guard as on duty and everyone else as off duty.
// It reflects presence at this console, not a duty roster.
func SessionMatchPolicy(g models.Guard, current models.Identity, signedIn bool) models.DutyStatus {
	if signedIn && g.Code != "" && g.Code == current.Code {
		return models.DutyOn
	}
	return models.DutyOff
}

// Roster attaches a duty status to every guard.
func Roster(guards []models.Guard, current models.Identity, signedIn bool, policy DutyPolicy) []models.RosterGuard {
	if policy == nil {
		policy = SessionMatchPolicy
	}
	out := make([]models.RosterGuard, 0, len(guards))
	for _, g := range guards {
		out = append(out, models.RosterGuard{Guard: g, Status: policy(g, current, signedIn)})
	}
	return out
}
