// Package trust maps a member's role set to an integer trust weight used as
// vote weight and as the tier gate for direct moderation actions.
package trust

import "strings"

// Trust weights by role tier. A member's weight is the highest tier among
// their recognized roles; unrecognized roles contribute nothing.
const (
	WeightNone      = 0
	WeightModerator = 1
	WeightAdmin     = 2
	WeightOwner     = 3
)

// Role vocabulary, matched case-insensitively.
var (
	ownerRoles     = []string{"owner", "owner :3"}
	adminRoles     = []string{"administrator"}
	moderatorRoles = []string{"moderator"}
	traineeRoles   = []string{"trainee"}
)

// Member is the minimal view of a guild member the trust model needs: the
// member's role names and whether the platform grants them the administrator
// permission outright.
type Member struct {
	ID           string
	Username     string
	Roles        []string
	IsGuildAdmin bool
}

func hasAny(roles []string, vocabulary []string) bool {
	for _, role := range roles {
		lower := strings.ToLower(role)
		for _, want := range vocabulary {
			if lower == want {
				return true
			}
		}
	}
	return false
}

// Weight returns the member's trust weight in {0,1,2,3}. Deterministic and
// side-effect-free; the highest-ranking qualifying role wins.
func Weight(m Member) int {
	switch {
	case hasAny(m.Roles, ownerRoles):
		return WeightOwner
	case hasAny(m.Roles, adminRoles):
		return WeightAdmin
	case hasAny(m.Roles, moderatorRoles):
		return WeightModerator
	default:
		return WeightNone
	}
}

// Recognized reports whether the member holds any recognized tier, trainee
// included. This is the gate for warn, timeout, unmute and log access.
func Recognized(m Member) bool {
	return Weight(m) > WeightNone || hasAny(m.Roles, traineeRoles)
}

// CanRequest reports whether the member may open a ban request. Same set as
// Recognized: the lowest eligible tier is trainee.
func CanRequest(m Member) bool {
	return Recognized(m)
}

// Elevated reports whether the member may perform direct ban and unban
// actions without a vote: moderator tier or above, or the platform
// administrator permission as an override.
func Elevated(m Member) bool {
	return Weight(m) >= WeightModerator || m.IsGuildAdmin
}
