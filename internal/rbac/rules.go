package rbac

// Role names carried in JWT claims and request contexts.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

const (
	PermQuizTake         = "quiz:take"
	PermLeaderboardView  = "leaderboard:view"
	PermBankView         = "bank:view"
	PermBankManage       = "bank:manage"
	PermBankImport       = "bank:import"
	PermSettingsManage   = "settings:manage"
	PermLeaderboardClear = "leaderboard:clear"
	PermAssetsUpload     = "assets:upload"
)

// RolePermissions is the default policy. Students are anonymous and never
// hold a token; student routes assign RoleStudent before checking.
var RolePermissions = map[string][]string{
	RoleStudent: {
		PermQuizTake,
		PermLeaderboardView,
	},
	RoleAdmin: {
		"*", // everything
	},
}
