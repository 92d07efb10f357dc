package entities

// Session store keys. The names are part of the contract with older clients
// and carry no schema version.
const (
	SessionKeyToken             = "token"
	SessionKeyAccessToken       = "access_token"
	SessionKeyUser              = "user"
	SessionKeyRememberMe        = "remember_me"
	SessionKeySparePartsPrefs   = "sparePartsPreferences"
	SessionKeyActiveTab         = "active_tab"
	SessionKeyNotifications     = "notifications"
	SessionKeyRecentSearchQuery = "recent_search_query"
)

// FieldErrors maps form field ids to inline validation messages.
type FieldErrors map[string]string

// Error implements error so validation failures can travel the error path.
func (f FieldErrors) Error() string {
	for field, msg := range f {
		return field + ": " + msg
	}
	return "validation failed"
}
