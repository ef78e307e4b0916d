package rabota

// API hosts.
const (
	ProductionHost = "https://api.rabota.ru"
	SandboxHost    = "https://api.rabota.wtf"
)

// Permission scopes accepted by the authorization page.
const (
	ScopeProfile   = "profile"
	ScopeVacancies = "vacancies"
	ScopeResume    = "resume"
)

// Display modes of the authorization page.
const (
	DisplayPage  = "page"
	DisplayPopup = "popup"
)

// Method is an HTTP method supported by the API.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// DefaultScopes returns every scope the API knows about.
func DefaultScopes() []string {
	return []string{ScopeProfile, ScopeVacancies, ScopeResume}
}

// Endpoints holds the endpoint paths, header and field names of the API.
// Paths are relative to the client host.
type Endpoints struct {
	Authorize    string
	Token        string
	RefreshToken string
	Logout       string

	// TokenHeader carries the access token on authenticated requests.
	TokenHeader string

	FieldAccessToken string
	FieldExpiresIn   string
	FieldSignature   string
	FieldAppID       string
	FieldRedirect    string
	FieldDisplay     string
	FieldCode        string
	FieldTime        string
	FieldScope       string

	// ParamToken is the request parameter naming the token to refresh or revoke.
	ParamToken string
}

// DefaultEndpoints returns the endpoint layout of the public API.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Authorize:    "/oauth/authorize.html",
		Token:        "/oauth/token.json",
		RefreshToken: "/oauth/refresh-token.json",
		Logout:       "/oauth/logout.json",

		TokenHeader: "X-Token",

		FieldAccessToken: "access_token",
		FieldExpiresIn:   "expires_in",
		FieldSignature:   "signature",
		FieldAppID:       "app_id",
		FieldRedirect:    "redirect_uri",
		FieldDisplay:     "display",
		FieldCode:        "code",
		FieldTime:        "time",
		FieldScope:       "scope",

		ParamToken: "token",
	}
}
