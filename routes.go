package probax

import "net/http"

// Route capabilities, used as metric labels.
const (
	CapabilitySuggest = "suggest"
	CapabilitySearch  = "search"
	CapabilityPredict = "predict"
	CapabilityWeather = "weather"
)

// PredictBody says which team identity a prediction tier sends.
type PredictBody string

const (
	PredictByIDs   PredictBody = "ids"
	PredictByNames PredictBody = "names"
)

// PredictTier is one shape of the prediction capability
type PredictTier struct {
	Method string      `json:"method"`
	Path   string      `json:"path"`
	Body   PredictBody `json:"body"`
}

// Routes lists the backend route variants for every capability, in the
// order they are attempted.
type Routes struct {
	Suggest string        `json:"suggest"`
	Search  []string      `json:"search"`
	Predict []PredictTier `json:"predict"`
	Weather string        `json:"weather"`
}

// DefaultRoutes returns the route lists of the current backend deployments.
func DefaultRoutes() Routes {
	return Routes{
		Suggest: "/api/v1/teams/suggest",
		Search: []string{
			"/api/v1/teams/search",
			"/api/v1/teams/suggest",
			"/api/v1/teams/autocomplete",
		},
		Predict: []PredictTier{
			{Method: http.MethodPost, Path: "/api/v1/match/aggregate", Body: PredictByIDs},
			{Method: http.MethodPost, Path: "/api/v1/odds/predict", Body: PredictByNames},
			{Method: http.MethodGet, Path: "/api/v1/odds/predict", Body: PredictByNames},
		},
		Weather: "/api/v1/weather/global",
	}
}
