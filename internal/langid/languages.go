package langid

import (
	"maps"
	"slices"

	"github.com/MrWong99/lidroute/pkg/types"
)

// languageNames is the fixed registry of supported language codes.
var languageNames = map[string]string{
	"hi": "Hindi",
	"kn": "Kannada",
	"te": "Telugu",
	"ta": "Tamil",
	"ml": "Malayalam",
	"mr": "Marathi",
	"gu": "Gujarati",
	"bn": "Bengali",
	"pa": "Punjabi",
	"or": "Odia",
	"ur": "Urdu",
	"as": "Assamese",
}

// dedicatedRoutes holds the languages that have their own downstream service.
var dedicatedRoutes = map[string]types.RouteKey{
	"hi": types.RouteHindi,
	"kn": types.RouteKannada,
	"te": types.RouteTelugu,
}

// Language is a registry entry.
type Language struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	RouteKey types.RouteKey `json:"route_key"`
}

// Name returns the display name for code, or "Other" when code is not in the
// registry.
func Name(code string) string {
	if n, ok := languageNames[code]; ok {
		return n
	}
	return types.NameOther
}

// IsSupported reports whether code is in the registry.
func IsSupported(code string) bool {
	_, ok := languageNames[code]
	return ok
}

// Route returns the route key for a confidently identified code: a dedicated
// key for hi/kn/te, "nlu_indic" for other registry codes and "nlu_other"
// otherwise.
func Route(code string) types.RouteKey {
	if k, ok := dedicatedRoutes[code]; ok {
		return k
	}
	if IsSupported(code) {
		return types.RouteIndic
	}
	return types.RouteOther
}

// Languages returns the registry sorted by code.
func Languages() []Language {
	codes := slices.Sorted(maps.Keys(languageNames))
	out := make([]Language, 0, len(codes))
	for _, c := range codes {
		out = append(out, Language{Code: c, Name: languageNames[c], RouteKey: Route(c)})
	}
	return out
}
