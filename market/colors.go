package market

import "strings"

const defaultColorTag = "bg-accent"

var colorTags = map[string]string{
	// Project types
	"web_development":    "bg-blue-500",
	"mobile_development": "bg-purple-500",
	"design":             "bg-pink-500",
	"writing":            "bg-green-500",
	"marketing":          "bg-orange-500",
	"consulting":         "bg-indigo-500",
	"data_analysis":      "bg-teal-500",
	"other":              "bg-gray-500",

	// Locations
	"cairo":      "bg-accent",
	"alexandria": "bg-blue-500",
	"giza":       "bg-green-500",
	"egypt":      "bg-accent",
	"mena":       "bg-purple-500",
	"europe":     "bg-blue-500",
	"usa":        "bg-red-500",
	"global":     "bg-gray-500",
}

// ColorTag returns the chart colour for a project type or location.
func ColorTag(category string) string {
	if tag, ok := colorTags[strings.ToLower(category)]; ok {
		return tag
	}
	return defaultColorTag
}
