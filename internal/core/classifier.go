package core

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/valter-silva-au/build-brain/pkg/models"
)

var (
	commercialKeywords = []string{"commercial", "office", "retail", "warehouse"}
	renovationKeywords = []string{"renovation", "remodel", "upgrade", "retrofit"}
	smallKeywords      = []string{"small", "minor"}
	largeKeywords      = []string{"large", "major", "complex"}

	nonWordPattern = regexp.MustCompile(`\W+`)
)

const (
	// Descriptions shorter than this are classified as small.
	smallDescriptionLength = 100
	// Descriptions longer than this are classified as large.
	largeDescriptionLength = 300
)

// ProjectClassifier maps free-text project details to a project type and scale.
type ProjectClassifier interface {
	AnalyzeProject(title, description string) models.ProjectAnalysis
}

type keywordClassifier struct{}

// NewProjectClassifier returns the keyword-based classifier.
func NewProjectClassifier() ProjectClassifier {
	return keywordClassifier{}
}

// AnalyzeProject classifies a project by substring search over its title and
// description. It never fails.
//
// The rules are order-dependent: the commercial check runs before the
// renovation check, and the large check runs after the small check, so a text
// matching both sides resolves to commercial and large respectively.
func (keywordClassifier) AnalyzeProject(title, description string) models.ProjectAnalysis {
	text := strings.ToLower(title + " " + description)

	analysis := models.ProjectAnalysis{
		ProjectType: models.ProjectResidential,
		Scale:       models.ScaleMedium,
		Keywords:    tokenize(text),
	}

	if containsAny(text, commercialKeywords) {
		analysis.ProjectType = models.ProjectCommercial
	} else if containsAny(text, renovationKeywords) {
		analysis.ProjectType = models.ProjectRenovation
	}

	descLen := utf8.RuneCountInString(description)
	if containsAny(text, smallKeywords) || descLen < smallDescriptionLength {
		analysis.Scale = models.ScaleSmall
	}
	if containsAny(text, largeKeywords) || descLen > largeDescriptionLength {
		analysis.Scale = models.ScaleLarge
	}

	return analysis
}

func tokenize(text string) []string {
	parts := nonWordPattern.Split(text, -1)
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
