package core

import (
	"strings"
	"testing"

	"github.com/valter-silva-au/build-brain/pkg/models"
)

func TestAnalyzeProject_KitchenRemodel(t *testing.T) {
	c := NewProjectClassifier()

	got := c.AnalyzeProject("Kitchen Remodel", "Small renovation of kitchen")

	if got.ProjectType != models.ProjectRenovation {
		t.Errorf("ProjectType = %q, want %q", got.ProjectType, models.ProjectRenovation)
	}
	if got.Scale != models.ScaleSmall {
		t.Errorf("Scale = %q, want %q", got.Scale, models.ScaleSmall)
	}
}

func TestAnalyzeProject_Table(t *testing.T) {
	long := strings.Repeat("standard build ", 25) // 375 runes
	medium := strings.Repeat("x", 150)

	tests := []struct {
		name        string
		title       string
		description string
		wantType    models.ProjectType
		wantScale   models.Scale
	}{
		{"default residential", "Family Home", medium, models.ProjectResidential, models.ScaleMedium},
		{"commercial office", "New Office Building", medium, models.ProjectCommercial, models.ScaleMedium},
		{"retail keyword in description", "Unit 4", "retail fit out " + medium, models.ProjectCommercial, models.ScaleMedium},
		{"warehouse", "Warehouse", medium, models.ProjectCommercial, models.ScaleMedium},
		{"renovation keyword", "Bathroom Upgrade", medium, models.ProjectRenovation, models.ScaleMedium},
		{"retrofit keyword", "Seismic Retrofit", medium, models.ProjectRenovation, models.ScaleMedium},
		{"commercial wins over renovation", "Office Renovation", medium, models.ProjectCommercial, models.ScaleMedium},
		{"short description is small", "Shed", "A garden shed", models.ProjectResidential, models.ScaleSmall},
		{"minor keyword is small", "Minor works", medium, models.ProjectResidential, models.ScaleSmall},
		{"long description is large", "Home", long, models.ProjectResidential, models.ScaleLarge},
		{"major keyword is large", "Major Home", medium, models.ProjectResidential, models.ScaleLarge},
		{"large overrides small", "New Office Building", "A large commercial office complex", models.ProjectCommercial, models.ScaleLarge},
		{"case insensitive", "OFFICE TOWER", medium, models.ProjectCommercial, models.ScaleMedium},
		{"empty input", "", "", models.ProjectResidential, models.ScaleSmall},
	}

	c := NewProjectClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.AnalyzeProject(tt.title, tt.description)
			if got.ProjectType != tt.wantType {
				t.Errorf("ProjectType = %q, want %q", got.ProjectType, tt.wantType)
			}
			if got.Scale != tt.wantScale {
				t.Errorf("Scale = %q, want %q", got.Scale, tt.wantScale)
			}
		})
	}
}

func TestAnalyzeProject_SubstringMatch(t *testing.T) {
	// "officer" contains "office"; matching is by substring, not by word.
	got := NewProjectClassifier().AnalyzeProject("Officer's quarters", strings.Repeat("y", 120))
	if got.ProjectType != models.ProjectCommercial {
		t.Errorf("ProjectType = %q, want %q", got.ProjectType, models.ProjectCommercial)
	}
}

func TestAnalyzeProject_Keywords(t *testing.T) {
	got := NewProjectClassifier().AnalyzeProject("Kitchen Remodel", "Small renovation, of kitchen!")

	want := []string{"kitchen", "remodel", "small", "renovation", "of", "kitchen"}
	if len(got.Keywords) != len(want) {
		t.Fatalf("Keywords = %v, want %v", got.Keywords, want)
	}
	for i := range want {
		if got.Keywords[i] != want[i] {
			t.Errorf("Keywords[%d] = %q, want %q", i, got.Keywords[i], want[i])
		}
	}
}

func TestAnalyzeProject_LengthCountsRunes(t *testing.T) {
	// 100 multi-byte runes is not shorter than 100.
	desc := strings.Repeat("é", 100)
	got := NewProjectClassifier().AnalyzeProject("Home", desc)
	if got.Scale != models.ScaleMedium {
		t.Errorf("Scale = %q, want %q", got.Scale, models.ScaleMedium)
	}
}
