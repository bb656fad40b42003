package core

import "github.com/valter-silva-au/build-brain/pkg/models"

// Phase labels shared by the built-in catalogs.
const (
	phasePreConstruction = "Pre-Construction"
	phaseSitePrep        = "Site Preparation"
	phaseFoundation      = "Foundation"
	phaseFraming         = "Framing & Structure"
	phaseMEP             = "Mechanical, Electrical & Plumbing"
	phaseExterior        = "Exterior Envelope"
	phaseInterior        = "Interior Finishes"
	phaseDemolition      = "Demolition"
	phaseCloseout        = "Closeout"
)

var ppeBasic = []string{"Hard hat", "Safety glasses", "High-visibility vest", "Steel-toe boots"}

func builtinResidentialTemplates() []models.TaskTemplate {
	return []models.TaskTemplate{
		{
			Title:              "Permits and Site Survey",
			Description:        "Obtain building permits, confirm setbacks and complete the boundary survey.",
			Priority:           models.PriorityHigh,
			EstimatedHours:     16,
			PhaseName:          phasePreConstruction,
			RequiresInspection: false,
			EquipmentNeeded:    []string{"Total station", "GPS rover"},
			Subtasks:           []string{"Submit permit application", "Boundary survey", "Utility locate request"},
			LOE: &models.LOE{
				OptimisticHours: 12, MostLikelyHours: 16, PessimisticHours: 28,
				ConfidenceLevel: 60, ComplexityFactor: models.ComplexityModerate, SkillLevelRequired: models.SkillIntermediate,
			},
			Risks: []models.Risk{{
				Level: models.RiskMedium, Type: "schedule",
				Description: "Permit review takes longer than planned",
				Mitigation:  "Submit complete packages early and track review status weekly",
				Probability: 40, Impact: models.ImpactHigh,
			}},
		},
		{
			Title:              "Site Clearing and Excavation",
			Description:        "Clear vegetation, strip topsoil and excavate for the foundation.",
			Priority:           models.PriorityHigh,
			EstimatedHours:     24,
			PhaseName:          phaseSitePrep,
			WeatherDependent:   true,
			SafetyRequirements: append([]string{"Trench shoring plan"}, ppeBasic...),
			EquipmentNeeded:    []string{"Excavator", "Skid steer", "Dump truck"},
			Subtasks:           []string{"Clear and grub", "Strip topsoil", "Excavate footings"},
			Risks: []models.Risk{{
				Level: models.RiskHigh, Type: "weather",
				Description: "Rain saturates the excavation",
				Mitigation:  "Schedule around forecast and keep dewatering pump on site",
				Probability: 35, Impact: models.ImpactMedium,
			}},
		},
		{
			Title:              "Foundation Pour",
			Description:        "Form, reinforce and pour footings and foundation walls.",
			Priority:           models.PriorityCritical,
			EstimatedHours:     32,
			PhaseName:          phaseFoundation,
			WeatherDependent:   true,
			RequiresInspection: true,
			SafetyRequirements: ppeBasic,
			EquipmentNeeded:    []string{"Concrete pump", "Vibrator", "Laser level"},
			MaterialsNeeded:    []string{"Ready-mix concrete", "Rebar", "Form lumber", "Anchor bolts"},
			Subtasks:           []string{"Set forms", "Place rebar", "Pre-pour inspection", "Pour and finish", "Strip forms"},
			LOE: &models.LOE{
				OptimisticHours: 26, MostLikelyHours: 32, PessimisticHours: 48,
				ConfidenceLevel: 70, ComplexityFactor: models.ComplexityComplex, SkillLevelRequired: models.SkillSenior,
			},
		},
		{
			Title:              "Framing",
			Description:        "Frame floors, walls and roof structure and sheathe the building.",
			Priority:           models.PriorityHigh,
			EstimatedHours:     80,
			PhaseName:          phaseFraming,
			WeatherDependent:   true,
			RequiresInspection: true,
			SafetyRequirements: append([]string{"Fall protection harness"}, ppeBasic...),
			EquipmentNeeded:    []string{"Nail guns", "Circular saws", "Telehandler"},
			MaterialsNeeded:    []string{"Dimensional lumber", "Engineered joists", "OSB sheathing", "Roof trusses"},
			Subtasks:           []string{"Floor system", "Wall framing", "Roof trusses", "Sheathing"},
		},
		{
			Title:              "Plumbing and Electrical Rough-In",
			Description:        "Install supply, drain and vent piping and rough electrical wiring.",
			Priority:           models.PriorityHigh,
			EstimatedHours:     48,
			PhaseName:          phaseMEP,
			RequiresInspection: true,
			SafetyRequirements: []string{"Lockout/tagout", "Safety glasses"},
			MaterialsNeeded:    []string{"PEX tubing", "PVC drain pipe", "NM cable", "Electrical boxes"},
			Subtasks:           []string{"Plumbing rough-in", "Electrical rough-in", "Low-voltage rough-in"},
		},
		{
			Title:            "Roofing and Exterior Cladding",
			Description:      "Dry in the roof and install windows, doors and siding.",
			Priority:         models.PriorityMedium,
			EstimatedHours:   40,
			PhaseName:        phaseExterior,
			WeatherDependent: true,
			SafetyRequirements: []string{
				"Fall protection harness", "Roof anchors",
			},
			MaterialsNeeded: []string{"Underlayment", "Shingles", "Windows", "Siding"},
		},
		{
			Title:              "Insulation and Drywall",
			Description:        "Insulate exterior walls and ceilings, hang, tape and finish drywall.",
			Priority:           models.PriorityMedium,
			EstimatedHours:     56,
			PhaseName:          phaseInterior,
			RequiresInspection: true,
			SafetyRequirements: []string{"Respirator", "Safety glasses"},
			MaterialsNeeded:    []string{"Batt insulation", "Drywall sheets", "Joint compound"},
		},
		{
			Title:          "Interior Finishes and Fixtures",
			Description:    "Install cabinets, trim, flooring, paint and plumbing and electrical fixtures.",
			Priority:       models.PriorityMedium,
			EstimatedHours: 64,
			PhaseName:      phaseInterior,
			Subtasks:       []string{"Cabinets and counters", "Trim carpentry", "Flooring", "Paint", "Fixtures"},
		},
		{
			Title:              "Final Inspection and Handover",
			Description:        "Pass the final building inspection, walk through the punch list and hand over keys.",
			Priority:           models.PriorityCritical,
			EstimatedHours:     12,
			PhaseName:          phaseCloseout,
			RequiresInspection: true,
			Subtasks:           []string{"Punch list", "Final inspection", "Certificate of occupancy", "Owner walkthrough"},
		},
	}
}

func builtinCommercialTemplates() []models.TaskTemplate {
	return []models.TaskTemplate{
		{
			Title:              "Site Analysis and Preparation",
			Description:        "Geotechnical investigation, site survey, erosion control and mobilization.",
			Priority:           models.PriorityCritical,
			EstimatedHours:     40,
			PhaseName:          phaseSitePrep,
			WeatherDependent:   true,
			RequiresInspection: true,
			SafetyRequirements: append([]string{"Site-specific safety plan"}, ppeBasic...),
			EquipmentNeeded:    []string{"Drill rig", "Excavator", "Site trailer"},
			Subtasks:           []string{"Geotechnical borings", "Topographic survey", "Erosion control", "Temporary utilities"},
			LOE: &models.LOE{
				OptimisticHours: 32, MostLikelyHours: 40, PessimisticHours: 60,
				ConfidenceLevel: 65, ComplexityFactor: models.ComplexityComplex, SkillLevelRequired: models.SkillSenior,
			},
			Risks: []models.Risk{{
				Level: models.RiskHigh, Type: "technical",
				Description: "Unexpected soil conditions require redesign of foundations",
				Mitigation:  "Complete geotechnical report before foundation design is frozen",
				Probability: 25, Impact: models.ImpactCritical,
			}},
		},
		{
			Title:              "Deep Foundations and Slab",
			Description:        "Drive piles or drill piers, pour grade beams and the slab on grade.",
			Priority:           models.PriorityCritical,
			EstimatedHours:     120,
			PhaseName:          phaseFoundation,
			WeatherDependent:   true,
			RequiresInspection: true,
			SafetyRequirements: ppeBasic,
			EquipmentNeeded:    []string{"Pile driver", "Concrete pump", "Crane"},
			MaterialsNeeded:    []string{"Steel piles", "Rebar", "Ready-mix concrete", "Vapor barrier"},
		},
		{
			Title:              "Structural Steel Erection",
			Description:        "Erect columns, beams and metal deck and complete structural connections.",
			Priority:           models.PriorityCritical,
			EstimatedHours:     160,
			PhaseName:          phaseFraming,
			WeatherDependent:   true,
			RequiresInspection: true,
			SafetyRequirements: append([]string{"Crane lift plan", "Fall protection harness"}, ppeBasic...),
			EquipmentNeeded:    []string{"Tower crane", "Boom lifts", "Welding rigs"},
			MaterialsNeeded:    []string{"Structural steel", "Metal deck", "High-strength bolts"},
			Risks: []models.Risk{{
				Level: models.RiskHigh, Type: "safety",
				Description: "Work at height during steel erection",
				Mitigation:  "Enforce 100% tie-off and daily lift planning",
				Probability: 20, Impact: models.ImpactCritical,
			}},
		},
		{
			Title:              "MEP Systems Installation",
			Description:        "Install HVAC, plumbing, fire protection and electrical distribution.",
			Priority:           models.PriorityHigh,
			EstimatedHours:     200,
			PhaseName:          phaseMEP,
			RequiresInspection: true,
			SafetyRequirements: []string{"Lockout/tagout", "Hot work permit"},
			MaterialsNeeded:    []string{"Ductwork", "Rooftop units", "Sprinkler piping", "Switchgear"},
			LOE: &models.LOE{
				OptimisticHours: 170, MostLikelyHours: 200, PessimisticHours: 280,
				ConfidenceLevel: 70, ComplexityFactor: models.ComplexityComplex, SkillLevelRequired: models.SkillSenior,
			},
		},
		{
			Title:            "Building Envelope",
			Description:      "Install curtain wall, storefront, roofing membrane and air barrier.",
			Priority:         models.PriorityHigh,
			EstimatedHours:   140,
			PhaseName:        phaseExterior,
			WeatherDependent: true,
			MaterialsNeeded:  []string{"Curtain wall units", "TPO membrane", "Air barrier"},
		},
		{
			Title:              "Tenant Improvements and Finishes",
			Description:        "Build out partitions, ceilings, flooring and finishes for tenant spaces.",
			Priority:           models.PriorityMedium,
			EstimatedHours:     180,
			PhaseName:          phaseInterior,
			RequiresInspection: false,
			MaterialsNeeded:    []string{"Metal studs", "Acoustic ceiling tile", "Carpet tile"},
		},
		{
			Title:              "Commissioning and Certificate of Occupancy",
			Description:        "Commission building systems, pass life-safety inspections and obtain the certificate of occupancy.",
			Priority:           models.PriorityCritical,
			EstimatedHours:     60,
			PhaseName:          phaseCloseout,
			RequiresInspection: true,
			Subtasks:           []string{"Functional testing", "Fire alarm acceptance", "Certificate of occupancy", "O&M manuals"},
		},
	}
}

func builtinRenovationTemplates() []models.TaskTemplate {
	return []models.TaskTemplate{
		{
			Title:           "Existing Conditions Assessment",
			Description:     "Document existing conditions, test for hazardous materials and confirm scope.",
			Priority:        models.PriorityHigh,
			EstimatedHours:  12,
			PhaseName:       phasePreConstruction,
			EquipmentNeeded: []string{"Moisture meter", "Camera"},
			Subtasks:        []string{"Measure and photograph", "Asbestos and lead testing", "Scope confirmation"},
			Risks: []models.Risk{{
				Level: models.RiskMedium, Type: "technical",
				Description: "Hidden damage found behind finishes",
				Mitigation:  "Carry contingency and open up suspect areas early",
				Probability: 50, Impact: models.ImpactMedium,
			}},
		},
		{
			Title:              "Selective Demolition",
			Description:        "Protect adjacent areas and remove finishes, fixtures and non-bearing walls.",
			Priority:           models.PriorityHigh,
			EstimatedHours:     24,
			PhaseName:          phaseDemolition,
			SafetyRequirements: []string{"Dust control", "Respirator", "Hearing protection"},
			EquipmentNeeded:    []string{"Dumpster", "Reciprocating saw", "HEPA vacuum"},
		},
		{
			Title:              "Structural Modifications",
			Description:        "Install new headers, beams or posts where walls are removed or openings change.",
			Priority:           models.PriorityCritical,
			EstimatedHours:     20,
			PhaseName:          phaseFraming,
			RequiresInspection: true,
			SafetyRequirements: []string{"Temporary shoring"},
			MaterialsNeeded:    []string{"LVL beams", "Steel posts", "Joist hangers"},
			LOE: &models.LOE{
				OptimisticHours: 14, MostLikelyHours: 20, PessimisticHours: 36,
				ConfidenceLevel: 55, ComplexityFactor: models.ComplexityComplex, SkillLevelRequired: models.SkillSenior,
			},
		},
		{
			Title:              "MEP Upgrades",
			Description:        "Relocate and upgrade plumbing, electrical and ventilation to suit the new layout.",
			Priority:           models.PriorityHigh,
			EstimatedHours:     32,
			PhaseName:          phaseMEP,
			RequiresInspection: true,
			SafetyRequirements: []string{"Lockout/tagout"},
		},
		{
			Title:              "Drywall and Surface Repair",
			Description:        "Patch, hang and finish drywall and prepare surfaces for finishes.",
			Priority:           models.PriorityMedium,
			EstimatedHours:     20,
			PhaseName:          phaseInterior,
			MaterialsNeeded:    []string{"Drywall sheets", "Joint compound", "Primer"},
			SafetyRequirements: []string{"Dust mask"},
		},
		{
			Title:          "Finish Installation",
			Description:    "Install cabinetry, tile, flooring, fixtures and paint.",
			Priority:       models.PriorityMedium,
			EstimatedHours: 40,
			PhaseName:      phaseInterior,
			Subtasks:       []string{"Cabinets", "Tile", "Flooring", "Fixtures", "Paint"},
		},
		{
			Title:              "Final Walkthrough",
			Description:        "Final inspection, punch list completion and client sign-off.",
			Priority:           models.PriorityHigh,
			EstimatedHours:     6,
			PhaseName:          phaseCloseout,
			RequiresInspection: true,
		},
	}
}

func builtinRecurringTemplates() []models.RecurringTemplate {
	return []models.RecurringTemplate{
		{
			TaskTemplate: models.TaskTemplate{
				Title:              "Daily Safety Walk",
				Description:        "Walk the site, check PPE compliance, housekeeping and fall protection.",
				Priority:           models.PriorityHigh,
				EstimatedHours:     1,
				PhaseName:          "Site Safety",
				SafetyRequirements: ppeBasic,
			},
			Pattern:          models.RecurDaily,
			ApplicablePhases: []string{"site", "foundation", "framing", "structure", "demolition"},
		},
		{
			TaskTemplate: models.TaskTemplate{
				Title:          "Weekly Progress Meeting",
				Description:    "Review progress against schedule with trades and owner representatives.",
				Priority:       models.PriorityMedium,
				EstimatedHours: 2,
				PhaseName:      "Project Management",
			},
			Pattern:          models.RecurWeekly,
			ApplicablePhases: []string{"construction", "foundation", "framing", "mechanical", "interior", "exterior"},
		},
		{
			TaskTemplate: models.TaskTemplate{
				Title:              "Biweekly Quality Audit",
				Description:        "Audit installed work against drawings and specifications.",
				Priority:           models.PriorityMedium,
				EstimatedHours:     4,
				PhaseName:          "Quality Control",
				RequiresInspection: true,
			},
			Pattern:          models.RecurBiweekly,
			ApplicablePhases: []string{"framing", "mechanical", "envelope", "finishes"},
		},
		{
			TaskTemplate: models.TaskTemplate{
				Title:          "Monthly Budget Review",
				Description:    "Reconcile committed costs, change orders and forecast to complete.",
				Priority:       models.PriorityMedium,
				EstimatedHours: 3,
				PhaseName:      "Project Management",
			},
			Pattern:          models.RecurMonthly,
			ApplicablePhases: []string{"pre-construction", "construction", "closeout"},
		},
	}
}

func builtinMilestoneTemplates() []models.MilestoneTemplate {
	return []models.MilestoneTemplate{
		{
			Name:                 "Foundation Complete",
			CompletionPercentage: 25,
			TriggeredTasks: []models.TaskTemplate{
				{
					Title:          "Order Long-Lead Materials",
					Description:    "Release purchase orders for windows, cabinetry and equipment with long lead times.",
					Priority:       models.PriorityHigh,
					EstimatedHours: 4,
					PhaseName:      "Procurement",
				},
				{
					Title:          "25% Progress Billing",
					Description:    "Prepare and submit the first progress payment application.",
					Priority:       models.PriorityMedium,
					EstimatedHours: 3,
					PhaseName:      "Financial",
				},
			},
		},
		{
			Name:                 "Structure Topped Out",
			CompletionPercentage: 50,
			TriggeredTasks: []models.TaskTemplate{
				{
					Title:              "Mid-Project Quality Review",
					Description:        "Independent review of workmanship before systems are concealed.",
					Priority:           models.PriorityHigh,
					EstimatedHours:     6,
					PhaseName:          "Quality Control",
					RequiresInspection: true,
				},
				{
					Title:          "50% Progress Billing",
					Description:    "Prepare and submit the mid-project payment application.",
					Priority:       models.PriorityMedium,
					EstimatedHours: 3,
					PhaseName:      "Financial",
				},
			},
		},
		{
			Name:                 "Dried In",
			CompletionPercentage: 75,
			TriggeredTasks: []models.TaskTemplate{
				{
					Title:          "Punch List Preparation",
					Description:    "Walk completed areas and start the punch list.",
					Priority:       models.PriorityMedium,
					EstimatedHours: 4,
					PhaseName:      phaseCloseout,
				},
				{
					Title:          "Schedule Final Inspections",
					Description:    "Book building, fire and utility final inspections with the jurisdiction.",
					Priority:       models.PriorityHigh,
					EstimatedHours: 2,
					PhaseName:      phaseCloseout,
				},
			},
		},
		{
			Name:                 "Project Complete",
			CompletionPercentage: 100,
			TriggeredTasks: []models.TaskTemplate{
				{
					Title:          "Closeout Documentation",
					Description:    "Assemble warranties, as-built drawings and O&M manuals for the owner.",
					Priority:       models.PriorityHigh,
					EstimatedHours: 8,
					PhaseName:      phaseCloseout,
				},
				{
					Title:          "Final Billing and Retainage Release",
					Description:    "Submit the final payment application and request release of retainage.",
					Priority:       models.PriorityHigh,
					EstimatedHours: 3,
					PhaseName:      "Financial",
				},
			},
		},
	}
}
