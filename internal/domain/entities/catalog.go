package entities

// DefaultCatalog returns the static subject scaffold with empty task lists.
// The catalog is fixed at build time; users only ever add tasks to its
// subtopics. A new user with no stored snapshot starts from this tree.
func DefaultCatalog() *Snapshot {
	return &Snapshot{
		Subjects: []Subject{
			{
				ID:    "math",
				Name:  "Mathematics",
				Color: "#2563eb",
				Units: []Unit{
					{
						ID:   "math-1",
						Name: "Algebra",
						Subtopics: []Subtopic{
							{ID: "math-1-1", Name: "Quadratics", Tasks: []Task{}},
							{ID: "math-1-2", Name: "Sequences and Series", Tasks: []Task{}},
							{ID: "math-1-3", Name: "Logarithms", Tasks: []Task{}},
						},
					},
					{
						ID:   "math-2",
						Name: "Calculus",
						Subtopics: []Subtopic{
							{ID: "math-2-1", Name: "Differentiation", Tasks: []Task{}},
							{ID: "math-2-2", Name: "Integration", Tasks: []Task{}},
						},
					},
				},
			},
			{
				ID:    "physics",
				Name:  "Physics",
				Color: "#dc2626",
				Units: []Unit{
					{
						ID:   "physics-1",
						Name: "Mechanics",
						Subtopics: []Subtopic{
							{ID: "physics-1-1", Name: "Kinematics", Tasks: []Task{}},
							{ID: "physics-1-2", Name: "Forces and Momentum", Tasks: []Task{}},
						},
					},
					{
						ID:   "physics-2",
						Name: "Electricity",
						Subtopics: []Subtopic{
							{ID: "physics-2-1", Name: "Circuits", Tasks: []Task{}},
							{ID: "physics-2-2", Name: "Fields", Tasks: []Task{}},
						},
					},
				},
			},
			{
				ID:    "chemistry",
				Name:  "Chemistry",
				Color: "#16a34a",
				Units: []Unit{
					{
						ID:   "chemistry-1",
						Name: "Physical Chemistry",
						Subtopics: []Subtopic{
							{ID: "chemistry-1-1", Name: "Atomic Structure", Tasks: []Task{}},
							{ID: "chemistry-1-2", Name: "Energetics", Tasks: []Task{}},
						},
					},
					{
						ID:   "chemistry-2",
						Name: "Organic Chemistry",
						Subtopics: []Subtopic{
							{ID: "chemistry-2-1", Name: "Alkanes and Alkenes", Tasks: []Task{}},
							{ID: "chemistry-2-2", Name: "Functional Groups", Tasks: []Task{}},
						},
					},
				},
			},
		},
	}
}
