package domain

type FeatureStatus string

const (
	FeatureBacklog    FeatureStatus = "backlog"
	FeaturePlanned    FeatureStatus = "planned"
	FeatureInProgress FeatureStatus = "in_progress"
	FeatureTesting    FeatureStatus = "testing"
	FeatureDone       FeatureStatus = "done"
)

func (s FeatureStatus) Valid() bool {
	switch s {
	case FeatureBacklog, FeaturePlanned, FeatureInProgress, FeatureTesting, FeatureDone:
		return true
	}
	return false
}

// ProjectFeature is a roadmap item on the internal project board.
type ProjectFeature struct {
	Record
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Status          FeatureStatus `json:"status"`
	Priority        string        `json:"priority,omitempty"`
	Progress        int           `json:"progress"`
	Sprint          string        `json:"sprint,omitempty"`
	StoryPoints     int           `json:"story_points,omitempty"`
	Assignee        string        `json:"assignee,omitempty"`
	VerknuepfteBugs []string      `json:"verknuepfte_bugs,omitempty"`
}

func (*ProjectFeature) Kind() Kind { return KindProjectFeature }
