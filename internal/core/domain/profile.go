package domain

import (
	"strings"
	"time"
)

// SkillLevel grades a declared skill.
type SkillLevel string

const (
	SkillLevelBeginner     SkillLevel = "beginner"
	SkillLevelIntermediate SkillLevel = "intermediate"
	SkillLevelAdvanced     SkillLevel = "advanced"
	SkillLevelExpert       SkillLevel = "expert"
)

// ValidSkillLevel reports whether the value is one of the known grades.
func ValidSkillLevel(level SkillLevel) bool {
	switch level {
	case SkillLevelBeginner, SkillLevelIntermediate, SkillLevelAdvanced, SkillLevelExpert:
		return true
	}
	return false
}

// LearningStyle captures the declared preference for how material is consumed.
type LearningStyle string

const (
	LearningStyleVisual      LearningStyle = "visual"
	LearningStyleAuditory    LearningStyle = "auditory"
	LearningStyleReading     LearningStyle = "reading"
	LearningStyleKinesthetic LearningStyle = "kinesthetic"
)

// ValidLearningStyle reports whether the value is a known style.
func ValidLearningStyle(style LearningStyle) bool {
	switch style {
	case LearningStyleVisual, LearningStyleAuditory, LearningStyleReading, LearningStyleKinesthetic:
		return true
	}
	return false
}

// Skill is a single declared competency.
type Skill struct {
	Name    string     `json:"name"`
	Level   SkillLevel `json:"level"`
	AddedAt time.Time  `json:"added_at"`
}

// GoalStatus tracks the lifecycle of a learning goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusAbandoned GoalStatus = "abandoned"
)

// LearningGoal is a target the learner set for themselves.
type LearningGoal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Status      GoalStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LearningProfile aggregates skills, interests, and goals.
// Skills are keyed by lower-cased name and goals by id, so presence
// checks and replacement are map operations rather than slice scans.
type LearningProfile struct {
	Style     LearningStyle           `json:"style,omitempty"`
	Skills    map[string]Skill        `json:"skills"`
	Interests []string                `json:"interests"`
	Goals     map[string]LearningGoal `json:"goals"`
}

// DefaultLearningProfile returns an empty profile with initialized maps.
func DefaultLearningProfile() LearningProfile {
	return LearningProfile{
		Skills:    map[string]Skill{},
		Interests: []string{},
		Goals:     map[string]LearningGoal{},
	}
}

// SkillKey normalizes a skill name into its map key.
func SkillKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// HasSkill reports whether a skill with the given name is present.
func (p *LearningProfile) HasSkill(name string) bool {
	_, ok := p.Skills[SkillKey(name)]
	return ok
}

// PutSkill inserts or replaces a skill by its normalized name.
func (p *LearningProfile) PutSkill(skill Skill) {
	if p.Skills == nil {
		p.Skills = map[string]Skill{}
	}
	p.Skills[SkillKey(skill.Name)] = skill
}

// RemoveSkill deletes a skill by name and reports whether it existed.
func (p *LearningProfile) RemoveSkill(name string) bool {
	key := SkillKey(name)
	if _, ok := p.Skills[key]; !ok {
		return false
	}
	delete(p.Skills, key)
	return true
}

// PutGoal inserts or replaces a goal by id.
func (p *LearningProfile) PutGoal(goal LearningGoal) {
	if p.Goals == nil {
		p.Goals = map[string]LearningGoal{}
	}
	p.Goals[goal.ID] = goal
}

// NotificationPreferences toggles outbound notifications per channel.
type NotificationPreferences struct {
	Email     bool `json:"email"`
	Push      bool `json:"push"`
	Reminders bool `json:"reminders"`
}

// PrivacyPreferences controls profile visibility.
type PrivacyPreferences struct {
	ProfilePublic bool `json:"profile_public"`
	ShowProgress  bool `json:"show_progress"`
}

// Preferences groups user-tunable settings stored alongside the account.
type Preferences struct {
	Language      string                  `json:"language"`
	Theme         string                  `json:"theme"`
	Notifications NotificationPreferences `json:"notifications"`
	Privacy       PrivacyPreferences      `json:"privacy"`
}

// DefaultPreferences returns the settings applied at registration.
func DefaultPreferences() Preferences {
	return Preferences{
		Language: "en",
		Theme:    "light",
		Notifications: NotificationPreferences{
			Email:     true,
			Push:      true,
			Reminders: true,
		},
		Privacy: PrivacyPreferences{
			ProfilePublic: true,
			ShowProgress:  true,
		},
	}
}
