package services

import "strings"

// CourseInfo is the course profile the teachable-item and skill-rubric prompts are built from.
type CourseInfo struct {
	Title               string `json:"title"`
	Description         string `json:"description"`
	TopicAndFocus       string `json:"topicAndFocus"`
	ScheduleAndDuration string `json:"scheduleAndDuration"`
	TargetAudience      string `json:"targetAudience"`
	GroupSizeAndFormat  string `json:"groupSizeAndFormat"`
	Location            string `json:"location"`
	HowStudentsJoin     string `json:"howStudentsJoin"`
	ToneAndApproach     string `json:"toneAndApproach"`
	AnythingUnusual     string `json:"anythingUnusual"`
}

// Prompt renders the profile as the labelled block every prompt opens with.
func (d CourseInfo) Prompt() string {
	var b strings.Builder
	b.WriteString("Course title: " + d.Title + "\n")
	b.WriteString("Course description: " + d.Description + "\n")
	b.WriteString("Topic and focus: " + d.TopicAndFocus + "\n")
	b.WriteString("Schedule and duration: " + d.ScheduleAndDuration + "\n")
	b.WriteString("Target audience: " + d.TargetAudience + "\n")
	b.WriteString("Group size and format: " + d.GroupSizeAndFormat + "\n")
	b.WriteString("Location: " + d.Location + "\n")
	b.WriteString("How students join: " + d.HowStudentsJoin + "\n")
	b.WriteString("Tone and approach: " + d.ToneAndApproach + "\n")
	b.WriteString("Anything unusual: " + d.AnythingUnusual)
	return b.String()
}

func (d CourseInfo) IsEmpty() bool {
	return strings.TrimSpace(d.Title+d.Description+d.TopicAndFocus) == ""
}
