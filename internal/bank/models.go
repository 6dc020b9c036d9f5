package bank

// Part tags the seven TOEIC sections. Parts 1-4 are Listening, 5-7 Reading.
type Part string

const (
	Part1 Part = "part.1"
	Part2 Part = "part.2"
	Part3 Part = "part.3"
	Part4 Part = "part.4"
	Part5 Part = "part.5"
	Part6 Part = "part.6"
	Part7 Part = "part.7"
)

var AllParts = []Part{Part1, Part2, Part3, Part4, Part5, Part6, Part7}

// IsListening reports whether the part belongs to the Listening section.
// Anything outside the fixed Listening set counts as Reading.
func (p Part) IsListening() bool {
	switch p {
	case Part1, Part2, Part3, Part4:
		return true
	}
	return false
}

type Choice struct {
	ID   string `json:"id"`   // "A", "B", "C", "D", ...
	Text string `json:"text,omitempty"`
}

type Item struct {
	ID         string   `json:"id"`
	Part       Part     `json:"part"`
	StimulusID string   `json:"stimulus_id,omitempty"`
	Stem       string   `json:"stem,omitempty"`
	Choices    []Choice `json:"choices,omitempty"`
	Answer     string   `json:"answer,omitempty"` // correct choice id; stripped on learner-facing reads
}

// Stimulus is shared context (passage, audio, image) for one or more items.
type Stimulus struct {
	ID          string   `json:"id"`
	Images      []string `json:"images,omitempty"`
	AudioURL    string   `json:"audio_url,omitempty"`
	Transcript  string   `json:"transcript,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// Test names the item sequence a learner is shown, gated by unlock level.
type Test struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Level        int      `json:"level"`
	PartKeys     []string `json:"part_keys,omitempty"`
	ItemIDs      []string `json:"item_ids,omitempty"`
	TimeLimitSec int      `json:"time_limit_sec,omitempty"`
	CreatedAt    int64    `json:"created_at,omitempty"`
}

// TestRefPlacement is the testRef sentinel for placement submissions that
// are not tied to a catalog test.
const TestRefPlacement = "placement"
