package application

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// State represents the application lifecycle.
type State string

const (
	StateSubmitted       State = "submitted"
	StateQueued          State = "queued"
	StatePostedForReview State = "posted_for_review"
	StateAccepted        State = "accepted"
	StateDenied          State = "denied"
	StateApplied         State = "applied"
	StateOrphaned        State = "orphaned"
)

// Decision is a reviewer's verdict on a posted application.
type Decision string

const (
	Accept Decision = "accept"
	Deny   Decision = "deny"
)

// Valid reports whether d is Accept or Deny.
func (d Decision) Valid() bool {
	return d == Accept || d == Deny
}

// State is the terminal decision state d leads to.
func (d Decision) State() State {
	if d == Accept {
		return StateAccepted
	}
	return StateDenied
}

// Title is the past-tense label shown on review posts.
func (d Decision) Title() string {
	if d == Accept {
		return "Accepted"
	}
	return "Denied"
}

// NotProvided fills optional free-text answers left empty on the form.
const NotProvided = "Not provided"

// Record is the payload captured at submission time. It is never modified
// after creation.
type Record struct {
	ActorID            string            `json:"code"`
	InGameName         string            `json:"in_game_name"`
	PlaytimeExperience string            `json:"playtime_experience,omitempty"`
	AboutMe            string            `json:"about_me,omitempty"`
	PublicProfile      bool              `json:"public_profile"`
	Extra              map[string]string `json:"extra,omitempty"`
	SubmittedAt        time.Time         `json:"submitted_at"`
}

// Field is a labelled answer for display.
type Field struct {
	Name  string
	Value string
}

// Fields lists the answers staff see on a review post, known fields first
// and extension fields sorted by key.
func (r Record) Fields() []Field {
	fields := []Field{
		{Name: "Playtime Experience", Value: orNotProvided(r.PlaytimeExperience)},
		{Name: "About Me", Value: orNotProvided(r.AboutMe)},
		{Name: "Public Profile", Value: yesNo(r.PublicProfile)},
	}
	keys := slices.Sorted(maps.Keys(r.Extra))
	for _, k := range keys {
		fields = append(fields, Field{Name: Label(k), Value: orNotProvided(r.Extra[k])})
	}
	return fields
}

// ShowsIntroduction reports whether acceptance should post the applicant's
// about-me text publicly.
func (r Record) ShowsIntroduction() bool {
	about := strings.TrimSpace(r.AboutMe)
	return r.PublicProfile && about != "" && about != NotProvided
}

// Label turns a form key such as "favourite_block" into "Favourite Block".
func Label(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotProvided
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
