package plans

import (
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ID is a canonical plan identifier.
type ID string

const (
	Free    ID = "free"
	Pro     ID = "pro"
	Premium ID = "premium"
)

// Unlimited marks a plan without an app generation ceiling.
const Unlimited int64 = -1

// TrialDays is the length of the trial window granted on signup.
const TrialDays = 7

// Plan is a static catalog entry.
type Plan struct {
	ID       ID       `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Price    int64    `yaml:"price" json:"price"` // smallest currency unit
	Currency string   `yaml:"currency" json:"currency"`
	Duration string   `yaml:"duration" json:"duration"`
	Features []string `yaml:"features" json:"features"`
	AppLimit Limit    `yaml:"app_limit" json:"appLimit"`
	Aliases  []string `yaml:"aliases" json:"-"`
}

// IsUnlimited reports whether the plan has no generation ceiling.
func (p Plan) IsUnlimited() bool {
	return int64(p.AppLimit) == Unlimited
}

// Limit is an app generation ceiling. In YAML it is a non-negative integer or
// the word "unlimited"; in JSON unlimited is rendered as null.
type Limit int64

func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	v := strings.TrimSpace(node.Value)
	if strings.EqualFold(v, "unlimited") || v == "" || v == "~" || strings.EqualFold(v, "null") {
		*l = Limit(Unlimited)
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return ErrInvalidLimit
	}
	*l = Limit(n)
	return nil
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if int64(l) == Unlimited {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(int64(l), 10)), nil
}

func (l *Limit) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = Limit(Unlimited)
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return ErrInvalidLimit
	}
	*l = Limit(n)
	return nil
}

// TrialDaysRemaining returns whole days left in a trial that started at start,
// rounding partial days up and never going below zero.
func TrialDaysRemaining(start, now time.Time) int {
	end := start.AddDate(0, 0, TrialDays)
	left := end.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// IsTrialExpired reports whether a trial started at start has run out.
func IsTrialExpired(start, now time.Time) bool {
	return TrialDaysRemaining(start, now) <= 0
}
