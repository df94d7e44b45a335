package registry

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultTitlePattern extracts the character name from a client title.
	DefaultTitlePattern = `^EVE - (.+)$`
	// DefaultLoggedOutTitle is the title a client shows at the character
	// selection screen.
	DefaultLoggedOutTitle = "EVE"
)

// DefaultClasses are the WM_CLASS values clients run under natively and
// through Wine.
var DefaultClasses = []string{"exefile.exe", "wine"}

// MatcherConfig configures title and class matching.
type MatcherConfig struct {
	// TitlePattern is a regular expression with exactly one capture group
	// holding the character name.
	TitlePattern string
	// LoggedOutTitle marks a previously matched window as logged off.
	LoggedOutTitle string
	// Classes restricts matching to these WM_CLASS class or instance values
	// (case-insensitive). Empty accepts any class.
	Classes []string
	// Custom previews windows of other applications. Rules are tried in
	// order, only for windows that are not clients.
	Custom []CustomRule
}

// CustomRule manages a non-client window under Alias, which stands in for
// the character name everywhere. At least one pattern must be set and every
// set pattern must match. ClassPattern is tried against the WM_CLASS class
// and instance, case-insensitively.
type CustomRule struct {
	TitlePattern string
	ClassPattern string
	Alias        string
	// Width and Height size the thumbnail when no position is saved; zero
	// uses the profile's thumbnail size.
	Width  int
	Height int
	// Limit previews only the first matching window. Without it further
	// windows are numbered "Alias 2", "Alias 3" and so on.
	Limit bool
}

type customMatcher struct {
	rule  CustomRule
	title *regexp.Regexp
	class *regexp.Regexp
}

// Matcher decides which windows are managed and which character they show.
type Matcher struct {
	pattern   *regexp.Regexp
	loggedOut string
	classes   map[string]struct{}
	custom    []customMatcher
}

// NewMatcher compiles cfg. Empty fields take the defaults.
func NewMatcher(cfg MatcherConfig) (*Matcher, error) {
	pattern := cfg.TitlePattern
	if pattern == "" {
		pattern = DefaultTitlePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid title pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("title pattern %q must have exactly one capture group, has %d", pattern, re.NumSubexp())
	}

	loggedOut := cfg.LoggedOutTitle
	if loggedOut == "" {
		loggedOut = DefaultLoggedOutTitle
	}

	classes := make(map[string]struct{}, len(cfg.Classes))
	for _, c := range cfg.Classes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			classes[c] = struct{}{}
		}
	}

	custom := make([]customMatcher, 0, len(cfg.Custom))
	for i, rule := range cfg.Custom {
		cm, err := compileCustom(rule)
		if err != nil {
			return nil, fmt.Errorf("custom window %d: %w", i, err)
		}
		custom = append(custom, cm)
	}

	return &Matcher{
		pattern:   re,
		loggedOut: loggedOut,
		classes:   classes,
		custom:    custom,
	}, nil
}

// Validate reports whether the rule would compile.
func (r CustomRule) Validate() error {
	_, err := compileCustom(r)
	return err
}

func compileCustom(rule CustomRule) (customMatcher, error) {
	rule.Alias = strings.TrimSpace(rule.Alias)
	if rule.Alias == "" {
		return customMatcher{}, fmt.Errorf("alias is required")
	}
	if rule.TitlePattern == "" && rule.ClassPattern == "" {
		return customMatcher{}, fmt.Errorf("%q needs a title or class pattern", rule.Alias)
	}
	if rule.Width < 0 || rule.Height < 0 {
		return customMatcher{}, fmt.Errorf("%q: default size must be >= 0", rule.Alias)
	}
	cm := customMatcher{rule: rule}
	if rule.TitlePattern != "" {
		re, err := regexp.Compile(rule.TitlePattern)
		if err != nil {
			return customMatcher{}, fmt.Errorf("invalid title pattern %q: %w", rule.TitlePattern, err)
		}
		cm.title = re
	}
	if rule.ClassPattern != "" {
		re, err := regexp.Compile("(?i)" + rule.ClassPattern)
		if err != nil {
			return customMatcher{}, fmt.Errorf("invalid class pattern %q: %w", rule.ClassPattern, err)
		}
		cm.class = re
	}
	return cm, nil
}

// MatchCharacter extracts the character name from a window title.
func (m *Matcher) MatchCharacter(title string) (string, bool) {
	sub := m.pattern.FindStringSubmatch(strings.TrimSpace(title))
	if len(sub) != 2 {
		return "", false
	}
	name := strings.TrimSpace(sub[1])
	if name == "" {
		return "", false
	}
	return name, true
}

// IsLoggedOut reports whether title is the logged-out client title.
func (m *Matcher) IsLoggedOut(title string) bool {
	return strings.TrimSpace(title) == m.loggedOut
}

// MatchClass reports whether a WM_CLASS pair belongs to a client.
func (m *Matcher) MatchClass(class, instance string) bool {
	if len(m.classes) == 0 {
		return true
	}
	if _, ok := m.classes[strings.ToLower(class)]; ok {
		return true
	}
	_, ok := m.classes[strings.ToLower(instance)]
	return ok
}

// MatchCustom returns the first custom rule admitting a window.
func (m *Matcher) MatchCustom(title, class, instance string) (CustomRule, bool) {
	title = strings.TrimSpace(title)
	for _, cm := range m.custom {
		if cm.title != nil && !cm.title.MatchString(title) {
			continue
		}
		if cm.class != nil && !cm.class.MatchString(class) && !cm.class.MatchString(instance) {
			continue
		}
		return cm.rule, true
	}
	return CustomRule{}, false
}
