// Package safety intercepts chat messages that indicate the user may be in
// crisis, before anything is sent to the language model.
package safety

import "strings"

// CrisisReply is returned verbatim whenever a crisis keyword is found.
const CrisisReply = "It sounds like you are in crisis. Please reach out for help. You can connect with people who can support you by calling or texting 988 anytime in the US and Canada. In the UK, you can call 111."

// DefaultKeywords are always screened for, regardless of configuration.
var DefaultKeywords = []string{"kill myself", "want to die", "self harm"}

type Screener struct {
	keywords []string
}

// NewScreener builds a screener over the default keywords plus any extras.
// Extras are lower-cased; blanks and duplicates are ignored.
func NewScreener(extra ...string) *Screener {
	seen := make(map[string]bool, len(DefaultKeywords)+len(extra))
	keywords := make([]string, 0, len(DefaultKeywords)+len(extra))
	for _, k := range append(append([]string{}, DefaultKeywords...), extra...) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keywords = append(keywords, k)
	}
	return &Screener{keywords: keywords}
}

// Screen reports whether message contains a crisis keyword. When it does,
// reply holds CrisisReply and the caller must not forward the message.
func (s *Screener) Screen(message string) (reply string, matched bool) {
	lower := strings.ToLower(message)
	for _, k := range s.keywords {
		if strings.Contains(lower, k) {
			return CrisisReply, true
		}
	}
	return "", false
}

// Keywords returns a copy of the active keyword list.
func (s *Screener) Keywords() []string {
	return append([]string(nil), s.keywords...)
}
