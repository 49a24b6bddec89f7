// Package nickname expands given names into equivalent nickname and formal forms.
package nickname

import (
	"strings"
)

// MaxVariants caps the number of additional forms returned for one name.
const MaxVariants = 4

// pairs maps a formal name to its common short forms. Lookup runs both ways.
var pairs = []struct {
	formal    string
	nicknames []string
}{
	{"alexander", []string{"alex", "xander", "sandy"}},
	{"alexandra", []string{"alex", "lexi", "sandra"}},
	{"andrew", []string{"andy", "drew"}},
	{"anthony", []string{"tony", "ant"}},
	{"benjamin", []string{"ben", "benny"}},
	{"catherine", []string{"cathy", "kate", "katie"}},
	{"charles", []string{"charlie", "chuck", "chas"}},
	{"christopher", []string{"chris", "kit"}},
	{"daniel", []string{"dan", "danny"}},
	{"david", []string{"dave", "davey"}},
	{"deborah", []string{"deb", "debbie"}},
	{"edward", []string{"ed", "eddie", "ted", "ned"}},
	{"elizabeth", []string{"liz", "beth", "lizzie", "betty"}},
	{"frederick", []string{"fred", "freddie"}},
	{"gregory", []string{"greg"}},
	{"james", []string{"jim", "jimmy", "jamie"}},
	{"jennifer", []string{"jen", "jenny"}},
	{"jonathan", []string{"jon", "jonny"}},
	{"joseph", []string{"joe", "joey"}},
	{"joshua", []string{"josh"}},
	{"katherine", []string{"kate", "kath", "kathy", "katie"}},
	{"kenneth", []string{"ken", "kenny"}},
	{"margaret", []string{"maggie", "meg", "peggy"}},
	{"matthew", []string{"matt"}},
	{"michael", []string{"mike", "mick", "mikey"}},
	{"nicholas", []string{"nick", "nicky"}},
	{"patricia", []string{"pat", "patty", "trish"}},
	{"patrick", []string{"pat", "paddy"}},
	{"peter", []string{"pete"}},
	{"rebecca", []string{"becky", "bec"}},
	{"richard", []string{"rick", "rich", "dick"}},
	{"robert", []string{"rob", "bob", "bobby", "robbie"}},
	{"samuel", []string{"sam", "sammy"}},
	{"stephen", []string{"steve", "stevie"}},
	{"steven", []string{"steve", "stevie"}},
	{"susan", []string{"sue", "suzy"}},
	{"thomas", []string{"tom", "tommy"}},
	{"timothy", []string{"tim", "timmy"}},
	{"victoria", []string{"vicky", "tori"}},
	{"william", []string{"will", "bill", "billy", "liam"}},
	{"zachary", []string{"zach", "zac"}},
}

// table holds every known form, keyed by lowercase name, in table order.
var table = buildTable()

func buildTable() map[string][]string {
	t := make(map[string][]string)
	add := func(from, to string) {
		for _, existing := range t[from] {
			if existing == to {
				return
			}
		}
		t[from] = append(t[from], to)
	}
	for _, p := range pairs {
		for _, nick := range p.nicknames {
			add(p.formal, nick)
			add(nick, p.formal)
		}
	}
	return t
}

// Variants returns name followed by its equivalent forms.
// The input is always the first element, unchanged. Additional forms copy the
// input's capitalization style and are capped at MaxVariants.
func Variants(name string) []string {
	out := []string{name}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return out
	}

	seen := map[string]bool{key: true}
	for _, v := range table[key] {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, matchCase(name, v))
		if len(out)-1 == MaxVariants {
			break
		}
	}
	return out
}

// Alternates returns only the additional forms of name.
func Alternates(name string) []string {
	return Variants(name)[1:]
}

// Equivalent reports whether a and b are the same name or known variants of each other.
func Equivalent(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	for _, v := range table[a] {
		if v == b {
			return true
		}
	}
	return false
}

// matchCase renders v in the capitalization style of ref.
func matchCase(ref, v string) string {
	switch {
	case ref == strings.ToUpper(ref):
		return strings.ToUpper(v)
	case ref == strings.ToLower(ref):
		return v
	default:
		return strings.ToUpper(v[:1]) + v[1:]
	}
}
