package sourcing

import (
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// QueryFile is the on-disk shape of the sourcing query sets.
type QueryFile struct {
	Sets map[string][]string `yaml:"sets"`
}

// LoadQueries reads and validates a query sets file.
func LoadQueries(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sourcing: read queries file")
	}

	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, eris.Wrap(err, "sourcing: parse queries file")
	}
	if len(qf.Sets) == 0 {
		return nil, eris.Errorf("sourcing: no query sets in %s", path)
	}
	for name, queries := range qf.Sets {
		if len(queries) == 0 {
			return nil, eris.Errorf("sourcing: query set %q is empty", name)
		}
	}
	return &qf, nil
}

// SetNames returns the set names in sorted order.
func (q *QueryFile) SetNames() []string {
	names := make([]string, 0, len(q.Sets))
	for name := range q.Sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetFor returns the query set scheduled for a given day. Sets rotate
// daily in sorted name order so repeated runs on the same day hit the
// same queries and stay cheap to dedup.
func (q *QueryFile) SetFor(day time.Time) (string, []string) {
	names := q.SetNames()
	name := names[day.YearDay()%len(names)]
	return name, q.Sets[name]
}

// Set returns a named query set, or an error listing the known names.
func (q *QueryFile) Set(name string) ([]string, error) {
	queries, ok := q.Sets[name]
	if !ok {
		return nil, eris.Errorf("sourcing: unknown query set %q (have %v)", name, q.SetNames())
	}
	return queries, nil
}

// All returns every query across every set, deduplicated, in set order.
func (q *QueryFile) All() []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range q.SetNames() {
		for _, query := range q.Sets[name] {
			if !seen[query] {
				seen[query] = true
				out = append(out, query)
			}
		}
	}
	return out
}
